package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
	"sga-horarios/backend/internal/service"
	"sga-horarios/backend/pkg/database"
)

// 未通过 --password 提供时从该环境变量读取
const passwordEnv = "SGA_ADMIN_PASSWORD"

func newAddUserCmd(e *env) *cobra.Command {
	req := dto.CreateUserRequest{}

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "创建用户（默认管理员），用于初始化系统",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv(passwordEnv)
			}
			if err := checkNewUser(&req); err != nil {
				return err
			}

			db, err := e.openDB()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(sqlDB, e.logger); err != nil {
				return err
			}

			users := service.NewUserService(repository.NewRepository(db), e.logger)
			user, err := users.Create(cmd.Context(), &req, "")
			if errors.Is(err, service.ErrUsernameExists) {
				return fmt.Errorf("用户 %s 已存在", req.Username)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "已创建用户 %s（%s），ID %s\n", user.Username, user.Role, user.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Username, "username", "u", "", "用户名")
	f.StringVar(&req.FullName, "full-name", "", "姓名")
	f.StringVarP(&req.Email, "email", "e", "", "邮箱")
	f.StringVarP(&req.Password, "password", "p", "", "密码（也可通过 "+passwordEnv+" 提供）")
	f.StringVarP(&req.Role, "role", "r", model.RoleAdmin, "角色: estudiante | docente | administrador")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// checkNewUser 命令行入参不经过 gin 校验，这里补齐必要检查
func checkNewUser(req *dto.CreateUserRequest) error {
	if len(req.Password) < 8 {
		return errors.New("密码长度不能少于 8 位")
	}
	switch req.Role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
	default:
		return fmt.Errorf("未知角色: %s", req.Role)
	}
	if req.FullName == "" {
		req.FullName = req.Username
	}
	return nil
}
