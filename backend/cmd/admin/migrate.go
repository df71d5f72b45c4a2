package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sga-horarios/backend/pkg/database"
)

func newMigrateCmd(e *env) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移；--down N 回滚 N 步",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if down < 0 {
				return fmt.Errorf("--down 不能为负数")
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}

			if down > 0 {
				if err := database.RollbackMigrations(sqlDB, down, e.logger); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已回滚 %d 步\n", down)
				return nil
			}

			if err := database.RunMigrations(sqlDB, e.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "回滚步数")

	return cmd
}
