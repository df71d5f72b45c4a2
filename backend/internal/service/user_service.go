package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameExists     = errors.New("用户名已存在")
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色或状态")
	ErrUserSelfDelete     = errors.New("不能删除自己")
	ErrNoPermission       = errors.New("无权操作")
)

// UserService 用户业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID, callerRole string) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error) {
	// 检查用户名唯一性
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Department:   req.Department,
		Career:       req.Career,
		Semester:     req.Semester,
		InstructorID: req.InstructorID,
		Active:       true,
	}
	user.CreatedBy = optionalID(callerID)

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建用户", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	return toUserResponse(user), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, req.Role, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID, callerRole string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	isAdmin := callerRole == model.RoleAdmin

	// 非管理员只能修改自己的资料，且不能修改角色、状态与教师编号
	if !isAdmin {
		if callerID != id {
			return nil, ErrNoPermission
		}
		if req.Role != nil || req.Active != nil || req.InstructorID != nil {
			return nil, ErrNoPermission
		}
	}

	// 管理员不能给自己降权或停用自己
	if isAdmin && callerID == id {
		if (req.Role != nil && *req.Role != user.Role) || (req.Active != nil && !*req.Active) {
			return nil, ErrUserSelfRoleChange
		}
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Career != nil {
		user.Career = *req.Career
	}
	if req.Semester != nil {
		user.Semester = *req.Semester
	}
	if req.InstructorID != nil {
		user.InstructorID = req.InstructorID
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedBy = optionalID(callerID)

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrUserSelfDelete
	}

	if err := s.repo.User.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("删除用户", zap.String("user_id", id), zap.String("by", callerID))
	return nil
}

// ── 工具函数 ──

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:           u.UserID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		Department:   u.Department,
		Career:       u.Career,
		Semester:     u.Semester,
		InstructorID: u.InstructorID,
		Active:       u.Active,
		Version:      u.Version,
		CreatedAt:    formatTime(u.CreatedAt),
	}
}

// optionalID 空字符串视为无操作人（CLI 等系统调用）
func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
