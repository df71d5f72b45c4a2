package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
)

var (
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrTargetUserNotFound   = errors.New("通知目标用户不存在")
)

// NotificationService 通知业务接口
// 用户可见范围：发给本人的通知与广播通知
type NotificationService interface {
	Create(ctx context.Context, req *dto.CreateNotificationRequest, callerID string) (*dto.NotificationResponse, error)
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (*dto.AffectedResponse, error)
	Delete(ctx context.Context, id, userID, role string) error
	DeleteRead(ctx context.Context, userID string) (*dto.AffectedResponse, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *notificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest, callerID string) (*dto.NotificationResponse, error) {
	if req.UserID != nil {
		if _, err := s.repo.User.GetByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetUserNotFound
			}
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	n := &model.Notification{
		UserID:   req.UserID,
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Priority: priority,
	}
	n.CreatedBy = optionalID(callerID)

	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("创建通知失败", zap.Error(err))
		return nil, err
	}

	return toNotificationResponse(n), nil
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, error) {
	list, err := s.repo.Notification.ListForUser(ctx, userID, req.UnreadOnly)
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toNotificationResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── UnreadCount ──────────────────────

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error) {
	count, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

// ────────────────────── MarkRead ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if _, err := s.visible(ctx, id, userID); err != nil {
		return err
	}

	if err := s.repo.Notification.MarkRead(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── MarkAllRead ──────────────────────

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (*dto.AffectedResponse, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.AffectedResponse{Affected: n}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *notificationService) Delete(ctx context.Context, id, userID, role string) error {
	n, err := s.visible(ctx, id, userID)
	if err != nil {
		return err
	}

	// 广播通知仅管理员可删除
	if n.IsBroadcast() && role != model.RoleAdmin {
		return ErrNoPermission
	}

	if err := s.repo.Notification.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── DeleteRead ──────────────────────

func (s *notificationService) DeleteRead(ctx context.Context, userID string) (*dto.AffectedResponse, error) {
	n, err := s.repo.Notification.DeleteRead(ctx, userID)
	if err != nil {
		s.logger.Error("删除已读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.AffectedResponse{Affected: n}, nil
}

// visible 查询通知并校验对当前用户可见；不可见按不存在处理
func (s *notificationService) visible(ctx context.Context, id, userID string) (*model.Notification, error) {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !n.IsBroadcast() && *n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:        n.NotificationID,
		UserID:    n.UserID,
		Broadcast: n.IsBroadcast(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		IsRead:    n.IsRead,
		CreatedAt: formatTime(n.CreatedAt),
	}
}
