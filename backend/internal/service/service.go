package service

import (
	"go.uber.org/zap"

	"sga-horarios/backend/config"
	"sga-horarios/backend/internal/repository"
	"sga-horarios/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Faculty      FacultyService
	Subject      SubjectService
	Notification NotificationService
	Schedule     ScheduleService
	Export       ExportService
	Preference   PreferenceService
}

// NewService 创建 Service 聚合
// blacklist 可为 nil（Redis 未启用时），source 为课表文档来源
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	source ScheduleLoader,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Faculty:      NewFacultyService(repo, logger),
		Subject:      NewSubjectService(repo, logger),
		Notification: NewNotificationService(repo, logger),
		Schedule:     NewScheduleService(repo, source, logger),
		Export:       NewExportService(repo, cfg.Schedule.Timezone, logger),
		Preference:   NewPreferenceService(repo, logger),
	}
}
