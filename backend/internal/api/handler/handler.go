package handler

import (
	"sga-horarios/backend/config"
	"sga-horarios/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Faculty      *FacultyHandler
	Subject      *SubjectHandler
	Notification *NotificationHandler
	Schedule     *ScheduleHandler
	Export       *ExportHandler
	Preference   *PreferenceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Faculty:      NewFacultyHandler(svc.Faculty),
		Subject:      NewSubjectHandler(svc.Subject),
		Notification: NewNotificationHandler(svc.Notification),
		Schedule:     NewScheduleHandler(svc.Schedule, cfg.Server.MaxBodyBytes),
		Export:       NewExportHandler(svc.Export),
		Preference:   NewPreferenceHandler(svc.Preference),
	}
}
