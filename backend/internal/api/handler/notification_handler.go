package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/service"
	"sga-horarios/backend/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListNotifications 当前用户可见的通知（本人 + 广播）
// GET /api/v1/notifications?unread=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// UnreadCount 未读数量
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, count)
}

// CreateNotification 发送通知（管理员）
// POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	n, err := h.notificationSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.Created(c, n)
}

// MarkRead 标记已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.notificationSvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// DeleteNotification 删除通知；广播通知仅管理员可删除
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.Delete(c.Request.Context(), c.Param("id"), userID, role); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeleteRead 清除本人已读通知
// DELETE /api/v1/notifications/read
func (h *NotificationHandler) DeleteRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.notificationSvc.DeleteRead(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.NotFound(c, 15001, "通知不存在")
	case errors.Is(err, service.ErrTargetUserNotFound):
		response.BadRequest(c, 15002, "通知目标用户不存在")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 15003, "无权删除该通知")
	default:
		response.InternalError(c)
	}
}
