package dto

// ── 通知模块 DTO ──

// CreateNotificationRequest 创建通知请求；UserID 为空表示广播
type CreateNotificationRequest struct {
	UserID   *string `json:"user_id"  binding:"omitempty,uuid"`
	Type     string  `json:"type"     binding:"required,oneof=info warning success error"`
	Title    string  `json:"title"    binding:"required,max=200"`
	Message  string  `json:"message"  binding:"required"`
	Priority string  `json:"priority" binding:"omitempty,oneof=high medium low"`
}

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	UnreadOnly bool `form:"unread"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id,omitempty"`
	Broadcast bool    `json:"broadcast"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Priority  string  `json:"priority"`
	IsRead    bool    `json:"is_read"`
	CreatedAt string  `json:"created_at"`
}

// UnreadCountResponse 未读数量响应
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
