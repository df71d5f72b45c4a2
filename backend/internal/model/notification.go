package model

import "gorm.io/gorm"

// 通知类型
const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationSuccess = "success"
	NotificationError   = "error"
)

// 通知优先级
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Notification 通知消息表，对应 notifications
// UserID 为空表示广播给所有用户
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey"                      json:"notification_id"`
	UserID         *string `gorm:"type:uuid;index"                           json:"user_id,omitempty"`
	Type           string  `gorm:"type:varchar(20);not null"                 json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                json:"title"`
	Message        string  `gorm:"type:text;not null"                        json:"message"`
	Priority       string  `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	IsRead         bool    `gorm:"not null;default:false"                    json:"is_read"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// BeforeCreate 生成主键
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	ensureID(&n.NotificationID)
	return nil
}

// IsBroadcast 是否为广播通知
func (n *Notification) IsBroadcast() bool { return n.UserID == nil }
