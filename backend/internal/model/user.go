package model

import "gorm.io/gorm"

// 用户角色
const (
	RoleStudent = "estudiante"
	RoleTeacher = "docente"
	RoleAdmin   = "administrador"
)

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User 用户表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                            json:"user_id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"           json:"username"`
	FullName     string `gorm:"type:varchar(100);not null"                      json:"full_name"`
	Email        string `gorm:"type:varchar(255);not null"                      json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                      json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'estudiante'"  json:"role"`
	Department   string `gorm:"type:varchar(100)"                               json:"department,omitempty"`
	Career       string `gorm:"type:varchar(100)"                               json:"career,omitempty"`
	Semester     int    `gorm:"type:smallint;not null;default:0"                json:"semester,omitempty"`
	// InstructorID 对应课表文档中的 profesor/id，仅 docente 使用
	InstructorID *int `gorm:"type:integer" json:"instructor_id,omitempty"`
	Active       bool `gorm:"not null;default:true" json:"active"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}
