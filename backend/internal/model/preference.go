package model

import "gorm.io/gorm"

// 偏好授课时段
const (
	ShiftMorning   = "manana"
	ShiftAfternoon = "tarde"
	ShiftMixed     = "mixto"
)

// ValidShift 判断偏好时段是否合法
func ValidShift(shift string) bool {
	switch shift {
	case ShiftMorning, ShiftAfternoon, ShiftMixed:
		return true
	}
	return false
}

// ShiftBounds 偏好时段对应的分钟区间 [start, end)
// mixto 不限制时段，ok 为 false
func ShiftBounds(shift string) (start, end int, ok bool) {
	switch shift {
	case ShiftMorning:
		return 7 * 60, 13 * 60, true
	case ShiftAfternoon:
		return 13 * 60, 19 * 60, true
	}
	return 0, 0, false
}

// TeacherPreference 教师授课偏好表，对应 teacher_preferences，每个账号一行
type TeacherPreference struct {
	UserID            string    `gorm:"type:uuid;primaryKey"                       json:"user_id"`
	// PreferredSubjects 科目目录中的科目编码
	PreferredSubjects []string  `gorm:"type:text;serializer:json"                  json:"preferred_subjects"`
	Shift             string    `gorm:"type:varchar(10);not null;default:'mixto'" json:"shift"`
	PreferredDays     []Weekday `gorm:"type:text;serializer:json"                  json:"preferred_days"`
	BaseModel
}

// TableName 指定表名
func (TeacherPreference) TableName() string { return "teacher_preferences" }

// PrefersDay 未设置偏好星期时视为全部可接受
func (p *TeacherPreference) PrefersDay(day Weekday) bool {
	if len(p.PreferredDays) == 0 {
		return true
	}
	for _, d := range p.PreferredDays {
		if d == day {
			return true
		}
	}
	return false
}

// UnavailableTime 教师不可用时间表，对应 unavailable_times
// 每周重复，星期与课表文档使用同一组取值
type UnavailableTime struct {
	UnavailableTimeID string  `gorm:"type:uuid;primaryKey"       json:"unavailable_time_id"`
	UserID            string  `gorm:"type:uuid;not null;index"   json:"user_id"`
	Day               Weekday `gorm:"type:varchar(12);not null" json:"day"`
	StartTime         string  `gorm:"type:varchar(5);not null"  json:"start_time"`
	EndTime           string  `gorm:"type:varchar(5);not null"  json:"end_time"`
	Reason            string  `gorm:"type:varchar(200)"         json:"reason,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (UnavailableTime) TableName() string { return "unavailable_times" }

// BeforeCreate 生成主键
func (u *UnavailableTime) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UnavailableTimeID)
	return nil
}

// Slot 以课表时段形式表示，用于重叠判断
func (u *UnavailableTime) Slot() TimeSlot {
	s := TimeSlot{Day: u.Day, StartTime: u.StartTime, EndTime: u.EndTime}
	s.Normalize()
	return s
}
