package dto

import "time"

// UpdatePreferenceRequest 保存授课偏好（整体覆盖）
type UpdatePreferenceRequest struct {
	PreferredSubjects []string `json:"preferred_subjects" binding:"omitempty,max=50,dive,required,max=30"`
	Shift             string   `json:"shift" binding:"omitempty,oneof=manana tarde mixto"`
	PreferredDays     []string `json:"preferred_days" binding:"omitempty,max=7,dive,required"`
}

// UnavailableTimeRequest 添加或修改不可用时间
type UnavailableTimeRequest struct {
	Day       string `json:"day" binding:"required"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
	Reason    string `json:"reason" binding:"omitempty,max=200"`
}

// UnavailableTimeResponse 不可用时间响应
type UnavailableTimeResponse struct {
	ID        string `json:"id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

// PreferenceSummary 偏好摘要
type PreferenceSummary struct {
	SubjectCount int    `json:"subject_count"`
	Shift        string `json:"shift"`
	DayCount     int    `json:"day_count"`
}

// PreferenceResponse 教师偏好与不可用时间
type PreferenceResponse struct {
	UserID            string                    `json:"user_id"`
	InstructorID      *int                      `json:"instructor_id,omitempty"`
	PreferredSubjects []string                  `json:"preferred_subjects"`
	Shift             string                    `json:"shift"`
	PreferredDays     []string                  `json:"preferred_days"`
	Unavailable       []UnavailableTimeResponse `json:"unavailable"`
	Summary           PreferenceSummary         `json:"summary"`
	UpdatedAt         *time.Time                `json:"updated_at,omitempty"`
}
