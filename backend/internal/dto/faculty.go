package dto

// ── 学院与科目模块 DTO ──

// CreateFacultyRequest 创建学院请求
type CreateFacultyRequest struct {
	Name    string   `json:"name"    binding:"required,min=2,max=150"`
	Careers []string `json:"careers" binding:"omitempty,dive,required,max=150"`
}

// UpdateFacultyRequest 更新学院请求；Careers 为 nil 时保持不变
type UpdateFacultyRequest struct {
	Name    *string  `json:"name"    binding:"omitempty,min=2,max=150"`
	Careers []string `json:"careers" binding:"omitempty,dive,required,max=150"`
}

// FacultyResponse 学院响应
type FacultyResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Careers []string `json:"careers"`
	Version int      `json:"version"`
}

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Code      string `json:"code"       binding:"required,max=30"`
	Name      string `json:"name"       binding:"required,min=2,max=150"`
	Credits   int    `json:"credits"    binding:"min=0,max=20"`
	FacultyID string `json:"faculty_id" binding:"required,uuid"`
}

// UpdateSubjectRequest 更新科目请求
type UpdateSubjectRequest struct {
	Code      *string `json:"code"       binding:"omitempty,max=30"`
	Name      *string `json:"name"       binding:"omitempty,min=2,max=150"`
	Credits   *int    `json:"credits"    binding:"omitempty,min=0,max=20"`
	FacultyID *string `json:"faculty_id" binding:"omitempty,uuid"`
}

// SubjectListRequest 科目列表查询参数
type SubjectListRequest struct {
	FacultyID string `form:"faculty_id" binding:"omitempty,uuid"`
}

// SubjectResponse 科目响应
type SubjectResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	FacultyID   string `json:"faculty_id"`
	FacultyName string `json:"faculty_name,omitempty"`
	Version     int    `json:"version"`
}
