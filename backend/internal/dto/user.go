package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=estudiante docente administrador"`
}

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Username     string `json:"username"      binding:"required,min=3,max=50,alphanum"`
	FullName     string `json:"full_name"     binding:"required,min=2,max=100"`
	Email        string `json:"email"         binding:"required,email"`
	Password     string `json:"password"      binding:"required,min=8,max=64"`
	Role         string `json:"role"          binding:"required,oneof=estudiante docente administrador"`
	Department   string `json:"department"    binding:"omitempty,max=100"`
	Career       string `json:"career"        binding:"omitempty,max=100"`
	Semester     int    `json:"semester"      binding:"omitempty,min=1,max=12"`
	InstructorID *int   `json:"instructor_id" binding:"omitempty,min=1"`
}

// UpdateUserRequest 更新用户信息请求
// Role / Active / InstructorID 仅管理员可修改
type UpdateUserRequest struct {
	FullName     *string `json:"full_name"     binding:"omitempty,min=2,max=100"`
	Email        *string `json:"email"         binding:"omitempty,email"`
	Department   *string `json:"department"    binding:"omitempty,max=100"`
	Career       *string `json:"career"        binding:"omitempty,max=100"`
	Semester     *int    `json:"semester"      binding:"omitempty,min=1,max=12"`
	InstructorID *int    `json:"instructor_id" binding:"omitempty,min=1"`
	Role         *string `json:"role"          binding:"omitempty,oneof=estudiante docente administrador"`
	Active       *bool   `json:"active"`
}
