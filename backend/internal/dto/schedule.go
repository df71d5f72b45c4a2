package dto

import "sga-horarios/backend/internal/model"

// ── 课表模块 DTO ──

// TimeSlotInput 时段输入
type TimeSlotInput struct {
	Day       string `json:"day"        binding:"required"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time"   binding:"required,hhmm"`
}

// SubjectInput 科目输入
type SubjectInput struct {
	Code    string `json:"code"    binding:"required,max=30"`
	Name    string `json:"name"    binding:"required,max=200"`
	Credits int    `json:"credits" binding:"min=0,max=20"`
	Level   string `json:"level"   binding:"max=50"`
}

// InstructorInput 教师输入
type InstructorInput struct {
	ID    int    `json:"id"    binding:"min=0"`
	Name  string `json:"name"  binding:"required,max=150"`
	Email string `json:"email" binding:"omitempty,email"`
}

// RoomInput 教室输入
type RoomInput struct {
	Code     string `json:"code"     binding:"required,max=30"`
	Building string `json:"building" binding:"max=150"`
	Capacity int    `json:"capacity" binding:"min=0"`
	Type     string `json:"type"     binding:"max=50"`
}

// ScheduleEntryRequest 新建课表条目请求
type ScheduleEntryRequest struct {
	ID            string          `json:"id"             binding:"required,max=64"`
	Subject       SubjectInput    `json:"subject"`
	Instructor    InstructorInput `json:"instructor"`
	Room          RoomInput       `json:"room"`
	Slots         []TimeSlotInput `json:"slots"          binding:"required,min=1,dive"`
	EnrolledCount int             `json:"enrolled_count" binding:"min=0"`
	Status        string          `json:"status"         binding:"omitempty,oneof=activo inactivo"`
}

// UpdateScheduleEntryRequest 更新课表条目请求（全量替换）
// Version 提供时用于乐观锁校验
type UpdateScheduleEntryRequest struct {
	Subject       SubjectInput    `json:"subject"`
	Instructor    InstructorInput `json:"instructor"`
	Room          RoomInput       `json:"room"`
	Slots         []TimeSlotInput `json:"slots"          binding:"required,min=1,dive"`
	EnrolledCount int             `json:"enrolled_count" binding:"min=0"`
	Status        string          `json:"status"         binding:"omitempty,oneof=activo inactivo"`
	Version       *int            `json:"version"        binding:"omitempty,min=1"`
}

// ScheduleEntryListRequest 课表条目筛选参数
type ScheduleEntryListRequest struct {
	Day          string `form:"day"`
	Level        string `form:"level"`
	InstructorID *int   `form:"instructor_id" binding:"omitempty,min=0"`
	RoomCode     string `form:"room_code"`
	Status       string `form:"status"        binding:"omitempty,oneof=activo inactivo"`
	Q            string `form:"q"             binding:"omitempty,max=100"`
}

// UpdateMetadataRequest 更新课表元数据请求
type UpdateMetadataRequest struct {
	Institution *string `json:"institution" binding:"omitempty,max=200"`
	Faculty     *string `json:"faculty"     binding:"omitempty,max=200"`
	Program     *string `json:"program"     binding:"omitempty,max=200"`
	Period      *string `json:"period"      binding:"omitempty,max=50"`
	UpdatedAt   *string `json:"updated_at"  binding:"omitempty,max=50"`
}

// ConflictResponse 冲突信息
type ConflictResponse struct {
	EntryA   string `json:"entry_a"`
	EntryB   string `json:"entry_b"`
	SubjectA string `json:"subject_a"`
	SubjectB string `json:"subject_b"`
	Day      string `json:"day"`
	RangeA   string `json:"range_a"`
	RangeB   string `json:"range_b"`
	Resource string `json:"resource,omitempty"` // instructor | room | instructor+room
	Room     string `json:"room,omitempty"`
	Message  string `json:"message"`
}

// ConflictGroupResponse 按资源分组的冲突
type ConflictGroupResponse struct {
	Resource  string             `json:"resource"` // instructor | room
	Key       string             `json:"key"`
	Label     string             `json:"label"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

// ScheduleEntryResponse 课表条目响应（写操作附带冲突警告）
type ScheduleEntryResponse struct {
	Entry    model.ScheduleEntry `json:"entry"`
	Version  int                 `json:"version"`
	Warnings []ConflictResponse  `json:"warnings,omitempty"`
	// Notices 与教师不可用时间或偏好不符的提示，不影响写入
	Notices  []string            `json:"notices,omitempty"`
}

// EntryDetailResponse 课表条目详情
type EntryDetailResponse struct {
	Entry            model.ScheduleEntry `json:"entry"`
	Version          int                 `json:"version"`
	WeeklyHours      float64             `json:"weekly_hours"`
	OccupancyPercent float64             `json:"occupancy_percent"`
}

// ValidateEntryResponse 条目冲突预检结果
type ValidateEntryResponse struct {
	Valid     bool               `json:"valid"`
	Conflicts []ConflictResponse `json:"conflicts"`
	Notices   []string           `json:"notices,omitempty"`
}

// ImportScheduleResponse 导入结果
type ImportScheduleResponse struct {
	Entries   int                     `json:"entries"`
	Period    string                  `json:"period"`
	Conflicts []ConflictGroupResponse `json:"conflicts"`
}

// ScheduleSystemResponse 完整课表
type ScheduleSystemResponse struct {
	Metadata model.ScheduleMetadata `json:"metadata"`
	Entries  []model.ScheduleEntry  `json:"entries"`
}

// InstructorLoad 教师授课统计
type InstructorLoad struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Courses     int     `json:"courses"`
	WeeklyHours float64 `json:"weekly_hours"`
}

// StatisticsResponse 课表统计
type StatisticsResponse struct {
	TotalCourses     int              `json:"total_courses"`
	ActiveCourses    int              `json:"active_courses"`
	TotalCredits     int              `json:"total_credits"`
	WeeklyHours      float64          `json:"weekly_hours"`
	TotalStudents    int              `json:"total_students"`
	AverageOccupancy float64          `json:"average_occupancy"`
	ByLevel          map[string]int   `json:"by_level"`
	ByInstructor     []InstructorLoad `json:"by_instructor"`
}

// CatalogsResponse 课表中出现的层级、教师与教室
type CatalogsResponse struct {
	Levels      []string           `json:"levels"`
	Instructors []model.Instructor `json:"instructors"`
	Rooms       []model.Room       `json:"rooms"`
}

// MatrixCell 周视图单元格中的一门课程
type MatrixCell struct {
	EntryID        string `json:"entry_id"`
	SubjectCode    string `json:"subject_code"`
	SubjectName    string `json:"subject_name"`
	InstructorName string `json:"instructor_name"`
	RoomCode       string `json:"room_code"`
}

// WeeklyMatrixResponse 周视图：星期 → "HH:MM-HH:MM" → 课程
type WeeklyMatrixResponse struct {
	Days   []string                           `json:"days"`
	Ranges []string                           `json:"ranges"`
	Matrix map[string]map[string][]MatrixCell `json:"matrix"`
}
