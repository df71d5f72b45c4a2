package model

import "gorm.io/gorm"

// Faculty 学院表，对应 faculties
type Faculty struct {
	FacultyID string `gorm:"type:uuid;primaryKey"                   json:"faculty_id"`
	Name      string `gorm:"type:varchar(150);not null;uniqueIndex" json:"name"`
	VersionedModel

	// 关联
	Careers []Career `gorm:"foreignKey:FacultyID;references:FacultyID" json:"careers"`
}

// TableName 指定表名
func (Faculty) TableName() string { return "faculties" }

// BeforeCreate 生成主键
func (f *Faculty) BeforeCreate(_ *gorm.DB) error {
	ensureID(&f.FacultyID)
	return nil
}

// Career 专业表，对应 careers（隶属于学院）
type Career struct {
	CareerID  string `gorm:"type:uuid;primaryKey"       json:"career_id"`
	FacultyID string `gorm:"type:uuid;not null;index"   json:"faculty_id"`
	Name      string `gorm:"type:varchar(150);not null" json:"name"`
	BaseModel
}

// TableName 指定表名
func (Career) TableName() string { return "careers" }

// BeforeCreate 生成主键
func (c *Career) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CareerID)
	return nil
}

// CatalogSubject 科目目录表，对应 subjects
// 与课表文档中的 materia 相互独立，由管理员维护
type CatalogSubject struct {
	SubjectID string `gorm:"type:uuid;primaryKey"                  json:"subject_id"`
	Code      string `gorm:"type:varchar(30);not null;uniqueIndex" json:"code"`
	Name      string `gorm:"type:varchar(150);not null"            json:"name"`
	Credits   int    `gorm:"type:smallint;not null;default:0"      json:"credits"`
	FacultyID string `gorm:"type:uuid;not null;index"              json:"faculty_id"`
	VersionedModel

	// 关联
	Faculty *Faculty `gorm:"foreignKey:FacultyID;references:FacultyID" json:"faculty,omitempty"`
}

// TableName 指定表名
func (CatalogSubject) TableName() string { return "subjects" }

// BeforeCreate 生成主键
func (s *CatalogSubject) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.SubjectID)
	return nil
}
