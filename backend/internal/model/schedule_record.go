package model

import "sort"

// ScheduleEntryRecord 课表条目持久化表，对应 schedule_entries
// 科目、教师与教室按文档结构展开存储，Position 保持文档顺序
type ScheduleEntryRecord struct {
	EntryID         string `gorm:"type:varchar(64);primaryKey"                json:"entry_id"`
	Position        int    `gorm:"not null;default:0;index"                   json:"position"`
	SubjectCode     string `gorm:"type:varchar(30);not null;default:''"       json:"subject_code"`
	SubjectName     string `gorm:"type:varchar(200);not null;default:''"      json:"subject_name"`
	SubjectCredits  int    `gorm:"not null;default:0"                         json:"subject_credits"`
	Level           string `gorm:"type:varchar(50);not null;default:'';index" json:"level"`
	InstructorID    int    `gorm:"not null;default:0;index"                   json:"instructor_id"`
	InstructorName  string `gorm:"type:varchar(150);not null;default:''"      json:"instructor_name"`
	InstructorEmail string `gorm:"type:varchar(255);not null;default:''"      json:"instructor_email"`
	RoomCode        string `gorm:"type:varchar(30);not null;default:'';index" json:"room_code"`
	RoomBuilding    string `gorm:"type:varchar(150);not null;default:''"      json:"room_building"`
	RoomCapacity    int    `gorm:"not null;default:0"                         json:"room_capacity"`
	RoomType        string `gorm:"type:varchar(50);not null;default:''"       json:"room_type"`
	EnrolledCount   int    `gorm:"not null;default:0"                         json:"enrolled_count"`
	Status          string `gorm:"type:varchar(10);not null;default:'activo'" json:"status"`
	Version         int    `gorm:"not null;default:1"                         json:"version"`
	BaseModel

	// 关联
	Slots []TimeSlotRecord `gorm:"foreignKey:EntryID;references:EntryID;constraint:OnDelete:CASCADE" json:"slots"`
}

// TableName 指定表名
func (ScheduleEntryRecord) TableName() string { return "schedule_entries" }

// TimeSlotRecord 课表时段表，对应 schedule_slots
type TimeSlotRecord struct {
	SlotID          uint   `gorm:"primaryKey;autoIncrement"     json:"slot_id"`
	EntryID         string `gorm:"type:varchar(64);not null;index" json:"entry_id"`
	Position        int    `gorm:"not null;default:0"           json:"position"`
	Day             string `gorm:"type:varchar(12);not null"    json:"day"`
	StartTime       string `gorm:"type:varchar(5);not null"     json:"start_time"`
	EndTime         string `gorm:"type:varchar(5);not null"     json:"end_time"`
	DurationMinutes int    `gorm:"not null;default:0"           json:"duration_minutes"`
}

// TableName 指定表名
func (TimeSlotRecord) TableName() string { return "schedule_slots" }

// ScheduleMetadataID 元数据单行记录的固定主键
const ScheduleMetadataID = 1

// ScheduleMetadataRecord 课表元数据表，对应 schedule_metadata（单行）
type ScheduleMetadataRecord struct {
	ID          int    `gorm:"primaryKey"                            json:"-"`
	Institution string `gorm:"type:varchar(200);not null;default:''" json:"institution"`
	Faculty     string `gorm:"type:varchar(200);not null;default:''" json:"faculty"`
	Program     string `gorm:"type:varchar(200);not null;default:''" json:"program"`
	Period      string `gorm:"type:varchar(50);not null;default:''"  json:"period"`
	DocUpdated  string `gorm:"column:doc_updated_at;type:varchar(50);not null;default:''" json:"doc_updated_at"`
	BaseModel
}

// TableName 指定表名
func (ScheduleMetadataRecord) TableName() string { return "schedule_metadata" }

// ── 文档模型与持久化模型互转 ──

// NewScheduleEntryRecord 将文档条目转换为持久化记录
func NewScheduleEntryRecord(e *ScheduleEntry, position int) *ScheduleEntryRecord {
	rec := &ScheduleEntryRecord{
		EntryID:         e.ID,
		Position:        position,
		SubjectCode:     e.Subject.Code,
		SubjectName:     e.Subject.Name,
		SubjectCredits:  e.Subject.Credits,
		Level:           e.Subject.Level,
		InstructorID:    e.Instructor.ID,
		InstructorName:  e.Instructor.Name,
		InstructorEmail: e.Instructor.Email,
		RoomCode:        e.Room.Code,
		RoomBuilding:    e.Room.Building,
		RoomCapacity:    e.Room.Capacity,
		RoomType:        e.Room.Type,
		EnrolledCount:   e.EnrolledCount,
		Status:          e.Status,
		Version:         1,
	}
	rec.Slots = make([]TimeSlotRecord, len(e.Slots))
	for i, s := range e.Slots {
		rec.Slots[i] = TimeSlotRecord{
			EntryID:         e.ID,
			Position:        i,
			Day:             string(s.Day),
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationMinutes: s.DurationMinutes,
		}
	}
	return rec
}

// ToEntry 将持久化记录还原为文档条目，时段按 Position 排序
func (r *ScheduleEntryRecord) ToEntry() ScheduleEntry {
	e := ScheduleEntry{
		ID:            r.EntryID,
		Subject:       Subject{Code: r.SubjectCode, Name: r.SubjectName, Credits: r.SubjectCredits, Level: r.Level},
		Instructor:    Instructor{ID: r.InstructorID, Name: r.InstructorName, Email: r.InstructorEmail},
		Room:          Room{Code: r.RoomCode, Building: r.RoomBuilding, Capacity: r.RoomCapacity, Type: r.RoomType},
		EnrolledCount: r.EnrolledCount,
		Status:        r.Status,
		Slots:         make([]TimeSlot, 0, len(r.Slots)),
	}
	slots := make([]TimeSlotRecord, len(r.Slots))
	copy(slots, r.Slots)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Position < slots[j].Position })
	for _, s := range slots {
		e.Slots = append(e.Slots, TimeSlot{
			Day:             Weekday(s.Day),
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationMinutes: s.DurationMinutes,
		})
	}
	return e
}

// NewScheduleMetadataRecord 转换元数据
func NewScheduleMetadataRecord(m ScheduleMetadata) *ScheduleMetadataRecord {
	return &ScheduleMetadataRecord{
		ID:          ScheduleMetadataID,
		Institution: m.Institution,
		Faculty:     m.Faculty,
		Program:     m.Program,
		Period:      m.Period,
		DocUpdated:  m.UpdatedAt,
	}
}

// ToMetadata 还原元数据
func (r *ScheduleMetadataRecord) ToMetadata() ScheduleMetadata {
	return ScheduleMetadata{
		Institution: r.Institution,
		Faculty:     r.Faculty,
		Program:     r.Program,
		Period:      r.Period,
		UpdatedAt:   r.DocUpdated,
	}
}
