package repository

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sga-horarios/backend/internal/model"
	pkgerrors "sga-horarios/backend/pkg/errors"
)

// ScheduleRepository 课表工作副本数据访问接口
// 条目按 position 保持文档顺序，时段按 position 保持条目内顺序
type ScheduleRepository interface {
	GetMetadata(ctx context.Context) (*model.ScheduleMetadataRecord, error)
	SaveMetadata(ctx context.Context, meta *model.ScheduleMetadataRecord) error

	ListEntries(ctx context.Context) ([]model.ScheduleEntryRecord, error)
	ListByInstructor(ctx context.Context, instructorID int) ([]model.ScheduleEntryRecord, error)
	ListByRoom(ctx context.Context, roomCode string) ([]model.ScheduleEntryRecord, error)
	GetEntry(ctx context.Context, id string) (*model.ScheduleEntryRecord, error)
	CreateEntry(ctx context.Context, rec *model.ScheduleEntryRecord) error
	UpdateEntry(ctx context.Context, rec *model.ScheduleEntryRecord) error
	DeleteEntry(ctx context.Context, id string) error

	// ReplaceAll 在事务中全量替换工作副本：元数据 + 全部条目
	ReplaceAll(ctx context.Context, meta *model.ScheduleMetadataRecord, entries []model.ScheduleEntryRecord) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func orderedSlots(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// ── 元数据 ──

func (r *scheduleRepo) GetMetadata(ctx context.Context) (*model.ScheduleMetadataRecord, error) {
	var meta model.ScheduleMetadataRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", model.ScheduleMetadataID).
		First(&meta).Error
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *scheduleRepo) SaveMetadata(ctx context.Context, meta *model.ScheduleMetadataRecord) error {
	meta.ID = model.ScheduleMetadataID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"institution", "faculty", "program", "period", "doc_updated_at", "updated_at", "updated_by"}),
		}).
		Create(meta).Error
}

// ── 条目 ──

func (r *scheduleRepo) ListEntries(ctx context.Context) ([]model.ScheduleEntryRecord, error) {
	var list []model.ScheduleEntryRecord
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Order("position ASC").
		Find(&list).Error
	return list, err
}

func (r *scheduleRepo) ListByInstructor(ctx context.Context, instructorID int) ([]model.ScheduleEntryRecord, error) {
	var list []model.ScheduleEntryRecord
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Where("instructor_id = ?", instructorID).
		Order("position ASC").
		Find(&list).Error
	return list, err
}

func (r *scheduleRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.ScheduleEntryRecord, error) {
	var list []model.ScheduleEntryRecord
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Where("LOWER(room_code) = LOWER(?)", strings.TrimSpace(roomCode)).
		Order("position ASC").
		Find(&list).Error
	return list, err
}

func (r *scheduleRepo) GetEntry(ctx context.Context, id string) (*model.ScheduleEntryRecord, error) {
	var rec model.ScheduleEntryRecord
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Where("entry_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateEntry 追加到文档末尾
func (r *scheduleRepo) CreateEntry(ctx context.Context, rec *model.ScheduleEntryRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos sql.NullInt64
		if err := tx.Model(&model.ScheduleEntryRecord{}).
			Select("MAX(position)").
			Row().Scan(&maxPos); err != nil {
			return err
		}
		rec.Position = 0
		if maxPos.Valid {
			rec.Position = int(maxPos.Int64) + 1
		}
		if rec.Version == 0 {
			rec.Version = 1
		}
		return tx.Create(rec).Error
	})
}

// UpdateEntry 乐观锁更新条目字段并替换全部时段，位置保持不变
func (r *scheduleRepo) UpdateEntry(ctx context.Context, rec *model.ScheduleEntryRecord) error {
	oldVersion := rec.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduleEntryRecord{}).
			Where("entry_id = ? AND version = ?", rec.EntryID, oldVersion).
			Updates(map[string]interface{}{
				"subject_code":     rec.SubjectCode,
				"subject_name":     rec.SubjectName,
				"subject_credits":  rec.SubjectCredits,
				"level":            rec.Level,
				"instructor_id":    rec.InstructorID,
				"instructor_name":  rec.InstructorName,
				"instructor_email": rec.InstructorEmail,
				"room_code":        rec.RoomCode,
				"room_building":    rec.RoomBuilding,
				"room_capacity":    rec.RoomCapacity,
				"room_type":        rec.RoomType,
				"enrolled_count":   rec.EnrolledCount,
				"status":           rec.Status,
				"updated_by":       rec.UpdatedBy,
				"version":          oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		if err := tx.Where("entry_id = ?", rec.EntryID).
			Delete(&model.TimeSlotRecord{}).Error; err != nil {
			return err
		}
		for i := range rec.Slots {
			rec.Slots[i].SlotID = 0
			rec.Slots[i].EntryID = rec.EntryID
			rec.Slots[i].Position = i
		}
		if len(rec.Slots) > 0 {
			if err := tx.Create(&rec.Slots).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	rec.Version = oldVersion + 1
	return nil
}

func (r *scheduleRepo) DeleteEntry(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).
			Delete(&model.TimeSlotRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("entry_id = ?", id).Delete(&model.ScheduleEntryRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ── 全量替换 ──

func (r *scheduleRepo) ReplaceAll(ctx context.Context, meta *model.ScheduleMetadataRecord, entries []model.ScheduleEntryRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 硬删除旧工作副本（替换场景，无需保留）
		if err := tx.Where("1 = 1").Delete(&model.TimeSlotRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&model.ScheduleEntryRecord{}).Error; err != nil {
			return err
		}

		if err := NewScheduleRepo(tx).SaveMetadata(ctx, meta); err != nil {
			return err
		}

		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
