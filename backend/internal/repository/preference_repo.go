package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sga-horarios/backend/internal/model"
)

// PreferenceRepository 教师偏好与不可用时间数据访问接口
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*model.TeacherPreference, error)
	// GetByInstructor 按账号关联的课表教师编号查询
	GetByInstructor(ctx context.Context, instructorID int) (*model.TeacherPreference, error)
	// Save 不存在时插入，存在时覆盖偏好字段
	Save(ctx context.Context, pref *model.TeacherPreference) error

	ListUnavailable(ctx context.Context, userID string) ([]model.UnavailableTime, error)
	ListUnavailableByInstructor(ctx context.Context, instructorID int) ([]model.UnavailableTime, error)
	GetUnavailable(ctx context.Context, id string) (*model.UnavailableTime, error)
	CreateUnavailable(ctx context.Context, ut *model.UnavailableTime) error
	UpdateUnavailable(ctx context.Context, ut *model.UnavailableTime) error
	DeleteUnavailable(ctx context.Context, id, deletedBy string) error
}

type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

// usersOfInstructor 关联到指定教师编号的账号 ID 子查询（已删除账号除外）
func (r *preferenceRepo) usersOfInstructor(ctx context.Context, instructorID int) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("user_id").
		Where("instructor_id = ?", instructorID)
}

func (r *preferenceRepo) Get(ctx context.Context, userID string) (*model.TeacherPreference, error) {
	var pref model.TeacherPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepo) GetByInstructor(ctx context.Context, instructorID int) (*model.TeacherPreference, error) {
	var pref model.TeacherPreference
	err := r.db.WithContext(ctx).
		Where("user_id IN (?)", r.usersOfInstructor(ctx, instructorID)).
		Order("updated_at DESC").
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepo) Save(ctx context.Context, pref *model.TeacherPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"preferred_subjects", "shift", "preferred_days", "updated_at", "updated_by",
			}),
		}).
		Create(pref).Error
}

func (r *preferenceRepo) ListUnavailable(ctx context.Context, userID string) ([]model.UnavailableTime, error) {
	var times []model.UnavailableTime
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time ASC").
		Find(&times).Error
	sortByWeekday(times)
	return times, err
}

func (r *preferenceRepo) ListUnavailableByInstructor(ctx context.Context, instructorID int) ([]model.UnavailableTime, error) {
	var times []model.UnavailableTime
	err := r.db.WithContext(ctx).
		Where("user_id IN (?)", r.usersOfInstructor(ctx, instructorID)).
		Order("start_time ASC").
		Find(&times).Error
	sortByWeekday(times)
	return times, err
}

// sortByWeekday 星期以名称存储，按周一到周日重新排序（同一天内保持开始时间顺序）
func sortByWeekday(times []model.UnavailableTime) {
	sort.SliceStable(times, func(i, j int) bool {
		return times[i].Day.Index() < times[j].Day.Index()
	})
}

func (r *preferenceRepo) GetUnavailable(ctx context.Context, id string) (*model.UnavailableTime, error) {
	var ut model.UnavailableTime
	err := r.db.WithContext(ctx).Where("unavailable_time_id = ?", id).First(&ut).Error
	if err != nil {
		return nil, err
	}
	return &ut, nil
}

func (r *preferenceRepo) CreateUnavailable(ctx context.Context, ut *model.UnavailableTime) error {
	return r.db.WithContext(ctx).Create(ut).Error
}

func (r *preferenceRepo) UpdateUnavailable(ctx context.Context, ut *model.UnavailableTime) error {
	result := r.db.WithContext(ctx).
		Model(&model.UnavailableTime{}).
		Where("unavailable_time_id = ?", ut.UnavailableTimeID).
		Updates(map[string]interface{}{
			"day":        ut.Day,
			"start_time": ut.StartTime,
			"end_time":   ut.EndTime,
			"reason":     ut.Reason,
			"updated_by": ut.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *preferenceRepo) DeleteUnavailable(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UnavailableTime{}).
			Where("unavailable_time_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("unavailable_time_id = ?", id).Delete(&model.UnavailableTime{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
