package repository

import (
	"context"

	"gorm.io/gorm"

	"sga-horarios/backend/internal/model"
	pkgerrors "sga-horarios/backend/pkg/errors"
)

// FacultyRepository 学院数据访问接口
type FacultyRepository interface {
	Create(ctx context.Context, faculty *model.Faculty) error
	GetByID(ctx context.Context, id string) (*model.Faculty, error)
	GetByName(ctx context.Context, name string) (*model.Faculty, error)
	List(ctx context.Context) ([]model.Faculty, error)
	// Update 更新学院名称并全量替换专业列表
	Update(ctx context.Context, faculty *model.Faculty) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type facultyRepo struct {
	db *gorm.DB
}

// NewFacultyRepo 创建 FacultyRepository 实例
func NewFacultyRepo(db *gorm.DB) FacultyRepository {
	return &facultyRepo{db: db}
}

func (r *facultyRepo) Create(ctx context.Context, faculty *model.Faculty) error {
	return r.db.WithContext(ctx).Create(faculty).Error
}

func (r *facultyRepo) GetByID(ctx context.Context, id string) (*model.Faculty, error) {
	var faculty model.Faculty
	err := r.db.WithContext(ctx).
		Preload("Careers", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("faculty_id = ?", id).
		First(&faculty).Error
	if err != nil {
		return nil, err
	}
	return &faculty, nil
}

func (r *facultyRepo) GetByName(ctx context.Context, name string) (*model.Faculty, error) {
	var faculty model.Faculty
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&faculty).Error
	if err != nil {
		return nil, err
	}
	return &faculty, nil
}

func (r *facultyRepo) List(ctx context.Context) ([]model.Faculty, error) {
	var faculties []model.Faculty
	err := r.db.WithContext(ctx).
		Preload("Careers", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("name ASC").
		Find(&faculties).Error
	return faculties, err
}

func (r *facultyRepo) Update(ctx context.Context, faculty *model.Faculty) error {
	oldVersion := faculty.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Faculty{}).
			Where("faculty_id = ? AND version = ?", faculty.FacultyID, oldVersion).
			Updates(map[string]interface{}{
				"name":       faculty.Name,
				"updated_by": faculty.UpdatedBy,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		// 专业列表整体替换
		if err := tx.Where("faculty_id = ?", faculty.FacultyID).
			Delete(&model.Career{}).Error; err != nil {
			return err
		}
		for i := range faculty.Careers {
			faculty.Careers[i].CareerID = ""
			faculty.Careers[i].FacultyID = faculty.FacultyID
		}
		if len(faculty.Careers) > 0 {
			if err := tx.Create(&faculty.Careers).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	faculty.Version = oldVersion + 1
	return nil
}

func (r *facultyRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Faculty{}).
			Where("faculty_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("faculty_id = ?", id).Delete(&model.Faculty{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
