package repository

import (
	"context"

	"gorm.io/gorm"

	"sga-horarios/backend/internal/model"
	pkgerrors "sga-horarios/backend/pkg/errors"
)

// SubjectRepository 科目目录数据访问接口
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.CatalogSubject) error
	GetByID(ctx context.Context, id string) (*model.CatalogSubject, error)
	GetByCode(ctx context.Context, code string) (*model.CatalogSubject, error)
	// List facultyID 为空时返回全部科目
	List(ctx context.Context, facultyID string) ([]model.CatalogSubject, error)
	CountByFaculty(ctx context.Context, facultyID string) (int64, error)
	Update(ctx context.Context, subject *model.CatalogSubject) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.CatalogSubject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, id string) (*model.CatalogSubject, error) {
	var subject model.CatalogSubject
	err := r.db.WithContext(ctx).
		Preload("Faculty").
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByCode(ctx context.Context, code string) (*model.CatalogSubject, error) {
	var subject model.CatalogSubject
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) List(ctx context.Context, facultyID string) ([]model.CatalogSubject, error) {
	var subjects []model.CatalogSubject
	db := r.db.WithContext(ctx)
	if facultyID != "" {
		db = db.Where("faculty_id = ?", facultyID)
	}
	err := db.Preload("Faculty").
		Order("code ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *subjectRepo) CountByFaculty(ctx context.Context, facultyID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.CatalogSubject{}).
		Where("faculty_id = ?", facultyID).
		Count(&n).Error
	return n, err
}

func (r *subjectRepo) Update(ctx context.Context, subject *model.CatalogSubject) error {
	oldVersion := subject.Version
	result := r.db.WithContext(ctx).
		Model(&model.CatalogSubject{}).
		Where("subject_id = ? AND version = ?", subject.SubjectID, oldVersion).
		Updates(map[string]interface{}{
			"code":       subject.Code,
			"name":       subject.Name,
			"credits":    subject.Credits,
			"faculty_id": subject.FacultyID,
			"updated_by": subject.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	subject.Version = oldVersion + 1
	return nil
}

func (r *subjectRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CatalogSubject{}).
			Where("subject_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("subject_id = ?", id).Delete(&model.CatalogSubject{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
