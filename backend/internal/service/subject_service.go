package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
)

var (
	ErrSubjectNotFound   = errors.New("科目不存在")
	ErrSubjectCodeExists = errors.New("科目编码已存在")
)

// SubjectService 科目目录业务接口
type SubjectService interface {
	Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error)
	List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	Delete(ctx context.Context, id, callerID string) error
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCodeFree(ctx, code, ""); err != nil {
		return nil, err
	}

	faculty, err := s.getFaculty(ctx, req.FacultyID)
	if err != nil {
		return nil, err
	}

	subject := &model.CatalogSubject{
		Code:      code,
		Name:      strings.TrimSpace(req.Name),
		Credits:   req.Credits,
		FacultyID: faculty.FacultyID,
		Faculty:   faculty,
	}
	subject.CreatedBy = optionalID(callerID)

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}

	return toSubjectResponse(subject), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *subjectService) GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

// ────────────────────── List ──────────────────────

func (s *subjectService) List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx, req.FacultyID)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, *toSubjectResponse(&subjects[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *subjectService) Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if err := s.ensureCodeFree(ctx, code, id); err != nil {
			return nil, err
		}
		subject.Code = code
	}
	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Credits != nil {
		subject.Credits = *req.Credits
	}
	if req.FacultyID != nil && *req.FacultyID != subject.FacultyID {
		faculty, err := s.getFaculty(ctx, *req.FacultyID)
		if err != nil {
			return nil, err
		}
		subject.FacultyID = faculty.FacultyID
		subject.Faculty = faculty
	}
	subject.UpdatedBy = optionalID(callerID)

	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		s.logger.Error("更新科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSubjectResponse(subject), nil
}

// ────────────────────── Delete ──────────────────────

func (s *subjectService) Delete(ctx context.Context, id, callerID string) error {
	if err := s.repo.Subject.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("删除科目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部方法 ──

func (s *subjectService) get(ctx context.Context, id string) (*model.CatalogSubject, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return subject, nil
}

func (s *subjectService) getFaculty(ctx context.Context, id string) (*model.Faculty, error) {
	faculty, err := s.repo.Faculty.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacultyNotFound
		}
		s.logger.Error("查询学院失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return faculty, nil
}

func (s *subjectService) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.Subject.GetByCode(ctx, code)
	if err == nil {
		if existing.SubjectID != selfID {
			return ErrSubjectCodeExists
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询科目失败", zap.Error(err))
		return err
	}
	return nil
}

func toSubjectResponse(sub *model.CatalogSubject) *dto.SubjectResponse {
	resp := &dto.SubjectResponse{
		ID:        sub.SubjectID,
		Code:      sub.Code,
		Name:      sub.Name,
		Credits:   sub.Credits,
		FacultyID: sub.FacultyID,
		Version:   sub.Version,
	}
	if sub.Faculty != nil {
		resp.FacultyName = sub.Faculty.Name
	}
	return resp
}
