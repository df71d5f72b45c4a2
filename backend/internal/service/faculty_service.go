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

// ── 学院模块业务错误 ──

var (
	ErrFacultyNotFound   = errors.New("学院不存在")
	ErrFacultyNameExists = errors.New("学院名称已存在")
	ErrFacultyInUse      = errors.New("学院下仍有科目，无法删除")
)

// FacultyService 学院业务接口
type FacultyService interface {
	Create(ctx context.Context, req *dto.CreateFacultyRequest, callerID string) (*dto.FacultyResponse, error)
	GetByID(ctx context.Context, id string) (*dto.FacultyResponse, error)
	List(ctx context.Context) ([]dto.FacultyResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateFacultyRequest, callerID string) (*dto.FacultyResponse, error)
	Delete(ctx context.Context, id, callerID string) error
}

type facultyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFacultyService 创建 FacultyService 实例
func NewFacultyService(repo *repository.Repository, logger *zap.Logger) FacultyService {
	return &facultyService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *facultyService) Create(ctx context.Context, req *dto.CreateFacultyRequest, callerID string) (*dto.FacultyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	faculty := &model.Faculty{
		Name:    name,
		Careers: buildCareers(req.Careers),
	}
	faculty.CreatedBy = optionalID(callerID)

	if err := s.repo.Faculty.Create(ctx, faculty); err != nil {
		s.logger.Error("创建学院失败", zap.Error(err))
		return nil, err
	}

	return toFacultyResponse(faculty), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *facultyService) GetByID(ctx context.Context, id string) (*dto.FacultyResponse, error) {
	faculty, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFacultyResponse(faculty), nil
}

// ────────────────────── List ──────────────────────

func (s *facultyService) List(ctx context.Context) ([]dto.FacultyResponse, error) {
	faculties, err := s.repo.Faculty.List(ctx)
	if err != nil {
		s.logger.Error("列出学院失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.FacultyResponse, 0, len(faculties))
	for i := range faculties {
		result = append(result, *toFacultyResponse(&faculties[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *facultyService) Update(ctx context.Context, id string, req *dto.UpdateFacultyRequest, callerID string) (*dto.FacultyResponse, error) {
	faculty, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		faculty.Name = name
	}
	if req.Careers != nil {
		faculty.Careers = buildCareers(req.Careers)
	}
	faculty.UpdatedBy = optionalID(callerID)

	if err := s.repo.Faculty.Update(ctx, faculty); err != nil {
		s.logger.Error("更新学院失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toFacultyResponse(faculty), nil
}

// ────────────────────── Delete ──────────────────────

func (s *facultyService) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Subject.CountByFaculty(ctx, id)
	if err != nil {
		s.logger.Error("统计学院科目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrFacultyInUse
	}

	if err := s.repo.Faculty.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFacultyNotFound
		}
		s.logger.Error("删除学院失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部方法 ──

func (s *facultyService) get(ctx context.Context, id string) (*model.Faculty, error) {
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

func (s *facultyService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Faculty.GetByName(ctx, name)
	if err == nil {
		if existing.FacultyID != selfID {
			return ErrFacultyNameExists
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学院失败", zap.Error(err))
		return err
	}
	return nil
}

// buildCareers 去除空白与重复项，保持输入顺序
func buildCareers(names []string) []model.Career {
	seen := make(map[string]bool, len(names))
	careers := make([]model.Career, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		careers = append(careers, model.Career{Name: n})
	}
	return careers
}

func toFacultyResponse(f *model.Faculty) *dto.FacultyResponse {
	careers := make([]string, 0, len(f.Careers))
	for _, c := range f.Careers {
		careers = append(careers, c.Name)
	}
	return &dto.FacultyResponse{
		ID:      f.FacultyID,
		Name:    f.Name,
		Careers: careers,
		Version: f.Version,
	}
}
