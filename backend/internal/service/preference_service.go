package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
)

var (
	ErrUnavailableNotFound = errors.New("不可用时间记录不存在")
	ErrUnavailableNotOwner = errors.New("无权操作此不可用时间记录")
)

// PreferenceService 教师授课偏好与不可用时间
// 写操作只作用于调用者本人的记录
type PreferenceService interface {
	GetMine(ctx context.Context, userID string) (*dto.PreferenceResponse, error)
	UpdateMine(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error)
	// ForInstructor 管理员按课表教师编号查看；未关联账号或未填写时返回默认偏好
	ForInstructor(ctx context.Context, instructorID int) (*dto.PreferenceResponse, error)

	CreateUnavailable(ctx context.Context, userID string, req *dto.UnavailableTimeRequest) (*dto.UnavailableTimeResponse, error)
	UpdateUnavailable(ctx context.Context, id string, req *dto.UnavailableTimeRequest, userID string) (*dto.UnavailableTimeResponse, error)
	DeleteUnavailable(ctx context.Context, id, userID string) error
}

type preferenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, logger: logger}
}

// ────────────────────── GetMine ──────────────────────

func (s *preferenceService) GetMine(ctx context.Context, userID string) (*dto.PreferenceResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	pref, err := s.repo.Preference.Get(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询授课偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	times, err := s.repo.Preference.ListUnavailable(ctx, userID)
	if err != nil {
		s.logger.Error("查询不可用时间失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toPreferenceResponse(pref, times)
	resp.UserID = userID
	resp.InstructorID = user.InstructorID
	return resp, nil
}

// ────────────────────── UpdateMine ──────────────────────

func (s *preferenceService) UpdateMine(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	if _, err := s.repo.User.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	days, err := parsePreferredDays(req.PreferredDays)
	if err != nil {
		return nil, err
	}
	subjects, err := s.checkSubjects(ctx, req.PreferredSubjects)
	if err != nil {
		return nil, err
	}

	shift := req.Shift
	if shift == "" {
		shift = model.ShiftMixed
	}

	pref := &model.TeacherPreference{
		UserID:            userID,
		PreferredSubjects: subjects,
		Shift:             shift,
		PreferredDays:     days,
	}
	pref.CreatedBy = &userID
	pref.UpdatedBy = &userID
	if err := s.repo.Preference.Save(ctx, pref); err != nil {
		s.logger.Error("保存授课偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("授课偏好已更新",
		zap.String("user_id", userID),
		zap.String("shift", shift),
		zap.Int("subjects", len(subjects)),
		zap.Int("days", len(days)),
	)
	return s.GetMine(ctx, userID)
}

// parsePreferredDays 解析、去重并按周一到周日排序
func parsePreferredDays(in []string) ([]model.Weekday, error) {
	seen := map[model.Weekday]bool{}
	days := make([]model.Weekday, 0, len(in))
	for _, raw := range in {
		day, ok := model.ParseWeekday(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDay, raw)
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Index() < days[j].Index() })
	return days, nil
}

// checkSubjects 偏好科目须存在于科目目录，保持提交顺序并去重
func (s *preferenceService) checkSubjects(ctx context.Context, codes []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" || seen[code] {
			continue
		}
		if _, err := s.repo.Subject.GetByCode(ctx, code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, code)
			}
			s.logger.Error("查询科目失败", zap.String("code", code), zap.Error(err))
			return nil, err
		}
		seen[code] = true
		out = append(out, code)
	}
	return out, nil
}

// ────────────────────── ForInstructor ──────────────────────

func (s *preferenceService) ForInstructor(ctx context.Context, instructorID int) (*dto.PreferenceResponse, error) {
	pref, err := s.repo.Preference.GetByInstructor(ctx, instructorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询授课偏好失败", zap.Int("instructor_id", instructorID), zap.Error(err))
		return nil, err
	}
	times, err := s.repo.Preference.ListUnavailableByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("查询不可用时间失败", zap.Int("instructor_id", instructorID), zap.Error(err))
		return nil, err
	}

	resp := toPreferenceResponse(pref, times)
	resp.InstructorID = &instructorID
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 不可用时间 CRUD
// ════════════════════════════════════════════════════════════

func (s *preferenceService) CreateUnavailable(ctx context.Context, userID string, req *dto.UnavailableTimeRequest) (*dto.UnavailableTimeResponse, error) {
	ut := &model.UnavailableTime{UserID: userID}
	if err := applyUnavailable(ut, req); err != nil {
		return nil, err
	}
	ut.CreatedBy = &userID

	if err := s.repo.Preference.CreateUnavailable(ctx, ut); err != nil {
		s.logger.Error("创建不可用时间失败", zap.Error(err))
		return nil, err
	}

	resp := toUnavailableResponse(*ut)
	return &resp, nil
}

func (s *preferenceService) UpdateUnavailable(ctx context.Context, id string, req *dto.UnavailableTimeRequest, userID string) (*dto.UnavailableTimeResponse, error) {
	ut, err := s.ownedUnavailable(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := applyUnavailable(ut, req); err != nil {
		return nil, err
	}
	ut.UpdatedBy = &userID

	if err := s.repo.Preference.UpdateUnavailable(ctx, ut); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnavailableNotFound
		}
		s.logger.Error("更新不可用时间失败", zap.Error(err))
		return nil, err
	}

	resp := toUnavailableResponse(*ut)
	return &resp, nil
}

func (s *preferenceService) DeleteUnavailable(ctx context.Context, id, userID string) error {
	if _, err := s.ownedUnavailable(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Preference.DeleteUnavailable(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnavailableNotFound
		}
		s.logger.Error("删除不可用时间失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *preferenceService) ownedUnavailable(ctx context.Context, id, userID string) (*model.UnavailableTime, error) {
	ut, err := s.repo.Preference.GetUnavailable(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnavailableNotFound
		}
		return nil, err
	}
	if ut.UserID != userID {
		return nil, ErrUnavailableNotOwner
	}
	return ut, nil
}

// applyUnavailable 解析星期并校验时段
func applyUnavailable(ut *model.UnavailableTime, req *dto.UnavailableTimeRequest) error {
	day, ok := model.ParseWeekday(req.Day)
	if !ok {
		return fmt.Errorf("%w: 星期 %q 不合法", ErrInvalidTimeSlot, req.Day)
	}
	ut.Day = day
	ut.StartTime = strings.TrimSpace(req.StartTime)
	ut.EndTime = strings.TrimSpace(req.EndTime)
	ut.Reason = strings.TrimSpace(req.Reason)

	start, end, err := ut.Slot().Bounds()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}
	if end <= start {
		return fmt.Errorf("%w: 结束时间 %s 不晚于开始时间 %s", ErrInvalidTimeSlot, ut.EndTime, ut.StartTime)
	}
	return nil
}

// ── 转换 ──

// toPreferenceResponse pref 为 nil 时使用默认偏好
func toPreferenceResponse(pref *model.TeacherPreference, times []model.UnavailableTime) *dto.PreferenceResponse {
	resp := &dto.PreferenceResponse{
		PreferredSubjects: []string{},
		Shift:             model.ShiftMixed,
		PreferredDays:     []string{},
		Unavailable:       make([]dto.UnavailableTimeResponse, 0, len(times)),
	}
	if pref != nil {
		resp.UserID = pref.UserID
		resp.PreferredSubjects = append(resp.PreferredSubjects, pref.PreferredSubjects...)
		resp.Shift = pref.Shift
		for _, d := range pref.PreferredDays {
			resp.PreferredDays = append(resp.PreferredDays, string(d))
		}
		updated := pref.UpdatedAt
		resp.UpdatedAt = &updated
	}
	for _, t := range times {
		resp.Unavailable = append(resp.Unavailable, toUnavailableResponse(t))
	}
	resp.Summary = dto.PreferenceSummary{
		SubjectCount: len(resp.PreferredSubjects),
		Shift:        resp.Shift,
		DayCount:     len(resp.PreferredDays),
	}
	return resp
}

func toUnavailableResponse(t model.UnavailableTime) dto.UnavailableTimeResponse {
	return dto.UnavailableTimeResponse{
		ID:        t.UnavailableTimeID,
		Day:       string(t.Day),
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Reason:    t.Reason,
	}
}
