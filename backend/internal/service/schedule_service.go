package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
	pkgerrors "sga-horarios/backend/pkg/errors"
)

// ── 课表模块业务错误 ──

var (
	ErrEntryNotFound    = errors.New("课表条目不存在")
	ErrEntryExists      = errors.New("课表条目 ID 已存在")
	ErrEntryIDRequired  = errors.New("课表条目 ID 不能为空")
	ErrDuplicateEntryID = errors.New("课表文档中存在重复的条目 ID")
	ErrInvalidDay       = errors.New("星期取值无效")
	ErrNoInstructorLink = errors.New("当前账号未关联教师编号")
	ErrSourceNotDefined = errors.New("未配置课表文档来源")
)

// 冲突分组的资源类型
const (
	ConflictResourceInstructor = "instructor"
	ConflictResourceRoom       = "room"
	// 同一对时段既同教师又同教室，只报告一次
	ConflictResourceBoth       = "instructor+room"
)

// 写操作附带冲突时生成的通知内容最多列出的冲突条数
const maxConflictsInNotice = 5

// ScheduleService 课表业务接口
type ScheduleService interface {
	// 导入
	ImportFromSource(ctx context.Context, callerID string) (*dto.ImportScheduleResponse, error)
	ImportXML(ctx context.Context, data []byte, callerID string) (*dto.ImportScheduleResponse, error)

	// 查询
	GetSystem(ctx context.Context) (*model.ScheduleSystem, error)
	ListEntries(ctx context.Context, req *dto.ScheduleEntryListRequest) ([]model.ScheduleEntry, error)
	MyEntries(ctx context.Context, userID string) ([]model.ScheduleEntry, error)
	GetEntry(ctx context.Context, id string) (*dto.EntryDetailResponse, error)

	// 维护
	CreateEntry(ctx context.Context, req *dto.ScheduleEntryRequest, callerID string) (*dto.ScheduleEntryResponse, error)
	UpdateEntry(ctx context.Context, id string, req *dto.UpdateScheduleEntryRequest, callerID string) (*dto.ScheduleEntryResponse, error)
	DeleteEntry(ctx context.Context, id string) error
	UpdateMetadata(ctx context.Context, req *dto.UpdateMetadataRequest, callerID string) (*model.ScheduleMetadata, error)

	// 冲突
	ValidateEntry(ctx context.Context, req *dto.ScheduleEntryRequest) (*dto.ValidateEntryResponse, error)
	InstructorConflicts(ctx context.Context, instructorID int) ([]dto.ConflictResponse, error)
	RoomConflicts(ctx context.Context, roomCode string) ([]dto.ConflictResponse, error)
	AllConflicts(ctx context.Context) ([]dto.ConflictGroupResponse, error)

	// 统计与视图
	Statistics(ctx context.Context) (*dto.StatisticsResponse, error)
	Catalogs(ctx context.Context) (*dto.CatalogsResponse, error)
	WeeklyMatrix(ctx context.Context, req *dto.ScheduleEntryListRequest) (*dto.WeeklyMatrixResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	source ScheduleLoader
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
// source 为 nil 时 ImportFromSource 不可用
func NewScheduleService(repo *repository.Repository, source ScheduleLoader, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, source: source, logger: logger}
}

// ────────────────────── ImportFromSource ──────────────────────

func (s *scheduleService) ImportFromSource(ctx context.Context, callerID string) (*dto.ImportScheduleResponse, error) {
	if s.source == nil {
		return nil, ErrSourceNotDefined
	}

	sys, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Warn("加载课表文档失败", zap.Error(err))
		return nil, err
	}
	return s.importSystem(ctx, sys, callerID)
}

// ────────────────────── ImportXML ──────────────────────

func (s *scheduleService) ImportXML(ctx context.Context, data []byte, callerID string) (*dto.ImportScheduleResponse, error) {
	sys, err := ParseScheduleXML(data)
	if err != nil {
		return nil, err
	}
	return s.importSystem(ctx, sys, callerID)
}

// importSystem 校验后整体替换工作副本
func (s *scheduleService) importSystem(ctx context.Context, sys *model.ScheduleSystem, callerID string) (*dto.ImportScheduleResponse, error) {
	if err := ValidateSystem(sys); err != nil {
		return nil, err
	}

	meta := model.NewScheduleMetadataRecord(sys.Metadata)
	meta.UpdatedBy = optionalID(callerID)

	records := make([]model.ScheduleEntryRecord, 0, len(sys.Entries))
	for i := range sys.Entries {
		if sys.Entries[i].Status == "" {
			sys.Entries[i].Status = model.EntryActive
		}
		rec := model.NewScheduleEntryRecord(&sys.Entries[i], i)
		rec.CreatedBy = optionalID(callerID)
		records = append(records, *rec)
	}

	groups := GroupConflicts(sys.Entries)

	err := s.writeWithNotice(ctx, callerID, "Importación con conflictos de horario", flattenGroups(groups),
		func(r *repository.Repository) error {
			return r.Schedule.ReplaceAll(ctx, meta, records)
		})
	if err != nil {
		s.logger.Error("导入课表失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("导入课表",
		zap.Int("entries", len(records)),
		zap.String("period", sys.Metadata.Period),
		zap.Int("conflict_groups", len(groups)),
	)

	return &dto.ImportScheduleResponse{
		Entries:   len(records),
		Period:    sys.Metadata.Period,
		Conflicts: groups,
	}, nil
}

// ValidateSystem 校验条目 ID 非空且唯一，全部时段合法
func ValidateSystem(sys *model.ScheduleSystem) error {
	seen := make(map[string]bool, len(sys.Entries))
	for i := range sys.Entries {
		e := &sys.Entries[i]
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: 第 %d 条", ErrEntryIDRequired, i+1)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateEntryID, e.ID)
		}
		seen[e.ID] = true
		if err := ValidateSlots(e); err != nil {
			return err
		}
	}
	return nil
}

// ────────────────────── GetSystem ──────────────────────

func (s *scheduleService) GetSystem(ctx context.Context) (*model.ScheduleSystem, error) {
	return loadSystem(ctx, s.repo, s.logger)
}

// loadSystem 从数据库还原完整课表，元数据缺失时返回空元数据
func loadSystem(ctx context.Context, repo *repository.Repository, logger *zap.Logger) (*model.ScheduleSystem, error) {
	sys := &model.ScheduleSystem{Entries: []model.ScheduleEntry{}}

	meta, err := repo.Schedule.GetMetadata(ctx)
	switch {
	case err == nil:
		sys.Metadata = meta.ToMetadata()
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		logger.Error("查询课表元数据失败", zap.Error(err))
		return nil, err
	}

	records, err := repo.Schedule.ListEntries(ctx)
	if err != nil {
		logger.Error("查询课表条目失败", zap.Error(err))
		return nil, err
	}
	sys.Entries = toEntries(records)
	return sys, nil
}

func toEntries(records []model.ScheduleEntryRecord) []model.ScheduleEntry {
	entries := make([]model.ScheduleEntry, 0, len(records))
	for i := range records {
		entries = append(entries, records[i].ToEntry())
	}
	return entries
}

// ────────────────────── ListEntries ──────────────────────

func (s *scheduleService) ListEntries(ctx context.Context, req *dto.ScheduleEntryListRequest) ([]model.ScheduleEntry, error) {
	records, err := s.repo.Schedule.ListEntries(ctx)
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, err
	}
	return filterEntries(toEntries(records), req)
}

// filterEntries 按星期、层级、教师、教室、状态与关键字筛选
// 关键字不区分大小写，匹配科目名称、科目编码与教师姓名
func filterEntries(entries []model.ScheduleEntry, req *dto.ScheduleEntryListRequest) ([]model.ScheduleEntry, error) {
	if req == nil {
		return entries, nil
	}

	var day model.Weekday
	if req.Day != "" {
		d, ok := model.ParseWeekday(req.Day)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDay, req.Day)
		}
		day = d
	}
	q := strings.ToLower(strings.TrimSpace(req.Q))

	out := make([]model.ScheduleEntry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if day != "" && !e.HasDay(day) {
			continue
		}
		if req.Level != "" && !strings.EqualFold(e.Subject.Level, req.Level) {
			continue
		}
		if req.InstructorID != nil && e.Instructor.ID != *req.InstructorID {
			continue
		}
		if req.RoomCode != "" && !strings.EqualFold(e.Room.Code, req.RoomCode) {
			continue
		}
		if req.Status != "" && e.Status != req.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(e.Subject.Name), q) &&
			!strings.Contains(strings.ToLower(e.Subject.Code), q) &&
			!strings.Contains(strings.ToLower(e.Instructor.Name), q) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// ────────────────────── MyEntries ──────────────────────

func (s *scheduleService) MyEntries(ctx context.Context, userID string) ([]model.ScheduleEntry, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if user.InstructorID == nil {
		return nil, ErrNoInstructorLink
	}

	records, err := s.repo.Schedule.ListByInstructor(ctx, *user.InstructorID)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.Int("instructor_id", *user.InstructorID), zap.Error(err))
		return nil, err
	}
	return toEntries(records), nil
}

// ────────────────────── GetEntry ──────────────────────

func (s *scheduleService) GetEntry(ctx context.Context, id string) (*dto.EntryDetailResponse, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := rec.ToEntry()
	return &dto.EntryDetailResponse{
		Entry:            entry,
		Version:          rec.Version,
		WeeklyHours:      round2(float64(entry.WeeklyMinutes()) / 60),
		OccupancyPercent: occupancy(&entry),
	}, nil
}

func (s *scheduleService) getRecord(ctx context.Context, id string) (*model.ScheduleEntryRecord, error) {
	rec, err := s.repo.Schedule.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

// ────────────────────── CreateEntry ──────────────────────

func (s *scheduleService) CreateEntry(ctx context.Context, req *dto.ScheduleEntryRequest, callerID string) (*dto.ScheduleEntryResponse, error) {
	entry, err := buildEntry(req.ID, req.Subject, req.Instructor, req.Room, req.Slots, req.EnrolledCount, req.Status)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Schedule.GetEntry(ctx, entry.ID); err == nil {
		return nil, ErrEntryExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询课表条目失败", zap.String("id", entry.ID), zap.Error(err))
		return nil, err
	}

	warnings, err := s.candidateConflicts(ctx, entry)
	if err != nil {
		return nil, err
	}

	rec := model.NewScheduleEntryRecord(entry, 0)
	rec.CreatedBy = optionalID(callerID)

	err = s.writeWithNotice(ctx, callerID, "Horario asignado con conflictos", warnings,
		func(r *repository.Repository) error {
			return r.Schedule.CreateEntry(ctx, rec)
		})
	if err != nil {
		s.logger.Error("创建课表条目失败", zap.String("id", entry.ID), zap.Error(err))
		return nil, err
	}

	return &dto.ScheduleEntryResponse{
		Entry:    *entry,
		Version:  rec.Version,
		Warnings: toConflictResponses(warnings),
		Notices:  s.availabilityNotices(ctx, entry),
	}, nil
}

// ────────────────────── UpdateEntry ──────────────────────

func (s *scheduleService) UpdateEntry(ctx context.Context, id string, req *dto.UpdateScheduleEntryRequest, callerID string) (*dto.ScheduleEntryResponse, error) {
	current, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != current.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	entry, err := buildEntry(id, req.Subject, req.Instructor, req.Room, req.Slots, req.EnrolledCount, req.Status)
	if err != nil {
		return nil, err
	}

	warnings, err := s.candidateConflicts(ctx, entry)
	if err != nil {
		return nil, err
	}

	rec := model.NewScheduleEntryRecord(entry, current.Position)
	rec.Version = current.Version
	rec.UpdatedBy = optionalID(callerID)

	err = s.writeWithNotice(ctx, callerID, "Horario modificado con conflictos", warnings,
		func(r *repository.Repository) error {
			return r.Schedule.UpdateEntry(ctx, rec)
		})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新课表条目失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return &dto.ScheduleEntryResponse{
		Entry:    *entry,
		Version:  rec.Version,
		Warnings: toConflictResponses(warnings),
		Notices:  s.availabilityNotices(ctx, entry),
	}, nil
}

// ────────────────────── DeleteEntry ──────────────────────

func (s *scheduleService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.repo.Schedule.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		s.logger.Error("删除课表条目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── UpdateMetadata ──────────────────────

func (s *scheduleService) UpdateMetadata(ctx context.Context, req *dto.UpdateMetadataRequest, callerID string) (*model.ScheduleMetadata, error) {
	meta, err := s.repo.Schedule.GetMetadata(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询课表元数据失败", zap.Error(err))
			return nil, err
		}
		meta = &model.ScheduleMetadataRecord{ID: model.ScheduleMetadataID}
	}

	if req.Institution != nil {
		meta.Institution = *req.Institution
	}
	if req.Faculty != nil {
		meta.Faculty = *req.Faculty
	}
	if req.Program != nil {
		meta.Program = *req.Program
	}
	if req.Period != nil {
		meta.Period = *req.Period
	}
	if req.UpdatedAt != nil {
		meta.DocUpdated = *req.UpdatedAt
	}
	meta.UpdatedBy = optionalID(callerID)

	if err := s.repo.Schedule.SaveMetadata(ctx, meta); err != nil {
		s.logger.Error("保存课表元数据失败", zap.Error(err))
		return nil, err
	}

	out := meta.ToMetadata()
	return &out, nil
}

// ────────────────────── ValidateEntry ──────────────────────

func (s *scheduleService) ValidateEntry(ctx context.Context, req *dto.ScheduleEntryRequest) (*dto.ValidateEntryResponse, error) {
	entry, err := buildEntry(req.ID, req.Subject, req.Instructor, req.Room, req.Slots, req.EnrolledCount, req.Status)
	if err != nil {
		return nil, err
	}

	reports, err := s.candidateConflicts(ctx, entry)
	if err != nil {
		return nil, err
	}

	return &dto.ValidateEntryResponse{
		Valid:     len(reports) == 0,
		Conflicts: toConflictResponses(reports),
		Notices:   s.availabilityNotices(ctx, entry),
	}, nil
}

// availabilityNotices 候选条目与教师不可用时间、授课偏好不符之处
// 仅作提示，不影响 Valid；查询失败只记录日志
func (s *scheduleService) availabilityNotices(ctx context.Context, entry *model.ScheduleEntry) []string {
	id := entry.Instructor.ID
	if id == 0 {
		return nil
	}

	var notices []string
	times, err := s.repo.Preference.ListUnavailableByInstructor(ctx, id)
	if err != nil {
		s.logger.Warn("查询教师不可用时间失败", zap.Int("instructor_id", id), zap.Error(err))
	}
	for _, slot := range entry.Slots {
		for i := range times {
			blocked := times[i].Slot()
			if slot.Day != blocked.Day || !slotsOverlap(slot, blocked) {
				continue
			}
			msg := fmt.Sprintf("Docente no disponible el %s %s", blocked.Day, blocked.Range())
			if times[i].Reason != "" {
				msg += " (" + times[i].Reason + ")"
			}
			notices = append(notices, fmt.Sprintf("%s: %s (%s)", msg, entry.Subject.Name, slot.Range()))
		}
	}

	pref, err := s.repo.Preference.GetByInstructor(ctx, id)
	switch {
	case err == nil:
		notices = append(notices, preferenceNotices(pref, entry)...)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn("查询教师授课偏好失败", zap.Int("instructor_id", id), zap.Error(err))
	}
	return notices
}

// preferenceNotices 不在偏好星期（每个星期只提示一次）或超出偏好时段的时段
func preferenceNotices(pref *model.TeacherPreference, entry *model.ScheduleEntry) []string {
	var out []string
	reported := map[model.Weekday]bool{}
	shiftStart, shiftEnd, limited := model.ShiftBounds(pref.Shift)

	for _, slot := range entry.Slots {
		if !pref.PrefersDay(slot.Day) && !reported[slot.Day] {
			reported[slot.Day] = true
			out = append(out, fmt.Sprintf("%s no está entre los días preferidos del docente", slot.Day))
		}
		if !limited {
			continue
		}
		start, end, err := slot.Bounds()
		if err == nil && (start < shiftStart || end > shiftEnd) {
			out = append(out, fmt.Sprintf("%s %s fuera del horario preferido del docente (%s)",
				slot.Day, slot.Range(), pref.Shift))
		}
	}
	return out
}

// candidateConflicts 候选条目与同教师、同教室的现有条目之间的冲突
// 同 ID 的现有条目视为被替换，不参与比较
// 教师编号为 0 或教室编码为空表示未指定，跳过对应检查
func (s *scheduleService) candidateConflicts(ctx context.Context, candidate *model.ScheduleEntry) ([]ConflictReport, error) {
	reports := []ConflictReport{}

	if candidate.Instructor.ID != 0 {
		records, err := s.repo.Schedule.ListByInstructor(ctx, candidate.Instructor.ID)
		if err != nil {
			s.logger.Error("查询教师课表失败", zap.Error(err))
			return nil, err
		}
		reports = append(reports, tagReports(conflictsWith(toEntries(records), candidate), ConflictResourceInstructor, "")...)
	}

	if candidate.Room.Code != "" {
		records, err := s.repo.Schedule.ListByRoom(ctx, candidate.Room.Code)
		if err != nil {
			s.logger.Error("查询教室课表失败", zap.Error(err))
			return nil, err
		}
		byRoom := tagReports(conflictsWith(toEntries(records), candidate), ConflictResourceRoom, candidate.Room.Code)
		reports = mergeRoomReports(reports, byRoom)
	}

	return reports, nil
}

// mergeRoomReports 教室报告并入教师报告；同一对时段已按教师报告过时改标为两者兼有
func mergeRoomReports(reports, byRoom []ConflictReport) []ConflictReport {
next:
	for _, r := range byRoom {
		for i := range reports {
			if reports[i].samePair(r) {
				reports[i].Resource = ConflictResourceBoth
				reports[i].Room = r.Room
				continue next
			}
		}
		reports = append(reports, r)
	}
	return reports
}

// conflictsWith 候选条目置于末尾检测，只保留涉及候选条目的报告
func conflictsWith(existing []model.ScheduleEntry, candidate *model.ScheduleEntry) []ConflictReport {
	group := make([]model.ScheduleEntry, 0, len(existing)+1)
	for _, e := range existing {
		if e.ID != candidate.ID {
			group = append(group, e)
		}
	}
	group = append(group, *candidate)

	out := []ConflictReport{}
	for _, r := range FindConflicts(group) {
		if r.EntryB == candidate.ID {
			out = append(out, r)
		}
	}
	return out
}

// ────────────────────── InstructorConflicts ──────────────────────

func (s *scheduleService) InstructorConflicts(ctx context.Context, instructorID int) ([]dto.ConflictResponse, error) {
	records, err := s.repo.Schedule.ListByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.Int("instructor_id", instructorID), zap.Error(err))
		return nil, err
	}

	reports, err := DetectInstructorConflicts(toEntries(records), instructorID)
	if err != nil {
		return nil, err
	}
	return toConflictResponses(reports), nil
}

// ────────────────────── RoomConflicts ──────────────────────

func (s *scheduleService) RoomConflicts(ctx context.Context, roomCode string) ([]dto.ConflictResponse, error) {
	records, err := s.repo.Schedule.ListByRoom(ctx, roomCode)
	if err != nil {
		s.logger.Error("查询教室课表失败", zap.String("room_code", roomCode), zap.Error(err))
		return nil, err
	}

	reports, err := DetectRoomConflicts(toEntries(records), roomCode)
	if err != nil {
		return nil, err
	}
	return toConflictResponses(reports), nil
}

// ────────────────────── AllConflicts ──────────────────────

func (s *scheduleService) AllConflicts(ctx context.Context) ([]dto.ConflictGroupResponse, error) {
	records, err := s.repo.Schedule.ListEntries(ctx)
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, err
	}
	return GroupConflicts(toEntries(records)), nil
}

// GroupConflicts 按教师（编号升序）与教室（编码升序）分组检测
// 只返回存在冲突的分组；未指定的教师与教室不参与
func GroupConflicts(entries []model.ScheduleEntry) []dto.ConflictGroupResponse {
	groups := []dto.ConflictGroupResponse{}

	instructors := map[int]string{}
	// 教室编码不区分大小写，键为大写编码，值为首次出现的条目教室
	rooms := map[string]model.Room{}
	for _, e := range entries {
		if e.Instructor.ID != 0 {
			if _, ok := instructors[e.Instructor.ID]; !ok {
				instructors[e.Instructor.ID] = e.Instructor.Name
			}
		}
		if code := strings.TrimSpace(e.Room.Code); code != "" {
			key := strings.ToUpper(code)
			if _, ok := rooms[key]; !ok {
				rooms[key] = e.Room
			}
		}
	}

	ids := make([]int, 0, len(instructors))
	for id := range instructors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		reports := FindConflicts(FilterByInstructor(entries, id))
		if len(reports) == 0 {
			continue
		}
		groups = append(groups, dto.ConflictGroupResponse{
			Resource:  ConflictResourceInstructor,
			Key:       strconv.Itoa(id),
			Label:     instructors[id],
			Conflicts: toConflictResponses(tagReports(reports, ConflictResourceInstructor, "")),
		})
	}

	keys := make([]string, 0, len(rooms))
	for key := range rooms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		room := rooms[key]
		reports := FindConflicts(FilterByRoom(entries, room.Code))
		if len(reports) == 0 {
			continue
		}
		groups = append(groups, dto.ConflictGroupResponse{
			Resource:  ConflictResourceRoom,
			Key:       room.Code,
			Label:     strings.TrimSpace(room.Code + " " + room.Building),
			Conflicts: toConflictResponses(tagReports(reports, ConflictResourceRoom, room.Code)),
		})
	}

	return groups
}

// ────────────────────── Statistics ──────────────────────

func (s *scheduleService) Statistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	records, err := s.repo.Schedule.ListEntries(ctx)
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, err
	}
	return computeStatistics(toEntries(records)), nil
}

func computeStatistics(entries []model.ScheduleEntry) *dto.StatisticsResponse {
	stats := &dto.StatisticsResponse{
		TotalCourses: len(entries),
		ByLevel:      map[string]int{},
		ByInstructor: []dto.InstructorLoad{},
	}

	loads := map[int]*dto.InstructorLoad{}
	totalMinutes := 0
	occupancySum, rated := 0.0, 0

	for i := range entries {
		e := &entries[i]
		if e.Status == model.EntryActive {
			stats.ActiveCourses++
		}
		stats.TotalCredits += e.Subject.Credits
		stats.TotalStudents += e.EnrolledCount
		minutes := e.WeeklyMinutes()
		totalMinutes += minutes

		if e.Room.Capacity > 0 {
			occupancySum += float64(e.EnrolledCount) / float64(e.Room.Capacity) * 100
			rated++
		}
		if e.Subject.Level != "" {
			stats.ByLevel[e.Subject.Level]++
		}

		load, ok := loads[e.Instructor.ID]
		if !ok {
			load = &dto.InstructorLoad{ID: e.Instructor.ID, Name: e.Instructor.Name}
			loads[e.Instructor.ID] = load
		}
		load.Courses++
		load.WeeklyHours += float64(minutes) / 60
	}

	stats.WeeklyHours = round2(float64(totalMinutes) / 60)
	if rated > 0 {
		stats.AverageOccupancy = round2(occupancySum / float64(rated))
	}

	for _, l := range loads {
		l.WeeklyHours = round2(l.WeeklyHours)
		stats.ByInstructor = append(stats.ByInstructor, *l)
	}
	sort.Slice(stats.ByInstructor, func(i, j int) bool {
		a, b := stats.ByInstructor[i], stats.ByInstructor[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return stats
}

// ────────────────────── Catalogs ──────────────────────

func (s *scheduleService) Catalogs(ctx context.Context) (*dto.CatalogsResponse, error) {
	records, err := s.repo.Schedule.ListEntries(ctx)
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, err
	}
	return buildCatalogs(toEntries(records)), nil
}

func buildCatalogs(entries []model.ScheduleEntry) *dto.CatalogsResponse {
	out := &dto.CatalogsResponse{
		Levels:      []string{},
		Instructors: []model.Instructor{},
		Rooms:       []model.Room{},
	}

	levels := map[string]bool{}
	instructors := map[int]bool{}
	rooms := map[string]bool{}
	for _, e := range entries {
		if e.Subject.Level != "" && !levels[e.Subject.Level] {
			levels[e.Subject.Level] = true
			out.Levels = append(out.Levels, e.Subject.Level)
		}
		if !instructors[e.Instructor.ID] {
			instructors[e.Instructor.ID] = true
			out.Instructors = append(out.Instructors, e.Instructor)
		}
		if e.Room.Code != "" && !rooms[e.Room.Code] {
			rooms[e.Room.Code] = true
			out.Rooms = append(out.Rooms, e.Room)
		}
	}

	sort.Strings(out.Levels)
	sort.SliceStable(out.Instructors, func(i, j int) bool { return out.Instructors[i].Name < out.Instructors[j].Name })
	sort.SliceStable(out.Rooms, func(i, j int) bool { return out.Rooms[i].Code < out.Rooms[j].Code })
	return out
}

// ────────────────────── WeeklyMatrix ──────────────────────

func (s *scheduleService) WeeklyMatrix(ctx context.Context, req *dto.ScheduleEntryListRequest) (*dto.WeeklyMatrixResponse, error) {
	entries, err := s.ListEntries(ctx, req)
	if err != nil {
		return nil, err
	}
	return buildMatrix(entries), nil
}

// buildMatrix 星期（周一至周六）× 时间段 → 课程
// 时间段按开始时间、结束时间排序
func buildMatrix(entries []model.ScheduleEntry) *dto.WeeklyMatrixResponse {
	out := &dto.WeeklyMatrixResponse{
		Days:   make([]string, 0, len(model.TeachingDays)),
		Ranges: []string{},
		Matrix: map[string]map[string][]dto.MatrixCell{},
	}
	teaching := map[model.Weekday]bool{}
	for _, d := range model.TeachingDays {
		teaching[d] = true
		out.Days = append(out.Days, string(d))
		out.Matrix[string(d)] = map[string][]dto.MatrixCell{}
	}

	type span struct{ start, end string }
	spans := map[string]span{}

	for _, e := range entries {
		for _, slot := range e.Slots {
			if !teaching[slot.Day] {
				continue
			}
			r := slot.Range()
			spans[r] = span{slot.StartTime, slot.EndTime}
			day := string(slot.Day)
			out.Matrix[day][r] = append(out.Matrix[day][r], dto.MatrixCell{
				EntryID:        e.ID,
				SubjectCode:    e.Subject.Code,
				SubjectName:    e.Subject.Name,
				InstructorName: e.Instructor.Name,
				RoomCode:       e.Room.Code,
			})
		}
	}

	for r := range spans {
		out.Ranges = append(out.Ranges, r)
	}
	sort.Slice(out.Ranges, func(i, j int) bool {
		a, b := spans[out.Ranges[i]], spans[out.Ranges[j]]
		if a.start != b.start {
			return a.start < b.start
		}
		return a.end < b.end
	})
	return out
}

// ── 内部方法 ──

// writeWithNotice 在同一事务中执行写操作，存在冲突时追加一条广播警告通知
func (s *scheduleService) writeWithNotice(
	ctx context.Context,
	callerID, title string,
	reports []ConflictReport,
	write func(r *repository.Repository) error,
) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	txRepo := s.repo.WithTx(tx)

	if err := write(txRepo); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if len(reports) > 0 {
		notice := conflictNotice(title, reports)
		notice.CreatedBy = optionalID(callerID)
		if err := txRepo.Notification.Create(ctx, notice); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return err
		}
	}
	return nil
}

func conflictNotice(title string, reports []ConflictReport) *model.Notification {
	lines := make([]string, 0, maxConflictsInNotice+1)
	for i, r := range reports {
		if i == maxConflictsInNotice {
			lines = append(lines, fmt.Sprintf("... y %d conflicto(s) más", len(reports)-maxConflictsInNotice))
			break
		}
		lines = append(lines, r.String())
	}
	return &model.Notification{
		Type:     model.NotificationWarning,
		Title:    title,
		Message:  strings.Join(lines, "\n"),
		Priority: model.PriorityHigh,
	}
}

// buildEntry 由请求构造条目：解析星期、重算时长并校验时段
func buildEntry(
	id string,
	subject dto.SubjectInput,
	instructor dto.InstructorInput,
	room dto.RoomInput,
	slots []dto.TimeSlotInput,
	enrolled int,
	status string,
) (*model.ScheduleEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEntryIDRequired
	}
	if status == "" {
		status = model.EntryActive
	}

	entry := &model.ScheduleEntry{
		ID: id,
		Subject: model.Subject{
			Code:    strings.TrimSpace(subject.Code),
			Name:    strings.TrimSpace(subject.Name),
			Credits: subject.Credits,
			Level:   strings.TrimSpace(subject.Level),
		},
		Instructor: model.Instructor{
			ID:    instructor.ID,
			Name:  strings.TrimSpace(instructor.Name),
			Email: strings.TrimSpace(instructor.Email),
		},
		Room: model.Room{
			Code:     strings.TrimSpace(room.Code),
			Building: strings.TrimSpace(room.Building),
			Capacity: room.Capacity,
			Type:     strings.TrimSpace(room.Type),
		},
		Slots:         make([]model.TimeSlot, 0, len(slots)),
		EnrolledCount: enrolled,
		Status:        status,
	}

	for i, in := range slots {
		day, ok := model.ParseWeekday(in.Day)
		if !ok {
			return nil, fmt.Errorf("%w: 第 %d 个时段星期 %q 不合法", ErrInvalidTimeSlot, i+1, in.Day)
		}
		entry.Slots = append(entry.Slots, model.TimeSlot{
			Day:       day,
			StartTime: strings.TrimSpace(in.StartTime),
			EndTime:   strings.TrimSpace(in.EndTime),
		})
	}
	entry.NormalizeSlots()

	if err := ValidateSlots(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func toConflictResponses(reports []ConflictReport) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, dto.ConflictResponse{
			EntryA:   r.EntryA,
			EntryB:   r.EntryB,
			SubjectA: r.SubjectA,
			SubjectB: r.SubjectB,
			Day:      string(r.Day),
			RangeA:   r.RangeA,
			RangeB:   r.RangeB,
			Resource: r.Resource,
			Room:     r.Room,
			Message:  r.String(),
		})
	}
	return out
}

// flattenGroups 还原分组中的冲突用于通知内容
func flattenGroups(groups []dto.ConflictGroupResponse) []ConflictReport {
	var out []ConflictReport
	for _, g := range groups {
		for _, c := range g.Conflicts {
			out = append(out, ConflictReport{
				EntryA:   c.EntryA,
				EntryB:   c.EntryB,
				SubjectA: c.SubjectA,
				SubjectB: c.SubjectB,
				Day:      model.Weekday(c.Day),
				RangeA:   c.RangeA,
				RangeB:   c.RangeB,
				Resource: c.Resource,
				Room:     c.Room,
			})
		}
	}
	return out
}

func occupancy(e *model.ScheduleEntry) float64 {
	if e.Room.Capacity <= 0 {
		return 0
	}
	return round2(float64(e.EnrolledCount) / float64(e.Room.Capacity) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
