package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
	pkgerrors "sga-horarios/backend/pkg/errors"
)

// newMockRepository 组装全部 mock 仓储
func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:         newMockUserRepo(),
		faculty:      newMockFacultyRepo(),
		subject:      newMockSubjectRepo(),
		notification: newMockNotificationRepo(),
		schedule:     newMockScheduleRepo(),
	}
	m.preference = newMockPreferenceRepo(m.user)
	repo := &repository.Repository{
		User:         m.user,
		Faculty:      m.faculty,
		Subject:      m.subject,
		Notification: m.notification,
		Schedule:     m.schedule,
		Preference:   m.preference,
	}
	return repo, m
}

type mockRepos struct {
	user         *mockUserRepo
	faculty      *mockFacultyRepo
	subject      *mockSubjectRepo
	notification *mockNotificationRepo
	schedule     *mockScheduleRepo
	preference   *mockPreferenceRepo
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "uid-" + user.Username
	}
	if user.Version == 0 {
		user.Version = 1
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cur, ok := m.users[user.UserID]
	if !ok || cur.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.Role == role && u.Active {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

// ── Mock FacultyRepository ──

type mockFacultyRepo struct {
	faculties map[string]*model.Faculty
}

func newMockFacultyRepo() *mockFacultyRepo {
	return &mockFacultyRepo{faculties: make(map[string]*model.Faculty)}
}

func (m *mockFacultyRepo) Create(_ context.Context, faculty *model.Faculty) error {
	if faculty.FacultyID == "" {
		faculty.FacultyID = "fac-" + faculty.Name
	}
	faculty.Version = 1
	m.faculties[faculty.FacultyID] = faculty
	return nil
}

func (m *mockFacultyRepo) GetByID(_ context.Context, id string) (*model.Faculty, error) {
	if f, ok := m.faculties[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFacultyRepo) GetByName(_ context.Context, name string) (*model.Faculty, error) {
	for _, f := range m.faculties {
		if f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFacultyRepo) List(_ context.Context) ([]model.Faculty, error) {
	var result []model.Faculty
	for _, f := range m.faculties {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockFacultyRepo) Update(_ context.Context, faculty *model.Faculty) error {
	cur, ok := m.faculties[faculty.FacultyID]
	if !ok || cur.Version != faculty.Version {
		return pkgerrors.ErrOptimisticLock
	}
	faculty.Version++
	cp := *faculty
	m.faculties[faculty.FacultyID] = &cp
	return nil
}

func (m *mockFacultyRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.faculties[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.faculties, id)
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.CatalogSubject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.CatalogSubject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.CatalogSubject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = "sub-" + subject.Code
	}
	subject.Version = 1
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.CatalogSubject, error) {
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByCode(_ context.Context, code string) (*model.CatalogSubject, error) {
	for _, s := range m.subjects {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context, facultyID string) ([]model.CatalogSubject, error) {
	var result []model.CatalogSubject
	for _, s := range m.subjects {
		if facultyID == "" || s.FacultyID == facultyID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockSubjectRepo) CountByFaculty(_ context.Context, facultyID string) (int64, error) {
	var n int64
	for _, s := range m.subjects {
		if s.FacultyID == facultyID {
			n++
		}
	}
	return n, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.CatalogSubject) error {
	cur, ok := m.subjects[subject.SubjectID]
	if !ok || cur.Version != subject.Version {
		return pkgerrors.ErrOptimisticLock
	}
	subject.Version++
	cp := *subject
	m.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.subjects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.subjects, id)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	items []*model.Notification
	seq   int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) visible(n *model.Notification, userID string) bool {
	return n.UserID == nil || *n.UserID == userID
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.seq++
	if n.NotificationID == "" {
		n.NotificationID = "ntf-" + strconv.Itoa(m.seq)
	}
	m.items = append(m.items, n)
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	for _, n := range m.items {
		if n.NotificationID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	var result []model.Notification
	// 按创建倒序
	for i := len(m.items) - 1; i >= 0; i-- {
		n := m.items[i]
		if !m.visible(n, userID) || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, *n)
	}
	return result, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var c int64
	for _, n := range m.items {
		if m.visible(n, userID) && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	for _, n := range m.items {
		if n.NotificationID == id {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var c int64
	for _, n := range m.items {
		if m.visible(n, userID) && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id, _ string) error {
	for i, n := range m.items {
		if n.NotificationID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) DeleteRead(_ context.Context, userID string) (int64, error) {
	var kept []*model.Notification
	var c int64
	for _, n := range m.items {
		if n.UserID != nil && *n.UserID == userID && n.IsRead {
			c++
			continue
		}
		kept = append(kept, n)
	}
	m.items = kept
	return c, nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	meta    *model.ScheduleMetadataRecord
	entries []model.ScheduleEntryRecord
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{}
}

// seed 以文档顺序写入条目
func (m *mockScheduleRepo) seed(meta model.ScheduleMetadata, entries ...model.ScheduleEntry) {
	m.meta = model.NewScheduleMetadataRecord(meta)
	m.entries = nil
	for i := range entries {
		m.entries = append(m.entries, *model.NewScheduleEntryRecord(&entries[i], i))
	}
}

func (m *mockScheduleRepo) GetMetadata(_ context.Context) (*model.ScheduleMetadataRecord, error) {
	if m.meta == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.meta
	return &cp, nil
}

func (m *mockScheduleRepo) SaveMetadata(_ context.Context, meta *model.ScheduleMetadataRecord) error {
	cp := *meta
	m.meta = &cp
	return nil
}

func (m *mockScheduleRepo) sorted() []model.ScheduleEntryRecord {
	out := make([]model.ScheduleEntryRecord, len(m.entries))
	copy(out, m.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *mockScheduleRepo) ListEntries(_ context.Context) ([]model.ScheduleEntryRecord, error) {
	return m.sorted(), nil
}

func (m *mockScheduleRepo) ListByInstructor(_ context.Context, instructorID int) ([]model.ScheduleEntryRecord, error) {
	var out []model.ScheduleEntryRecord
	for _, r := range m.sorted() {
		if r.InstructorID == instructorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) ListByRoom(_ context.Context, roomCode string) ([]model.ScheduleEntryRecord, error) {
	var out []model.ScheduleEntryRecord
	for _, r := range m.sorted() {
		if strings.EqualFold(r.RoomCode, roomCode) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) GetEntry(_ context.Context, id string) (*model.ScheduleEntryRecord, error) {
	for i := range m.entries {
		if m.entries[i].EntryID == id {
			cp := m.entries[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) CreateEntry(_ context.Context, rec *model.ScheduleEntryRecord) error {
	rec.Position = 0
	for _, r := range m.entries {
		if r.Position >= rec.Position {
			rec.Position = r.Position + 1
		}
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	m.entries = append(m.entries, *rec)
	return nil
}

func (m *mockScheduleRepo) UpdateEntry(_ context.Context, rec *model.ScheduleEntryRecord) error {
	for i := range m.entries {
		if m.entries[i].EntryID != rec.EntryID {
			continue
		}
		if m.entries[i].Version != rec.Version {
			return pkgerrors.ErrOptimisticLock
		}
		rec.Version++
		rec.Position = m.entries[i].Position
		m.entries[i] = *rec
		return nil
	}
	return pkgerrors.ErrOptimisticLock
}

func (m *mockScheduleRepo) DeleteEntry(_ context.Context, id string) error {
	for i := range m.entries {
		if m.entries[i].EntryID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) ReplaceAll(_ context.Context, meta *model.ScheduleMetadataRecord, entries []model.ScheduleEntryRecord) error {
	cp := *meta
	m.meta = &cp
	m.entries = append([]model.ScheduleEntryRecord(nil), entries...)
	return nil
}

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct {
	users     *mockUserRepo
	prefs     map[string]*model.TeacherPreference // key: user_id
	times     []model.UnavailableTime
	idCounter int
}

func newMockPreferenceRepo(users *mockUserRepo) *mockPreferenceRepo {
	return &mockPreferenceRepo{users: users, prefs: make(map[string]*model.TeacherPreference)}
}

// linked 关联到指定教师编号的账号 ID
func (m *mockPreferenceRepo) linked(instructorID int) map[string]bool {
	out := map[string]bool{}
	for id, u := range m.users.users {
		if u.InstructorID != nil && *u.InstructorID == instructorID {
			out[id] = true
		}
	}
	return out
}

func (m *mockPreferenceRepo) Get(_ context.Context, userID string) (*model.TeacherPreference, error) {
	if p, ok := m.prefs[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) GetByInstructor(ctx context.Context, instructorID int) (*model.TeacherPreference, error) {
	for id := range m.linked(instructorID) {
		if p, err := m.Get(ctx, id); err == nil {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) Save(_ context.Context, pref *model.TeacherPreference) error {
	cp := *pref
	m.prefs[pref.UserID] = &cp
	return nil
}

func (m *mockPreferenceRepo) filter(keep func(model.UnavailableTime) bool) []model.UnavailableTime {
	var out []model.UnavailableTime
	for _, t := range m.times {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day.Index() < out[j].Day.Index()
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (m *mockPreferenceRepo) ListUnavailable(_ context.Context, userID string) ([]model.UnavailableTime, error) {
	return m.filter(func(t model.UnavailableTime) bool { return t.UserID == userID }), nil
}

func (m *mockPreferenceRepo) ListUnavailableByInstructor(_ context.Context, instructorID int) ([]model.UnavailableTime, error) {
	ids := m.linked(instructorID)
	return m.filter(func(t model.UnavailableTime) bool { return ids[t.UserID] }), nil
}

func (m *mockPreferenceRepo) GetUnavailable(_ context.Context, id string) (*model.UnavailableTime, error) {
	for _, t := range m.times {
		if t.UnavailableTimeID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) CreateUnavailable(_ context.Context, ut *model.UnavailableTime) error {
	m.idCounter++
	if ut.UnavailableTimeID == "" {
		ut.UnavailableTimeID = "ut-" + strconv.Itoa(m.idCounter)
	}
	m.times = append(m.times, *ut)
	return nil
}

func (m *mockPreferenceRepo) UpdateUnavailable(_ context.Context, ut *model.UnavailableTime) error {
	for i, t := range m.times {
		if t.UnavailableTimeID == ut.UnavailableTimeID {
			m.times[i] = *ut
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) DeleteUnavailable(_ context.Context, id, _ string) error {
	for i, t := range m.times {
		if t.UnavailableTimeID == id {
			m.times = append(m.times[:i], m.times[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
