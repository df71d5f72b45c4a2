package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/api/middleware"
	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/service"
	pkgerrors "sga-horarios/backend/pkg/errors"
	"sga-horarios/backend/pkg/jwt"
	"sga-horarios/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
	logoutClaims  *jwt.Claims
	logoutRefresh string
	meResult      *dto.UserResponse
	meErr         error
	changePassErr error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, access *jwt.Claims, refresh string) error {
	m.logoutClaims, m.logoutRefresh = access, refresh
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock UserService ──

type mockUserService struct {
	listResult []dto.UserResponse
	listTotal  int64
	listRole   string
	getResult  *dto.UserResponse
	err        error
	gotRole    string
}

func (m *mockUserService) Create(_ context.Context, req *dto.CreateUserRequest, _ string) (*dto.UserResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.UserResponse{ID: "u-new", Username: req.Username, Role: req.Role}, nil
}
func (m *mockUserService) GetByID(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getResult, m.err
}
func (m *mockUserService) List(_ context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	m.listRole = req.Role
	return m.listResult, m.listTotal, m.err
}
func (m *mockUserService) Update(_ context.Context, _ string, _ *dto.UpdateUserRequest, _, role string) (*dto.UserResponse, error) {
	m.gotRole = role
	return m.getResult, m.err
}
func (m *mockUserService) Delete(_ context.Context, _ string, _ string) error {
	return m.err
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	importResult *dto.ImportScheduleResponse
	importData   []byte
	entries      []model.ScheduleEntry
	listReq      *dto.ScheduleEntryListRequest
	entryResult  *dto.ScheduleEntryResponse
	detail       *dto.EntryDetailResponse
	validate     *dto.ValidateEntryResponse
	groups       []dto.ConflictGroupResponse
	conflicts    []dto.ConflictResponse
	instructorID int
	err          error
}

func (m *mockScheduleService) ImportFromSource(_ context.Context, _ string) (*dto.ImportScheduleResponse, error) {
	return m.importResult, m.err
}
func (m *mockScheduleService) ImportXML(_ context.Context, data []byte, _ string) (*dto.ImportScheduleResponse, error) {
	m.importData = data
	return m.importResult, m.err
}
func (m *mockScheduleService) GetSystem(_ context.Context) (*model.ScheduleSystem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.ScheduleSystem{Metadata: model.ScheduleMetadata{Period: "2024-1"}, Entries: m.entries}, nil
}
func (m *mockScheduleService) ListEntries(_ context.Context, req *dto.ScheduleEntryListRequest) ([]model.ScheduleEntry, error) {
	m.listReq = req
	return m.entries, m.err
}
func (m *mockScheduleService) MyEntries(_ context.Context, _ string) ([]model.ScheduleEntry, error) {
	return m.entries, m.err
}
func (m *mockScheduleService) GetEntry(_ context.Context, _ string) (*dto.EntryDetailResponse, error) {
	return m.detail, m.err
}
func (m *mockScheduleService) CreateEntry(_ context.Context, _ *dto.ScheduleEntryRequest, _ string) (*dto.ScheduleEntryResponse, error) {
	return m.entryResult, m.err
}
func (m *mockScheduleService) UpdateEntry(_ context.Context, _ string, _ *dto.UpdateScheduleEntryRequest, _ string) (*dto.ScheduleEntryResponse, error) {
	return m.entryResult, m.err
}
func (m *mockScheduleService) DeleteEntry(_ context.Context, _ string) error {
	return m.err
}
func (m *mockScheduleService) UpdateMetadata(_ context.Context, _ *dto.UpdateMetadataRequest, _ string) (*model.ScheduleMetadata, error) {
	return &model.ScheduleMetadata{}, m.err
}
func (m *mockScheduleService) ValidateEntry(_ context.Context, _ *dto.ScheduleEntryRequest) (*dto.ValidateEntryResponse, error) {
	return m.validate, m.err
}
func (m *mockScheduleService) InstructorConflicts(_ context.Context, id int) ([]dto.ConflictResponse, error) {
	m.instructorID = id
	return m.conflicts, m.err
}
func (m *mockScheduleService) RoomConflicts(_ context.Context, _ string) ([]dto.ConflictResponse, error) {
	return m.conflicts, m.err
}
func (m *mockScheduleService) AllConflicts(_ context.Context) ([]dto.ConflictGroupResponse, error) {
	return m.groups, m.err
}
func (m *mockScheduleService) Statistics(_ context.Context) (*dto.StatisticsResponse, error) {
	return &dto.StatisticsResponse{}, m.err
}
func (m *mockScheduleService) Catalogs(_ context.Context) (*dto.CatalogsResponse, error) {
	return &dto.CatalogsResponse{}, m.err
}
func (m *mockScheduleService) WeeklyMatrix(_ context.Context, _ *dto.ScheduleEntryListRequest) (*dto.WeeklyMatrixResponse, error) {
	return &dto.WeeklyMatrixResponse{}, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf          *bytes.Buffer
	filename     string
	err          error
	instructorID int
}

func (m *mockExportService) ExportXML(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportExcel(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportICS(_ context.Context, instructorID int) (*bytes.Buffer, string, error) {
	m.instructorID = instructorID
	return m.buf, m.filename, m.err
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	list    []dto.NotificationResponse
	gotRole string
	err     error
}

func (m *mockNotificationService) Create(_ context.Context, req *dto.CreateNotificationRequest, _ string) (*dto.NotificationResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.NotificationResponse{ID: "ntf-1", Title: req.Title, Broadcast: req.UserID == nil}, nil
}
func (m *mockNotificationService) List(_ context.Context, _ string, _ *dto.NotificationListRequest) ([]dto.NotificationResponse, error) {
	return m.list, m.err
}
func (m *mockNotificationService) UnreadCount(_ context.Context, _ string) (*dto.UnreadCountResponse, error) {
	return &dto.UnreadCountResponse{Count: int64(len(m.list))}, m.err
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error { return m.err }
func (m *mockNotificationService) MarkAllRead(_ context.Context, _ string) (*dto.AffectedResponse, error) {
	return &dto.AffectedResponse{Affected: 3}, m.err
}
func (m *mockNotificationService) Delete(_ context.Context, _, _, role string) error {
	m.gotRole = role
	return m.err
}
func (m *mockNotificationService) DeleteRead(_ context.Context, _ string) (*dto.AffectedResponse, error) {
	return &dto.AffectedResponse{}, m.err
}

// ── Mock PreferenceService ──

type mockPreferenceService struct {
	pref         *dto.PreferenceResponse
	gotUserID    string
	instructorID int
	err          error
}

func (m *mockPreferenceService) GetMine(_ context.Context, userID string) (*dto.PreferenceResponse, error) {
	m.gotUserID = userID
	return m.pref, m.err
}
func (m *mockPreferenceService) UpdateMine(_ context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.PreferenceResponse{UserID: userID, Shift: req.Shift, PreferredDays: req.PreferredDays}, nil
}
func (m *mockPreferenceService) ForInstructor(_ context.Context, instructorID int) (*dto.PreferenceResponse, error) {
	m.instructorID = instructorID
	return m.pref, m.err
}
func (m *mockPreferenceService) CreateUnavailable(_ context.Context, userID string, req *dto.UnavailableTimeRequest) (*dto.UnavailableTimeResponse, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.UnavailableTimeResponse{ID: "ut-1", Day: req.Day, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}
func (m *mockPreferenceService) UpdateUnavailable(_ context.Context, _ string, req *dto.UnavailableTimeRequest, userID string) (*dto.UnavailableTimeResponse, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.UnavailableTimeResponse{ID: "ut-1", Day: req.Day, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}
func (m *mockPreferenceService) DeleteUnavailable(_ context.Context, _, userID string) error {
	m.gotUserID = userID
	return m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	setAuthAs(c, model.RoleAdmin)
}

func setAuthAs(c *gin.Context, role string) {
	c.Set(middleware.CtxUserID, "test-user-id")
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxClaims, &jwt.Claims{UserID: "test-user-id", Role: role, TokenType: jwt.TokenTypeAccess})
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func validEntryRequest() dto.ScheduleEntryRequest {
	return dto.ScheduleEntryRequest{
		ID:         "H010",
		Subject:    dto.SubjectInput{Code: "MAT", Name: "Cálculo"},
		Instructor: dto.InstructorInput{ID: 7, Name: "Ana"},
		Room:       dto.RoomInput{Code: "A-1"},
		Slots:      []dto.TimeSlotInput{{Day: "Lunes", StartTime: "08:00", EndTime: "10:00"}},
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "ana", Password: "password123"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	cases := []struct {
		name     string
		body     io.Reader
		err      error
		wantHTTP int
		wantCode int
	}{
		{"非法 JSON", strings.NewReader("invalid"), nil, http.StatusBadRequest, 10001},
		{"缺少密码", jsonBody(map[string]string{"username": "ana"}), nil, http.StatusBadRequest, 10001},
		{"凭据错误", jsonBody(dto.LoginRequest{Username: "ana", Password: "x"}), service.ErrInvalidCredentials, http.StatusUnauthorized, 11001},
		{"账号停用", jsonBody(dto.LoginRequest{Username: "ana", Password: "x"}), service.ErrUserDisabled, http.StatusForbidden, 11002},
		{"未知错误", jsonBody(dto.LoginRequest{Username: "ana", Password: "x"}), errors.New("db down"), http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{loginErr: tc.err})
			r := gin.New()
			r.POST("/auth/login", h.Login)
			w := serve(r, "POST", "/auth/login", tc.body)

			if w.Code != tc.wantHTTP {
				t.Errorf("expected %d, got %d", tc.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tc.wantCode {
				t.Errorf("expected error code %d, got %d", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshResult: &dto.TokenResponse{AccessToken: "new"}})
	r := gin.New()
	r.POST("/auth/refresh", h.Refresh)

	if w := serve(r, "POST", "/auth/refresh", jsonBody(dto.RefreshRequest{RefreshToken: "old"})); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := serve(r, "POST", "/auth/refresh", jsonBody(map[string]string{})); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing token, got %d", w.Code)
	}

	h = NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken})
	r = gin.New()
	r.POST("/auth/refresh", h.Refresh)
	if w := serve(r, "POST", "/auth/refresh", jsonBody(dto.RefreshRequest{RefreshToken: "old"})); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/logout", withAuth(h.Logout))
	w := serve(r, "POST", "/auth/logout", jsonBody(dto.LogoutRequest{RefreshToken: "rt"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != "test-user-id" || mock.logoutRefresh != "rt" {
		t.Errorf("登出参数未正确传递: %+v %q", mock.logoutClaims, mock.logoutRefresh)
	}

	// 空请求体同样允许
	w = serve(r, "POST", "/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with empty body, got %d", w.Code)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	r := gin.New()
	r.GET("/auth/me", h.Me)

	if w := serve(r, "GET", "/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	body := dto.ChangePasswordRequest{OldPassword: "password123", NewPassword: "password456"}

	h := NewAuthHandler(&mockAuthService{})
	r := gin.New()
	r.PUT("/auth/password", withAuth(h.ChangePassword))
	if w := serve(r, "PUT", "/auth/password", jsonBody(body)); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	h = NewAuthHandler(&mockAuthService{changePassErr: service.ErrWrongPassword})
	r = gin.New()
	r.PUT("/auth/password", withAuth(h.ChangePassword))
	w := serve(r, "PUT", "/auth/password", jsonBody(body))
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 11004 {
		t.Errorf("expected 400/11004, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

// ═══════════════════════════════════════════════════════════
// UserHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUserHandler_ListUsers(t *testing.T) {
	mock := &mockUserService{listResult: []dto.UserResponse{{ID: "u1"}}, listTotal: 1}
	h := NewUserHandler(mock)

	r := gin.New()
	r.GET("/users", withAuth(h.ListUsers))

	w := serve(r, "GET", "/users?role=docente", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listRole != model.RoleTeacher {
		t.Errorf("角色筛选未传递: %q", mock.listRole)
	}

	if w := serve(r, "GET", "/users?role=root", nil); w.Code != http.StatusBadRequest {
		t.Errorf("非法角色应返回 400，实际 %d", w.Code)
	}
}

func TestUserHandler_UpdateUser_PassesRole(t *testing.T) {
	mock := &mockUserService{getResult: &dto.UserResponse{ID: "u1"}}
	h := NewUserHandler(mock)

	r := gin.New()
	r.PUT("/users/:id", func(c *gin.Context) {
		setAuthAs(c, model.RoleStudent)
		h.UpdateUser(c)
	})
	w := serve(r, "PUT", "/users/u1", jsonBody(map[string]string{"full_name": "Ana María"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotRole != model.RoleStudent {
		t.Errorf("调用者角色未传递: %q", mock.gotRole)
	}
}

func TestUserHandler_Errors(t *testing.T) {
	cases := []struct {
		err      error
		wantHTTP int
		wantCode int
	}{
		{service.ErrUserNotFound, http.StatusNotFound, 12001},
		{service.ErrUserSelfDelete, http.StatusBadRequest, 12004},
		{service.ErrNoPermission, http.StatusForbidden, 12005},
		{pkgerrors.ErrOptimisticLock, http.StatusConflict, 12006},
	}
	for _, tc := range cases {
		h := NewUserHandler(&mockUserService{err: tc.err})
		r := gin.New()
		r.DELETE("/users/:id", withAuth(h.DeleteUser))

		w := serve(r, "DELETE", "/users/u1", nil)
		if w.Code != tc.wantHTTP || parseResponse(w).Code != tc.wantCode {
			t.Errorf("%v: expected %d/%d, got %d/%d", tc.err, tc.wantHTTP, tc.wantCode, w.Code, parseResponse(w).Code)
		}
	}
}

func TestUserHandler_CreateUser_Validation(t *testing.T) {
	h := NewUserHandler(&mockUserService{})
	r := gin.New()
	r.POST("/users", withAuth(h.CreateUser))

	ok := dto.CreateUserRequest{
		Username: "aperez", FullName: "Ana Pérez", Email: "ana@uni.edu",
		Password: "password123", Role: model.RoleTeacher,
	}
	if w := serve(r, "POST", "/users", jsonBody(ok)); w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	bad := ok
	bad.Email = "not-an-email"
	if w := serve(r, "POST", "/users", jsonBody(bad)); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_ImportXML_RawBody(t *testing.T) {
	mock := &mockScheduleService{importResult: &dto.ImportScheduleResponse{Entries: 2, Period: "2024-1"}}
	h := NewScheduleHandler(mock, 1<<20)

	r := gin.New()
	r.POST("/schedule/import", withAuth(h.ImportXML))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/schedule/import", strings.NewReader("<sistema_horarios/>"))
	req.Header.Set("Content-Type", "application/xml")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(mock.importData) != "<sistema_horarios/>" {
		t.Errorf("请求体未传递: %q", mock.importData)
	}
}

func TestScheduleHandler_ImportXML_Multipart(t *testing.T) {
	mock := &mockScheduleService{importResult: &dto.ImportScheduleResponse{}}
	h := NewScheduleHandler(mock, 1<<20)

	r := gin.New()
	r.POST("/schedule/import", withAuth(h.ImportXML))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "horarios.xml")
	fw.Write([]byte("<sistema_horarios></sistema_horarios>"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/schedule/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(string(mock.importData), "sistema_horarios") {
		t.Errorf("上传文件内容未传递: %q", mock.importData)
	}
}

func TestScheduleHandler_ImportXML_TooLargeOrEmpty(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{}, 16)
	r := gin.New()
	r.POST("/schedule/import", withAuth(h.ImportXML))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/schedule/import", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/schedule/import", strings.NewReader("  ")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", w.Code)
	}
}

func TestScheduleHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"获取失败", fmt.Errorf("%w: HTTP 404", service.ErrFetchFailure), http.StatusBadGateway, 16010},
		{"解析失败", fmt.Errorf("%w: EOF", service.ErrDecodeFailure), http.StatusUnprocessableEntity, 16011},
		{"重复 ID", fmt.Errorf("%w: H1", service.ErrDuplicateEntryID), http.StatusUnprocessableEntity, 16004},
		{"未配置来源", service.ErrSourceNotDefined, http.StatusServiceUnavailable, 16009},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewScheduleHandler(&mockScheduleService{err: tc.err}, 0)
			r := gin.New()
			r.POST("/schedule/import/source", withAuth(h.ImportFromSource))

			w := serve(r, "POST", "/schedule/import/source", nil)
			resp := parseResponse(w)
			if w.Code != tc.wantHTTP || resp.Code != tc.wantCode {
				t.Errorf("expected %d/%d, got %d/%d", tc.wantHTTP, tc.wantCode, w.Code, resp.Code)
			}
			if tc.wantHTTP != http.StatusServiceUnavailable && resp.Details == "" {
				t.Error("应在 details 中给出原因")
			}
		})
	}
}

func TestScheduleHandler_ListEntries(t *testing.T) {
	mock := &mockScheduleService{entries: []model.ScheduleEntry{{ID: "H001"}}}
	h := NewScheduleHandler(mock, 0)
	r := gin.New()
	r.GET("/schedule/entries", withAuth(h.ListEntries))

	w := serve(r, "GET", "/schedule/entries?day=Lunes&instructor_id=7&q=calc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listReq.Day != "Lunes" || mock.listReq.InstructorID == nil || *mock.listReq.InstructorID != 7 || mock.listReq.Q != "calc" {
		t.Errorf("筛选参数未正确绑定: %+v", mock.listReq)
	}

	mock.err = service.ErrInvalidDay
	if w := serve(r, "GET", "/schedule/entries?day=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_CreateEntry(t *testing.T) {
	mock := &mockScheduleService{entryResult: &dto.ScheduleEntryResponse{
		Version:  1,
		Warnings: []dto.ConflictResponse{{EntryA: "H001", EntryB: "H010"}},
	}}
	h := NewScheduleHandler(mock, 0)
	r := gin.New()
	r.POST("/schedule/entries", withAuth(h.CreateEntry))

	w := serve(r, "POST", "/schedule/entries", jsonBody(validEntryRequest()))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"warnings"`) {
		t.Error("响应应包含冲突警告")
	}

	noSlots := validEntryRequest()
	noSlots.Slots = nil
	if w := serve(r, "POST", "/schedule/entries", jsonBody(noSlots)); w.Code != http.StatusBadRequest {
		t.Errorf("缺少时段应返回 400，实际 %d", w.Code)
	}

	mock.err = service.ErrEntryExists
	if w := serve(r, "POST", "/schedule/entries", jsonBody(validEntryRequest())); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestScheduleHandler_UpdateEntry_OptimisticLock(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{err: pkgerrors.ErrOptimisticLock}, 0)
	r := gin.New()
	r.PUT("/schedule/entries/:id", withAuth(h.UpdateEntry))

	req := validEntryRequest()
	body := dto.UpdateScheduleEntryRequest{Subject: req.Subject, Instructor: req.Instructor, Room: req.Room, Slots: req.Slots}
	w := serve(r, "PUT", "/schedule/entries/H010", jsonBody(body))
	if w.Code != http.StatusConflict || parseResponse(w).Code != 16012 {
		t.Errorf("expected 409/16012, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestScheduleHandler_InstructorConflicts(t *testing.T) {
	mock := &mockScheduleService{conflicts: []dto.ConflictResponse{}}
	h := NewScheduleHandler(mock, 0)
	r := gin.New()
	r.GET("/conflicts/instructors/:id", withAuth(h.InstructorConflicts))

	if w := serve(r, "GET", "/conflicts/instructors/7", nil); w.Code != http.StatusOK || mock.instructorID != 7 {
		t.Errorf("expected 200 with id 7, got %d / %d", w.Code, mock.instructorID)
	}
	if w := serve(r, "GET", "/conflicts/instructors/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_MyEntries_NoLink(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{err: service.ErrNoInstructorLink}, 0)
	r := gin.New()
	r.GET("/schedule/my", withAuth(h.MyEntries))

	w := serve(r, "GET", "/schedule/my", nil)
	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 16007 {
		t.Errorf("expected 400/16007, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportXML(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("<sistema_horarios/>"), filename: "horarios_2024-1.xml"}
	h := NewExportHandler(mock)
	r := gin.New()
	r.GET("/export/xml", withAuth(h.ExportXML))

	w := serve(r, "GET", "/export/xml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "horarios_2024-1.xml") {
		t.Errorf("Content-Disposition 不正确: %s", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Content-Type 不正确: %s", ct)
	}
}

func TestExportHandler_ExportICS(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR"), filename: "horario_docente_7.ics"}
	h := NewExportHandler(mock)
	r := gin.New()
	r.GET("/export/ics", withAuth(h.ExportICS))

	w := serve(r, "GET", "/export/ics?instructor_id=7", nil)
	if w.Code != http.StatusOK || mock.instructorID != 7 {
		t.Errorf("expected 200 for instructor 7, got %d / %d", w.Code, mock.instructorID)
	}
	if w := serve(r, "GET", "/export/ics", nil); w.Code != http.StatusBadRequest {
		t.Errorf("缺少 instructor_id 应返回 400，实际 %d", w.Code)
	}

	mock.err = service.ErrExportNoEntries
	if w := serve(r, "GET", "/export/ics?instructor_id=9", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNotificationHandler_Create(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})
	r := gin.New()
	r.POST("/notifications", withAuth(h.CreateNotification))

	w := serve(r, "POST", "/notifications", jsonBody(dto.CreateNotificationRequest{
		Type: model.NotificationInfo, Title: "Aviso", Message: "Clases suspendidas",
	}))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	w = serve(r, "POST", "/notifications", jsonBody(map[string]string{"type": "spam", "title": "x", "message": "y"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法类型应返回 400，实际 %d", w.Code)
	}
}

func TestNotificationHandler_Delete(t *testing.T) {
	mock := &mockNotificationService{err: service.ErrNoPermission}
	h := NewNotificationHandler(mock)
	r := gin.New()
	r.DELETE("/notifications/:id", func(c *gin.Context) {
		setAuthAs(c, model.RoleStudent)
		h.DeleteNotification(c)
	})

	w := serve(r, "DELETE", "/notifications/ntf-1", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if mock.gotRole != model.RoleStudent {
		t.Errorf("角色未传递: %q", mock.gotRole)
	}
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{list: make([]dto.NotificationResponse, 2)})
	r := gin.New()
	r.GET("/notifications/unread-count", withAuth(h.UnreadCount))

	w := serve(r, "GET", "/notifications/unread-count", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// PreferenceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestPreferenceHandler_UpdateMine(t *testing.T) {
	mock := &mockPreferenceService{}
	h := NewPreferenceHandler(mock)

	r := gin.New()
	r.PUT("/preferences/me", withAuth(h.UpdateMine))

	w := serve(r, "PUT", "/preferences/me", jsonBody(dto.UpdatePreferenceRequest{Shift: "tarde", PreferredDays: []string{"Lunes"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotUserID != "test-user-id" {
		t.Errorf("应使用当前用户，实际 %q", mock.gotUserID)
	}

	w = serve(r, "PUT", "/preferences/me", jsonBody(map[string]string{"shift": "noche"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法时段应返回 400，实际 %d", w.Code)
	}
}

func TestPreferenceHandler_CreateUnavailable(t *testing.T) {
	mock := &mockPreferenceService{}
	h := NewPreferenceHandler(mock)

	r := gin.New()
	r.POST("/preferences/me/unavailable", withAuth(h.CreateUnavailable))

	w := serve(r, "POST", "/preferences/me/unavailable",
		jsonBody(dto.UnavailableTimeRequest{Day: "Martes", StartTime: "14:00", EndTime: "16:00"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, "POST", "/preferences/me/unavailable",
		jsonBody(dto.UnavailableTimeRequest{Day: "Martes", StartTime: "2pm", EndTime: "16:00"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法时间格式应返回 400，实际 %d", w.Code)
	}
}

func TestPreferenceHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		wantCode int
	}{
		{service.ErrUnavailableNotFound, http.StatusNotFound, 18001},
		{service.ErrUnavailableNotOwner, http.StatusForbidden, 18002},
		{fmt.Errorf("%w: x", service.ErrInvalidTimeSlot), http.StatusUnprocessableEntity, 18003},
		{fmt.Errorf("%w: NOPE", service.ErrSubjectNotFound), http.StatusUnprocessableEntity, 18005},
	}
	for _, tc := range cases {
		h := NewPreferenceHandler(&mockPreferenceService{err: tc.err})
		r := gin.New()
		r.DELETE("/preferences/me/unavailable/:id", withAuth(h.DeleteUnavailable))

		w := serve(r, "DELETE", "/preferences/me/unavailable/ut-1", nil)
		if w.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
		}
		if resp := parseResponse(w); resp.Code != tc.wantCode {
			t.Errorf("%v: expected code %d, got %d", tc.err, tc.wantCode, resp.Code)
		}
	}
}

func TestPreferenceHandler_ForInstructor(t *testing.T) {
	mock := &mockPreferenceService{pref: &dto.PreferenceResponse{Shift: "mixto"}}
	h := NewPreferenceHandler(mock)

	r := gin.New()
	r.GET("/preferences/instructors/:id", withAuth(h.ForInstructor))

	w := serve(r, "GET", "/preferences/instructors/7", nil)
	if w.Code != http.StatusOK || mock.instructorID != 7 {
		t.Errorf("expected 200 for instructor 7, got %d (%d)", w.Code, mock.instructorID)
	}
	w = serve(r, "GET", "/preferences/instructors/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法编号应返回 400，实际 %d", w.Code)
	}
}

func TestMustGetClaims_WrongType(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)
	c.Set(middleware.CtxClaims, "not-claims")

	if _, ok := MustGetClaims(c); ok {
		t.Error("类型不匹配时应返回 false")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestValidateHHMM(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{validate: &dto.ValidateEntryResponse{Valid: true}}, 0)
	r := gin.New()
	r.POST("/schedule/entries/validate", withAuth(h.ValidateEntry))

	if w := serve(r, "POST", "/schedule/entries/validate", jsonBody(validEntryRequest())); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	bad := validEntryRequest()
	bad.Slots[0].StartTime = "25:00"
	if w := serve(r, "POST", "/schedule/entries/validate", jsonBody(bad)); w.Code != http.StatusBadRequest {
		t.Errorf("非法时间应返回 400，实际 %d", w.Code)
	}
}
