package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/service"
	pkgerrors "sga-horarios/backend/pkg/errors"
	"sga-horarios/backend/pkg/response"
)

// 未配置时上传文档的默认大小上限
const defaultMaxUploadBytes = 5 << 20

// ScheduleHandler 课表模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc    service.ScheduleService
	maxUploadBytes int64
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, maxUploadBytes int64) *ScheduleHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ScheduleHandler{scheduleSvc: scheduleSvc, maxUploadBytes: maxUploadBytes}
}

// ── 导入 ──

// ImportXML 上传课表文档并替换工作副本
// POST /api/v1/schedule/import
// 支持 multipart 字段 file，或直接以 application/xml 作为请求体
func (h *ScheduleHandler) ImportXML(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.readUpload(c)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "文件过大")
			return
		}
		response.BadRequest(c, 10001, "请上传课表 XML 文件")
		return
	}

	result, err := h.scheduleSvc.ImportXML(c.Request.Context(), data, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportFromSource 从配置的文档地址重新加载课表
// POST /api/v1/schedule/import/source
func (h *ScheduleHandler) ImportFromSource(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.ImportFromSource(c.Request.Context(), callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

var errUploadTooLarge = errors.New("upload too large")

func (h *ScheduleHandler) readUpload(c *gin.Context) ([]byte, error) {
	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		if fh.Size > h.maxUploadBytes {
			return nil, errUploadTooLarge
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}
	if src == nil {
		return nil, io.ErrUnexpectedEOF
	}

	data, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errUploadTooLarge
		}
		return nil, err
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, errUploadTooLarge
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// ── 查询 ──

// GetSystem 完整课表（元数据 + 条目）
// GET /api/v1/schedule
func (h *ScheduleHandler) GetSystem(c *gin.Context) {
	sys, err := h.scheduleSvc.GetSystem(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, dto.ScheduleSystemResponse{Metadata: sys.Metadata, Entries: sys.Entries})
}

// ListEntries 条目列表
// GET /api/v1/schedule/entries?day=&level=&instructor_id=&room_code=&status=&q=
func (h *ScheduleHandler) ListEntries(c *gin.Context) {
	var req dto.ScheduleEntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entries, err := h.scheduleSvc.ListEntries(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// MyEntries 当前教师的课表
// GET /api/v1/schedule/my
func (h *ScheduleHandler) MyEntries(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entries, err := h.scheduleSvc.MyEntries(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetEntry 条目详情（含每周课时与占用率）
// GET /api/v1/schedule/entries/:id
func (h *ScheduleHandler) GetEntry(c *gin.Context) {
	detail, err := h.scheduleSvc.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, detail)
}

// ── 维护 ──

// CreateEntry 新建条目，返回冲突警告
// POST /api/v1/schedule/entries
func (h *ScheduleHandler) CreateEntry(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.CreateEntry(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateEntry 全量更新条目，返回冲突警告
// PUT /api/v1/schedule/entries/:id
func (h *ScheduleHandler) UpdateEntry(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.UpdateEntry(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteEntry 删除条目
// DELETE /api/v1/schedule/entries/:id
func (h *ScheduleHandler) DeleteEntry(c *gin.Context) {
	if err := h.scheduleSvc.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// UpdateMetadata 更新课表元数据
// PUT /api/v1/schedule/metadata
func (h *ScheduleHandler) UpdateMetadata(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	meta, err := h.scheduleSvc.UpdateMetadata(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, meta)
}

// ── 冲突 ──

// ValidateEntry 排课表单的冲突预检，不落库
// POST /api/v1/schedule/entries/validate
func (h *ScheduleHandler) ValidateEntry(c *gin.Context) {
	var req dto.ScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.ValidateEntry(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// AllConflicts 按教师与教室分组的全部冲突
// GET /api/v1/schedule/conflicts
func (h *ScheduleHandler) AllConflicts(c *gin.Context) {
	groups, err := h.scheduleSvc.AllConflicts(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": groups})
}

// InstructorConflicts 指定教师的冲突
// GET /api/v1/schedule/conflicts/instructors/:id
func (h *ScheduleHandler) InstructorConflicts(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		response.BadRequest(c, 10001, "教师编号无效")
		return
	}

	list, err := h.scheduleSvc.InstructorConflicts(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// RoomConflicts 指定教室的冲突
// GET /api/v1/schedule/conflicts/rooms/:code
func (h *ScheduleHandler) RoomConflicts(c *gin.Context) {
	list, err := h.scheduleSvc.RoomConflicts(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ── 统计与视图 ──

// Statistics 课表统计
// GET /api/v1/schedule/stats
func (h *ScheduleHandler) Statistics(c *gin.Context) {
	stats, err := h.scheduleSvc.Statistics(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, stats)
}

// Catalogs 筛选下拉项：层级、教师、教室
// GET /api/v1/schedule/catalogs
func (h *ScheduleHandler) Catalogs(c *gin.Context) {
	cat, err := h.scheduleSvc.Catalogs(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, cat)
}

// WeeklyMatrix 周视图，接受与条目列表相同的筛选参数
// GET /api/v1/schedule/matrix
func (h *ScheduleHandler) WeeklyMatrix(c *gin.Context) {
	var req dto.ScheduleEntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	m, err := h.scheduleSvc.WeeklyMatrix(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, m)
}

// handleScheduleError 统一处理课表模块业务错误
// 获取与解析失败都提示"无法加载课表"，details 给出具体原因
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 16001, "课表条目不存在")
	case errors.Is(err, service.ErrEntryExists):
		response.Conflict(c, 16002, "课表条目 ID 已存在")
	case errors.Is(err, service.ErrEntryIDRequired):
		response.BadRequest(c, 16003, "课表条目 ID 不能为空")
	case errors.Is(err, service.ErrDuplicateEntryID):
		response.UnprocessableEntity(c, 16004, "课表文档中存在重复的条目 ID", err.Error())
	case errors.Is(err, service.ErrInvalidTimeSlot):
		response.UnprocessableEntity(c, 16005, "时段无效", err.Error())
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 16006, "星期取值无效")
	case errors.Is(err, service.ErrNoInstructorLink):
		response.BadRequest(c, 16007, "当前账号未关联教师编号")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 16008, "用户不存在")
	case errors.Is(err, service.ErrSourceNotDefined):
		response.Error(c, http.StatusServiceUnavailable, 16009, "未配置课表文档来源")
	case errors.Is(err, service.ErrFetchFailure):
		response.BadGateway(c, 16010, "无法加载课表", err.Error())
	case errors.Is(err, service.ErrDecodeFailure):
		response.UnprocessableEntity(c, 16011, "无法加载课表", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 16012, "数据已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
