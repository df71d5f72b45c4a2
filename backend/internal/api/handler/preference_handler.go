package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/service"
	"sga-horarios/backend/pkg/response"
)

// PreferenceHandler 教师偏好 HTTP 处理器
type PreferenceHandler struct {
	preferenceSvc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(preferenceSvc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceSvc: preferenceSvc}
}

// GetMine 本人偏好与不可用时间
// GET /api/v1/preferences/me
func (h *PreferenceHandler) GetMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pref, err := h.preferenceSvc.GetMine(c.Request.Context(), userID)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, pref)
}

// UpdateMine 保存本人偏好
// PUT /api/v1/preferences/me
func (h *PreferenceHandler) UpdateMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pref, err := h.preferenceSvc.UpdateMine(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, pref)
}

// ForInstructor 管理员查看指定教师的偏好
// GET /api/v1/preferences/instructors/:id
func (h *PreferenceHandler) ForInstructor(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "教师编号无效")
		return
	}

	pref, err := h.preferenceSvc.ForInstructor(c.Request.Context(), id)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, pref)
}

// CreateUnavailable 添加不可用时间
// POST /api/v1/preferences/me/unavailable
func (h *PreferenceHandler) CreateUnavailable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UnavailableTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ut, err := h.preferenceSvc.CreateUnavailable(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.Created(c, ut)
}

// UpdateUnavailable 修改不可用时间
// PUT /api/v1/preferences/me/unavailable/:id
func (h *PreferenceHandler) UpdateUnavailable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UnavailableTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ut, err := h.preferenceSvc.UpdateUnavailable(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, ut)
}

// DeleteUnavailable 删除不可用时间
// DELETE /api/v1/preferences/me/unavailable/:id
func (h *PreferenceHandler) DeleteUnavailable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.preferenceSvc.DeleteUnavailable(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *PreferenceHandler) handlePreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnavailableNotFound):
		response.NotFound(c, 18001, "不可用时间记录不存在")
	case errors.Is(err, service.ErrUnavailableNotOwner):
		response.Forbidden(c, 18002, "无权操作此不可用时间记录")
	case errors.Is(err, service.ErrInvalidTimeSlot):
		response.UnprocessableEntity(c, 18003, "时段无效", err.Error())
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 18004, "星期取值无效")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.UnprocessableEntity(c, 18005, "偏好科目不在科目目录中", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 18006, "用户不存在")
	default:
		response.InternalError(c)
	}
}
