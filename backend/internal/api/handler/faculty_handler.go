package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/service"
	pkgerrors "sga-horarios/backend/pkg/errors"
	"sga-horarios/backend/pkg/response"
)

// FacultyHandler 学院模块 HTTP 处理器
type FacultyHandler struct {
	facultySvc service.FacultyService
}

// NewFacultyHandler 创建 FacultyHandler
func NewFacultyHandler(facultySvc service.FacultyService) *FacultyHandler {
	return &FacultyHandler{facultySvc: facultySvc}
}

// ListFaculties 学院列表
// GET /api/v1/faculties
func (h *FacultyHandler) ListFaculties(c *gin.Context) {
	list, err := h.facultySvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetFaculty 学院详情
// GET /api/v1/faculties/:id
func (h *FacultyHandler) GetFaculty(c *gin.Context) {
	faculty, err := h.facultySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleFacultyError(c, err)
		return
	}

	response.OK(c, faculty)
}

// CreateFaculty 创建学院
// POST /api/v1/faculties
func (h *FacultyHandler) CreateFaculty(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	faculty, err := h.facultySvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleFacultyError(c, err)
		return
	}

	response.Created(c, faculty)
}

// UpdateFaculty 更新学院
// PUT /api/v1/faculties/:id
func (h *FacultyHandler) UpdateFaculty(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	faculty, err := h.facultySvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleFacultyError(c, err)
		return
	}

	response.OK(c, faculty)
}

// DeleteFaculty 删除学院
// DELETE /api/v1/faculties/:id
func (h *FacultyHandler) DeleteFaculty(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.facultySvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleFacultyError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *FacultyHandler) handleFacultyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFacultyNotFound):
		response.NotFound(c, 13001, "学院不存在")
	case errors.Is(err, service.ErrFacultyNameExists):
		response.Conflict(c, 13002, "学院名称已存在")
	case errors.Is(err, service.ErrFacultyInUse):
		response.BadRequest(c, 13003, "学院下仍有科目，无法删除")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13004, "数据已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
