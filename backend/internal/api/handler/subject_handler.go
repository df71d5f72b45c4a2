package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/service"
	pkgerrors "sga-horarios/backend/pkg/errors"
	"sga-horarios/backend/pkg/response"
)

// SubjectHandler 科目目录 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects 科目列表，可按学院筛选
// GET /api/v1/subjects?faculty_id=xxx
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	var req dto.SubjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.subjectSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetSubject 科目详情
// GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	subject, err := h.subjectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// CreateSubject 创建科目
// POST /api/v1/subjects
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.Created(c, subject)
}

// UpdateSubject 更新科目
// PUT /api/v1/subjects/:id
func (h *SubjectHandler) UpdateSubject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.subjectSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// DeleteSubject 删除科目
// DELETE /api/v1/subjects/:id
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.subjectSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 14001, "科目不存在")
	case errors.Is(err, service.ErrSubjectCodeExists):
		response.Conflict(c, 14002, "科目编码已存在")
	case errors.Is(err, service.ErrFacultyNotFound):
		response.BadRequest(c, 14003, "所属学院不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14004, "数据已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
