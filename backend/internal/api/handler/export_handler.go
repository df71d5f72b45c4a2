package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"sga-horarios/backend/internal/service"
	"sga-horarios/backend/pkg/response"
)

// 导出文件 Content-Type
const (
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXML 导出课表文档
// GET /api/v1/export/xml
func (h *ExportHandler) ExportXML(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportXML(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXML, buf.Bytes())
}

// ExportExcel 导出 Excel 周网格与条目明细
// GET /api/v1/export/excel
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportExcel(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportICS 导出指定教师的 iCalendar 日历
// GET /api/v1/export/ics?instructor_id=7
func (h *ExportHandler) ExportICS(c *gin.Context) {
	instructorID, err := strconv.Atoi(c.Query("instructor_id"))
	if err != nil || instructorID <= 0 {
		response.BadRequest(c, 10001, "instructor_id 无效")
		return
	}

	buf, filename, err := h.exportSvc.ExportICS(c.Request.Context(), instructorID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEntries):
		response.NotFound(c, 17001, "没有可导出的课表条目")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
