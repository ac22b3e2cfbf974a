package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"levelhub/internal/service"
)

const (
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

// ExportAttendance 导出课程出勤表
// GET /api/v1/lessons/:id/attendance.xlsx
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	lessonID, ok := parseID(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), ident, lessonID)
	if err != nil {
		fail(c, err)
		return
	}

	download(c, filename, contentTypeXLSX, buf)
}

// ExportLogCalendar 导出注册课时日历
// GET /api/v1/registrations/:id/logs.ics
func (h *ExportHandler) ExportLogCalendar(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	regID, ok := parseID(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportLogCalendar(c.Request.Context(), ident, regID)
	if err != nil {
		fail(c, err)
		return
	}

	download(c, filename, contentTypeICS, buf)
}

// download 写出附件下载响应
func download(c *gin.Context, filename, contentType string, buf *bytes.Buffer) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
