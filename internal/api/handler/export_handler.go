package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"checkin-service/internal/dto"
	"checkin-service/internal/service"
	"checkin-service/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCheckRecords 导出签到记录 .xlsx
// GET /api/v1/check-records/export
func (h *ExportHandler) ExportCheckRecords(c *gin.Context) {
	var req dto.CheckRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, msgInvalidQuery)
		return
	}

	buf, filename, err := h.exportSvc.ExportCheckRecords(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, msgInvalidDateRange)
	case errors.Is(err, service.ErrExportNoRecords):
		response.NotFound(c, "No check records match the filter.")
	case errors.Is(err, service.ErrExportTooLarge):
		response.BadRequest(c, "Too many check records, narrow the filter.")
	default:
		response.InternalError(c, "")
	}
}
