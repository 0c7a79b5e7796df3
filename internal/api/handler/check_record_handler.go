package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"checkin-service/internal/dto"
	"checkin-service/internal/service"
	"checkin-service/pkg/response"
)

const (
	msgInvalidQuery     = "Invalid query parameters."
	msgInvalidDateRange = "Invalid date range."
	msgInvalidRecordID  = "Invalid record id."
	msgRecordNotFound   = "Check record not found."
)

// CheckRecordHandler 签到记录查询（只读）
type CheckRecordHandler struct {
	checkRecordSvc service.CheckRecordService
}

// NewCheckRecordHandler 创建 CheckRecordHandler
func NewCheckRecordHandler(checkRecordSvc service.CheckRecordService) *CheckRecordHandler {
	return &CheckRecordHandler{checkRecordSvc: checkRecordSvc}
}

// ListCheckRecords 签到记录列表（按时间倒序）
// GET /api/v1/check-records
func (h *CheckRecordHandler) ListCheckRecords(c *gin.Context) {
	var req dto.CheckRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, msgInvalidQuery)
		return
	}

	list, total, err := h.checkRecordSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleCheckRecordError(c, err)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// GetCheckRecord 单条签到记录
// GET /api/v1/check-records/:id
func (h *CheckRecordHandler) GetCheckRecord(c *gin.Context) {
	var req dto.CheckRecordIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		_ = c.Error(err)
		response.BadRequest(c, msgInvalidRecordID)
		return
	}

	rec, err := h.checkRecordSvc.Get(c.Request.Context(), req.ID)
	if err != nil {
		h.handleCheckRecordError(c, err)
		return
	}

	response.OK(c, rec)
}

func (h *CheckRecordHandler) handleCheckRecordError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, msgInvalidDateRange)
	case errors.Is(err, service.ErrCheckRecordNotFound):
		response.NotFound(c, msgRecordNotFound)
	default:
		response.InternalError(c, "")
	}
}
