package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-service/internal/dto"
	"checkin-service/internal/service"
	"checkin-service/pkg/response"
)

// 对外错误消息；内部细节只记日志
const (
	msgMethodNotAllowed    = "Only POST method is accepted."
	msgUsernameRequired    = "Username is required."
	msgInvalidUsername     = "Invalid username format."
	msgInvalidInput        = "Invalid input."
	msgDatabaseUnavailable = "Database connection failed."
	msgStorageUnavailable  = "User upload directory does not exist and could not be created."
	msgStorageNotWritable  = "Server configuration error: User upload directory is not writable."
	msgStorageWriteFailed  = "Failed to save uploaded file."
	msgPersistenceFailed   = "Failed to save record to database."
	msgBodyTooLarge        = "Request body too large."
)

// defaultMaxMemory multipart 内存上限，超出部分写临时文件
const defaultMaxMemory = 8 << 20

// CheckInHandler 签到提交
type CheckInHandler struct {
	checkInSvc service.CheckInService
	maxMemory  int64
}

// NewCheckInHandler 创建 CheckInHandler
func NewCheckInHandler(checkInSvc service.CheckInService, maxMemory int64) *CheckInHandler {
	if maxMemory <= 0 {
		maxMemory = defaultMaxMemory
	}
	return &CheckInHandler{checkInSvc: checkInSvc, maxMemory: maxMemory}
}

// Submit 记录签到/签退
// POST /api/check-in
// POST /api/v1/check-ins
//
// 注册所有方法，非 POST 请求返回 JSON 405
func (h *CheckInHandler) Submit(c *gin.Context) {
	form := &dto.CheckInForm{}

	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				_ = c.Error(err)
				response.Error(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
				return
			}
			// 非 multipart：urlencoded 字段仍可解析，照片视为缺失
		}
		defer func() {
			if c.Request.MultipartForm != nil {
				_ = c.Request.MultipartForm.RemoveAll()
			}
		}()

		form.Username = c.PostForm("username")
		form.CheckType = c.PostForm("checkType")
		form.Latitude = c.PostForm("latitude")
		form.Longitude = c.PostForm("longitude")

		fh, err := c.FormFile("photo")
		switch {
		case err == nil:
			form.Photo = dto.NewPhotoUpload(fh)
		case !errors.Is(err, http.ErrMissingFile):
			form.PhotoErr = err
		}
	}

	result, err := h.checkInSvc.Record(c.Request.Context(), c.Request.Method, form)
	if err != nil {
		h.handleCheckInError(c, err)
		return
	}

	response.Created(c, result)
}

// handleCheckInError 将 Service 错误映射为状态码和消息
func (h *CheckInHandler) handleCheckInError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrMethodNotAllowed):
		c.Header("Allow", http.MethodPost)
		response.MethodNotAllowed(c, msgMethodNotAllowed)
	case errors.Is(err, service.ErrUsernameRequired):
		response.BadRequest(c, msgUsernameRequired)
	case errors.Is(err, service.ErrInvalidUsername):
		response.BadRequest(c, msgInvalidUsername)
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, msgInvalidInput)
	case errors.Is(err, service.ErrDatabaseUnavailable):
		response.InternalError(c, msgDatabaseUnavailable)
	case errors.Is(err, service.ErrStorageNotWritable):
		response.InternalError(c, msgStorageNotWritable)
	case errors.Is(err, service.ErrStorageUnavailable):
		response.InternalError(c, msgStorageUnavailable)
	case errors.Is(err, service.ErrStorageWriteFailed):
		response.InternalError(c, msgStorageWriteFailed)
	case errors.Is(err, service.ErrPersistenceFailed):
		response.InternalError(c, msgPersistenceFailed)
	default:
		response.InternalError(c, "")
	}
}
