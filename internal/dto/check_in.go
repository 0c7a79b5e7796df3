package dto

import (
	"io"
	"mime/multipart"
)

// ── 签到提交 ──

// CheckInForm 提交的原始 multipart 字段
// 字段保持原样，校验在 Service 层完成
type CheckInForm struct {
	Username  string
	CheckType string
	Latitude  string
	Longitude string
	Photo     *PhotoUpload
	// PhotoErr 照片已上传但读取失败时设置
	PhotoErr error
}

// PhotoUpload 待转存的上传照片
type PhotoUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// NewPhotoUpload 由 multipart 文件头构造
func NewPhotoUpload(fh *multipart.FileHeader) *PhotoUpload {
	return &PhotoUpload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// CheckInResponse 201 响应体
type CheckInResponse struct {
	Message  string `json:"message"`
	RecordID uint64 `json:"record_id"`
}
