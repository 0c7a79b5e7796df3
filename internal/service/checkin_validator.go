package service

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"checkin-service/internal/dto"
	"checkin-service/internal/model"
)

// ── 签到校验错误 ──

var (
	ErrMethodNotAllowed = errors.New("only POST method is accepted")
	ErrUsernameRequired = errors.New("username is required")
	ErrInvalidUsername  = errors.New("invalid username format")
	ErrInvalidInput     = errors.New("invalid input")
)

// ValidationError 中收集的拒绝原因
const (
	ReasonInvalidCheckType   = "Invalid checkType."
	ReasonInvalidCoordinates = "Invalid coordinates."
	ReasonPhotoMissing       = "Photo is required or there was an upload error."
)

// ValidationError 列出提交违反的全部字段规则
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidInput.Error() + ": " + strings.Join(e.Reasons, " ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// CheckEventDraft 已校验、尚未持久化的提交
type CheckEventDraft struct {
	Username  string // 原样保存为记录的 user_id
	CheckType string
	Latitude  float64
	Longitude float64
	Photo     *dto.PhotoUpload
}

// StorageLocation 照片存储位置
type StorageLocation struct {
	SanitizedIdentity string
}

var (
	// \p{Thai} 覆盖整个泰文字符块（含元音和声调符号）
	forbiddenIdentityChars = regexp.MustCompile(`[^\p{Thai}a-zA-Z0-9_-]`)
	numericPattern         = regexp.MustCompile(`^[ \t\n\r\v\f]*[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?[ \t\n\r\v\f]*$`)
)

// SanitizeIdentity 只保留泰文字符、ASCII 字母数字、下划线和连字符
func SanitizeIdentity(identity string) string {
	return forbiddenIdentityChars.ReplaceAllString(identity, "")
}

// ParseCoordinate 解析经纬度
// 支持整数、小数、正负号和指数形式，忽略首尾空白
func ParseCoordinate(s string) (float64, bool) {
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ValidateSubmission 校验提交，不访问存储和数据库
// 请求方法和用户名错误单独返回；
// 字段错误合并为一个 *ValidationError
func ValidateSubmission(method string, form *dto.CheckInForm) (*CheckEventDraft, *StorageLocation, error) {
	if method != http.MethodPost {
		return nil, nil, ErrMethodNotAllowed
	}

	if strings.TrimSpace(form.Username) == "" {
		return nil, nil, ErrUsernameRequired
	}
	sanitized := SanitizeIdentity(form.Username)
	if sanitized == "" {
		return nil, nil, ErrInvalidUsername
	}

	var reasons []string

	if form.CheckType != model.CheckTypeIn && form.CheckType != model.CheckTypeOut {
		reasons = append(reasons, ReasonInvalidCheckType)
	}

	lat, latOK := ParseCoordinate(form.Latitude)
	lon, lonOK := ParseCoordinate(form.Longitude)
	if !latOK || !lonOK {
		reasons = append(reasons, ReasonInvalidCoordinates)
	}

	if form.Photo == nil || form.PhotoErr != nil || form.Photo.Size <= 0 {
		reasons = append(reasons, ReasonPhotoMissing)
	}

	if len(reasons) > 0 {
		return nil, nil, &ValidationError{Reasons: reasons}
	}

	return &CheckEventDraft{
			Username:  form.Username,
			CheckType: form.CheckType,
			Latitude:  lat,
			Longitude: lon,
			Photo:     form.Photo,
		}, &StorageLocation{
			SanitizedIdentity: sanitized,
		}, nil
}
