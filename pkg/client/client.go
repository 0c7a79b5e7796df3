package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkin-service/internal/dto"
)

// DefaultPhotoName 照片字段的文件名
const DefaultPhotoName = "capture.jpg"

// SubmitPath 默认提交路径
const SubmitPath = "/api/check-in"

// APIError 服务端非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("check-in rejected (%d): %s", e.StatusCode, e.Message)
}

// CheckInRequest 单次提交
type CheckInRequest struct {
	Username  string
	CheckType string
	Latitude  float64
	Longitude float64
	PhotoName string // 为空时使用 DefaultPhotoName
	Photo     io.Reader
}

// Client 签到服务 HTTP 客户端
type Client struct {
	baseURL string
	path    string
	client  *http.Client
}

// Option Client 配置项
type Option func(*Client)

// WithHTTPClient 替换默认 http.Client（超时 12s）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithPath 覆盖 SubmitPath
func WithPath(path string) Option {
	return func(c *Client) { c.path = path }
}

// New 创建 Client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		path:    SubmitPath,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckIn 提交一次签到，非 2xx 响应返回 *APIError
func (c *Client) CheckIn(ctx context.Context, in CheckInRequest) (*dto.CheckInResponse, error) {
	if in.Photo == nil {
		return nil, errors.New("check-in: photo is required")
	}

	body, contentType, err := encodeForm(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check-in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var out dto.CheckInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode check-in response: %w", err)
	}
	return &out, nil
}

func encodeForm(in CheckInRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"username", in.Username},
		{"checkType", in.CheckType},
		{"latitude", strconv.FormatFloat(in.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(in.Longitude, 'f', -1, 64)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	name := in.PhotoName
	if name == "" {
		name = DefaultPhotoName
	}
	part, err := w.CreateFormFile("photo", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, in.Photo); err != nil {
		return nil, "", fmt.Errorf("read photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = strings.TrimSpace(body.Error)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
