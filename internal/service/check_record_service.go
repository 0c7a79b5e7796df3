package service

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/dto"
	"checkin-service/internal/model"
	"checkin-service/internal/repository"
	pkgerrors "checkin-service/pkg/errors"
)

// ── 签到记录查询错误 ──

var (
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrCheckRecordNotFound = errors.New("check record not found")
)

const dateLayout = "2006-01-02"

// CheckRecordService 签到记录查询服务
type CheckRecordService interface {
	List(ctx context.Context, req *dto.CheckRecordListRequest) ([]dto.CheckRecordResponse, int64, error)
	Get(ctx context.Context, id uint64) (*dto.CheckRecordResponse, error)
}

// PhotoLinker 将照片存储路径转换为访问 URL
type PhotoLinker struct {
	BaseURL     string // 如 http://localhost:8080
	StorageRoot string
	MountPath   string // 存储根目录的挂载路由，如 /uploads
}

// URL 路径不在存储根目录下时返回空串
func (l PhotoLinker) URL(path string) string {
	if l.BaseURL == "" {
		return ""
	}
	rel, err := filepath.Rel(l.StorageRoot, filepath.FromSlash(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(l.BaseURL, "/") + l.MountPath + "/" + strings.Join(segments, "/")
}

type checkRecordService struct {
	repo   *repository.Repository
	linker PhotoLinker
	loc    *time.Location
	logger *zap.Logger
}

// NewCheckRecordService 创建 CheckRecordService，日期筛选按 loc 解析
func NewCheckRecordService(repo *repository.Repository, linker PhotoLinker, loc *time.Location, logger *zap.Logger) CheckRecordService {
	if loc == nil {
		loc = time.UTC
	}
	return &checkRecordService{repo: repo, linker: linker, loc: loc, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *checkRecordService) List(ctx context.Context, req *dto.CheckRecordListRequest) ([]dto.CheckRecordResponse, int64, error) {
	req.Normalize()

	filter, err := buildFilter(req, s.loc)
	if err != nil {
		return nil, 0, err
	}
	filter.Offset = (req.Page - 1) * req.PageSize
	filter.Limit = req.PageSize

	records, total, err := s.repo.CheckRecord.List(ctx, filter)
	if err != nil {
		s.logger.Error("list check records failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CheckRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, s.toResponse(&records[i]))
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *checkRecordService) Get(ctx context.Context, id uint64) (*dto.CheckRecordResponse, error) {
	rec, err := s.repo.CheckRecord.GetByID(ctx, id)
	if errors.Is(err, pkgerrors.ErrRecordNotFound) {
		return nil, ErrCheckRecordNotFound
	}
	if err != nil {
		s.logger.Error("get check record failed", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	resp := s.toResponse(rec)
	return &resp, nil
}

// ── 内部辅助 ──

func buildFilter(req *dto.CheckRecordListRequest, loc *time.Location) (repository.CheckRecordFilter, error) {
	filter := repository.CheckRecordFilter{
		UserID:    req.Username,
		CheckType: req.CheckType,
	}

	if req.From != "" {
		from, err := time.ParseInLocation(dateLayout, req.From, loc)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(dateLayout, req.To, loc)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		// 包含结束日当天
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, ErrInvalidDateRange
	}

	return filter, nil
}

func (s *checkRecordService) toResponse(rec *model.CheckRecord) dto.CheckRecordResponse {
	return dto.CheckRecordResponse{
		ID:        rec.ID,
		Username:  rec.UserID,
		CheckType: rec.CheckType,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		PhotoPath: rec.PhotoPath,
		PhotoURL:  s.linker.URL(rec.PhotoPath),
		CreatedAt: rec.CreatedAt.In(s.loc).Format(time.RFC3339),
	}
}
