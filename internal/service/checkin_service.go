package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"checkin-service/internal/dto"
	"checkin-service/internal/model"
	"checkin-service/internal/repository"
	"checkin-service/pkg/metrics"
	"checkin-service/pkg/storage"
)

// ── 签到记录错误 ──

var (
	ErrDatabaseUnavailable = errors.New("database connection failed")
	ErrStorageUnavailable  = errors.New("user upload directory does not exist and could not be created")
	ErrStorageNotWritable  = errors.New("user upload directory is not writable")
	ErrStorageWriteFailed  = errors.New("failed to save uploaded file")
	ErrPersistenceFailed   = errors.New("failed to save record to database")
)

// sniffLen 文件名无扩展名时用于内容识别的字节数
const sniffLen = 512

// PhotoStore 按用户分目录的照片存储
type PhotoStore interface {
	Dir(sanitizedIdentity string) string
	Prepare(dir string) error
	NewName(originalName string, head []byte) string
	Save(dir, name string, src io.Reader) (string, error)
	Remove(path string) error
}

// CheckInService 签到/签退记录服务
type CheckInService interface {
	// Record 校验提交、保存照片并插入记录
	// 插入失败时返回前删除已保存的照片
	Record(ctx context.Context, method string, form *dto.CheckInForm) (*dto.CheckInResponse, error)
}

type checkInService struct {
	repo    *repository.Repository
	store   PhotoStore
	metrics *metrics.CheckInMetrics
	logger  *zap.Logger
}

// NewCheckInService 创建 CheckInService
func NewCheckInService(repo *repository.Repository, store PhotoStore, m *metrics.CheckInMetrics, logger *zap.Logger) CheckInService {
	return &checkInService{repo: repo, store: store, metrics: m, logger: logger}
}

// ────────────────────── Record ──────────────────────

func (s *checkInService) Record(ctx context.Context, method string, form *dto.CheckInForm) (*dto.CheckInResponse, error) {
	// 1. 校验（无副作用）
	draft, loc, err := ValidateSubmission(method, form)
	if err != nil {
		fields := []zap.Field{zap.String("method", method), zap.String("username", form.Username), zap.Error(err)}
		var verr *ValidationError
		if errors.As(err, &verr) {
			fields = append(fields, zap.Strings("reasons", verr.Reasons))
		}
		s.logger.Warn("check-in rejected", fields...)
		s.metrics.ObserveSubmission(metrics.OutcomeRejected)
		return nil, err
	}

	log := s.logger.With(
		zap.String("username", draft.Username),
		zap.String("check_type", draft.CheckType),
	)

	// 2. 写入任何内容前确认数据库可达
	if err := s.repo.CheckRecord.Ping(ctx); err != nil {
		log.Error("database unreachable", zap.Error(err))
		s.metrics.ObserveSubmission(metrics.OutcomeDatabaseUnavailable)
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	// 3. 用户目录
	dir := s.store.Dir(loc.SanitizedIdentity)
	if err := s.store.Prepare(dir); err != nil {
		log.Error("upload directory unusable", zap.String("dir", dir), zap.Error(err))
		s.metrics.ObserveSubmission(metrics.OutcomeStorageUnavailable)
		if errors.Is(err, storage.ErrDirNotWritable) {
			return nil, fmt.Errorf("%w: %w", ErrStorageNotWritable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	// 4. 保存照片
	path, err := s.savePhoto(dir, draft.Photo)
	if err != nil {
		log.Error("save photo failed", zap.String("dir", dir), zap.Error(err))
		s.metrics.ObserveSubmission(metrics.OutcomeStorageWriteFailed)
		return nil, fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}
	log.Debug("photo stored", zap.String("path", path))

	// 5. 插入记录
	rec := &model.CheckRecord{
		UserID:    draft.Username,
		CheckType: draft.CheckType,
		Latitude:  draft.Latitude,
		Longitude: draft.Longitude,
		PhotoPath: filepath.ToSlash(path),
	}
	// 插入不受请求取消影响：已提交的记录必须保留照片
	if err := s.repo.CheckRecord.Create(context.WithoutCancel(ctx), rec); err != nil {
		log.Error("insert check record failed", zap.String("photo_path", path), zap.Error(err))
		s.compensate(log, path)
		s.metrics.ObserveSubmission(metrics.OutcomePersistenceFailed)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	log.Info("check record inserted", zap.Uint64("record_id", rec.ID), zap.String("photo_path", rec.PhotoPath))
	s.metrics.ObserveSubmission(metrics.OutcomeRecorded)

	return &dto.CheckInResponse{
		Message:  "Check-" + strings.ToLower(draft.CheckType) + " recorded successfully.",
		RecordID: rec.ID,
	}, nil
}

// ── 内部辅助 ──

func (s *checkInService) savePhoto(dir string, photo *dto.PhotoUpload) (string, error) {
	src, err := photo.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	br := bufio.NewReaderSize(src, sniffLen)
	// 读取不足只说明文件较小
	head, _ := br.Peek(sniffLen)

	name := s.store.NewName(photo.Filename, head)
	return s.store.Save(dir, name, br)
}

// compensate 删除插入失败记录对应的照片
// 删除失败只记日志，调用方看到的仍是插入错误
func (s *checkInService) compensate(log *zap.Logger, path string) {
	if err := s.store.Remove(path); err != nil {
		log.Error("compensation failed, orphaned photo left on disk", zap.String("path", path), zap.Error(err))
		s.metrics.ObserveCompensation(metrics.CompensationFailed)
		return
	}
	log.Warn("record insert failed, stored photo removed", zap.String("path", path))
	s.metrics.ObserveCompensation(metrics.CompensationRemoved)
}
