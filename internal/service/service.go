package service

import (
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/repository"
	"checkin-service/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	CheckIn     CheckInService
	CheckRecord CheckRecordService
	Export      ExportService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	store PhotoStore,
	linker PhotoLinker,
	loc *time.Location,
	m *metrics.CheckInMetrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		CheckIn:     NewCheckInService(repo, store, m, logger),
		CheckRecord: NewCheckRecordService(repo, linker, loc, logger),
		Export:      NewExportService(repo, linker, loc, logger),
	}
}
