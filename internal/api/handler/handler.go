package handler

import (
	"context"

	"checkin-service/internal/service"
)

// Pinger 数据库连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler 所有 Handler 的聚合入口
type Handler struct {
	CheckIn     *CheckInHandler
	CheckRecord *CheckRecordHandler
	Export      *ExportHandler
	Health      *HealthHandler
}

// NewHandler 创建 Handler 聚合
// multipartMemory 为上传内容的内存上限，超出部分写临时文件
func NewHandler(svc *service.Service, db Pinger, multipartMemory int64) *Handler {
	return &Handler{
		CheckIn:     NewCheckInHandler(svc.CheckIn, multipartMemory),
		CheckRecord: NewCheckRecordHandler(svc.CheckRecord),
		Export:      NewExportHandler(svc.Export),
		Health:      NewHealthHandler(db),
	}
}
