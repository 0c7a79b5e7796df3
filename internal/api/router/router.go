package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkin-service/config"
	"checkin-service/internal/api/handler"
	"checkin-service/internal/api/middleware"
	"checkin-service/pkg/redis"
)

// UploadsPath 照片根目录的只读挂载路径
const UploadsPath = "/uploads"

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil（不限流）；metricsHandler 可为 nil（不暴露 /metrics）
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查与指标 ──
	r.GET("/health", h.Health.Health)
	if metricsHandler != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(metricsHandler))
	}

	// ── 照片访问 ──
	r.StaticFS(UploadsPath, gin.Dir(cfg.Storage.Root, false))

	// ── 签到提交 ──
	if !cfg.RateLimit.Enabled {
		rdb = nil
	}
	submit := []gin.HandlerFunc{
		middleware.BodyLimit(cfg.Server.MaxUploadBytes),
		middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger),
		h.CheckIn.Submit,
	}

	// 旧版拍照页面使用的路径
	r.Any("/api/check-in", submit...)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.Any("/check-ins", submit...)

		records := v1.Group("/check-records")
		{
			records.GET("", h.CheckRecord.ListCheckRecords)
			records.GET("/export", h.Export.ExportCheckRecords)
			records.GET("/:id", h.CheckRecord.GetCheckRecord)
		}
	}

	return r
}
