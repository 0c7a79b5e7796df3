package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"checkin-service/internal/model"
	pkgerrors "checkin-service/pkg/errors"
)

// CheckRecordFilter 列表查询条件，零值忽略
type CheckRecordFilter struct {
	UserID    string
	CheckType string
	From      *time.Time // 含
	To        *time.Time // 不含
	Offset    int
	Limit     int
}

// CheckRecordRepository 签到记录数据访问（只增不改）
type CheckRecordRepository interface {
	Create(ctx context.Context, rec *model.CheckRecord) error
	// GetByID 记录不存在时返回 pkgerrors.ErrRecordNotFound
	GetByID(ctx context.Context, id uint64) (*model.CheckRecord, error)
	List(ctx context.Context, filter CheckRecordFilter) ([]model.CheckRecord, int64, error)
	Ping(ctx context.Context) error
}

type checkRecordRepo struct {
	db *gorm.DB
}

// NewCheckRecordRepo 创建 CheckRecordRepository
func NewCheckRecordRepo(db *gorm.DB) CheckRecordRepository {
	return &checkRecordRepo{db: db}
}

func (r *checkRecordRepo) Create(ctx context.Context, rec *model.CheckRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *checkRecordRepo) GetByID(ctx context.Context, id uint64) (*model.CheckRecord, error) {
	var rec model.CheckRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *checkRecordRepo) List(ctx context.Context, filter CheckRecordFilter) ([]model.CheckRecord, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.CheckRecord{})

	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.CheckType != "" {
		db = db.Where("check_type = ?", filter.CheckType)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.CheckRecord
	q := db.Order("created_at DESC, id DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *checkRecordRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
