package model

import "time"

// 签到类型
const (
	CheckTypeIn  = "IN"
	CheckTypeOut = "OUT"
)

// CheckRecord 签到/签退记录（check_records 表）
// PhotoPath 指向的文件在插入时一定已存在
type CheckRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID    string    `gorm:"type:varchar(255);not null;index"  json:"user_id"` // 提交的原始用户名
	CheckType string    `gorm:"type:varchar(3);not null"          json:"check_type"`
	Latitude  float64   `gorm:"not null"                          json:"latitude"`
	Longitude float64   `gorm:"not null"                          json:"longitude"`
	PhotoPath string    `gorm:"type:varchar(512);not null"        json:"photo_path"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"           json:"created_at"`
}

// TableName 表名
func (CheckRecord) TableName() string { return "check_records" }
