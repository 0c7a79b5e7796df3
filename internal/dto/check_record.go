package dto

// ── 签到记录查询 ──

// CheckRecordListRequest 列表筛选条件
type CheckRecordListRequest struct {
	Username  string `form:"username"   binding:"omitempty,max=255"`
	CheckType string `form:"check_type" binding:"omitempty,oneof=IN OUT"`
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page"       binding:"omitempty,min=1,max=10000"`
	PageSize  int    `form:"page_size"  binding:"omitempty,min=1,max=200"`
}

// CheckRecordIDRequest 单条查询路径参数
type CheckRecordIDRequest struct {
	ID uint64 `uri:"id" binding:"required,min=1"`
}

// CheckRecordResponse 单条记录
type CheckRecordResponse struct {
	ID        uint64  `json:"id"`
	Username  string  `json:"username"`
	CheckType string  `json:"check_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PhotoPath string  `json:"photo_path"`
	PhotoURL  string  `json:"photo_url,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// 分页上限
const (
	MaxPage     = 10000
	MaxPageSize = 200
)

// Normalize 填充分页默认值并截断越界值
func (r *CheckRecordListRequest) Normalize() {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
}
