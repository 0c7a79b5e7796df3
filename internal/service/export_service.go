package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"checkin-service/internal/dto"
	"checkin-service/internal/repository"
)

// ── 导出错误 ──

var (
	ErrExportNoRecords    = errors.New("no check records match the filter")
	ErrExportTooLarge     = errors.New("too many check records to export")
	ErrExportGenerateFail = errors.New("failed to generate Excel file")
)

// maxExportRows 单次导出行数上限
const maxExportRows = 50000

// ExportService 签到记录导出服务
//
// 返回工作簿缓冲区，下载响应头由 Handler 设置
type ExportService interface {
	ExportCheckRecords(ctx context.Context, req *dto.CheckRecordListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	linker PhotoLinker
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService
func NewExportService(repo *repository.Repository, linker PhotoLinker, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &exportService{repo: repo, linker: linker, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportCheckRecords 导出签到记录
// ═══════════════════════════════════════════════════════════
//
// 单个工作表 "Check records"，按时间倒序：
//
//	ID | Username | Type | Latitude | Longitude | Photo | Recorded At

func (s *exportService) ExportCheckRecords(ctx context.Context, req *dto.CheckRecordListRequest) (*bytes.Buffer, string, error) {
	filter, err := buildFilter(req, s.loc)
	if err != nil {
		return nil, "", err
	}
	filter.Limit = maxExportRows + 1

	records, total, err := s.repo.CheckRecord.List(ctx, filter)
	if err != nil {
		s.logger.Error("query check records for export failed", zap.Error(err))
		return nil, "", err
	}
	if total == 0 {
		return nil, "", ErrExportNoRecords
	}
	if total > maxExportRows {
		return nil, "", ErrExportTooLarge
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Check records"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "C", 8)
	f.SetColWidth(sheetName, "D", "E", 14)
	f.SetColWidth(sheetName, "F", "F", 60)
	f.SetColWidth(sheetName, "G", "G", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"ID", "Username", "Type", "Latitude", "Longitude", "Photo", "Recorded At"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, rec := range records {
		row := i + 2
		photo := s.linker.URL(rec.PhotoPath)
		if photo == "" {
			photo = rec.PhotoPath
		}
		f.SetCellValue(sheetName, cell("A", row), rec.ID)
		f.SetCellValue(sheetName, cell("B", row), rec.UserID)
		f.SetCellValue(sheetName, cell("C", row), rec.CheckType)
		f.SetCellValue(sheetName, cell("D", row), rec.Latitude)
		f.SetCellValue(sheetName, cell("E", row), rec.Longitude)
		f.SetCellValue(sheetName, cell("F", row), photo)
		f.SetCellValue(sheetName, cell("G", row), rec.CreatedAt.In(s.loc).Format("2006-01-02 15:04:05"))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write Excel failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("check_records_%s.xlsx", time.Now().In(s.loc).Format("20060102_150405"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
