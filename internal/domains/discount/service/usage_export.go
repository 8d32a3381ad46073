package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"shopcms-backend/internal/domains/discount/model"
)

const exportPageSize = 500

// ExportUsage builds an xlsx workbook with the full usage history of a discount
//
// Sheet "Usage": one row per redemption
// Sheet "Summary": discount identity + aggregated stats
func (s *discountService) ExportUsage(ctx context.Context, id uuid.UUID) (*UsageExport, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var usages []*model.DiscountUsage
	filter := &model.UsageHistoryFilter{Page: 1, Limit: exportPageSize}
	for {
		page, total, err := s.usageRepo.GetUsageHistory(ctx, id, filter)
		if err != nil {
			return nil, fmt.Errorf("get usage history: %w", err)
		}
		usages = append(usages, page...)
		if len(page) < filter.Limit || len(usages) >= total {
			break
		}
		filter.Page++
	}

	stats := model.ComputeUsageStats(usages)

	f, err := buildUsageWorkbook(d, usages, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to build excel file: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}

	now := s.now()
	name := d.Code
	if name == "" {
		name = d.ID.String()
	}
	return &UsageExport{
		Filename:    fmt.Sprintf("discount_usage_%s_%s.xlsx", name, now.Format("20060102_150405")),
		Content:     buf.Bytes(),
		GeneratedAt: now,
	}, nil
}

func buildUsageWorkbook(d *model.Discount, usages []*model.DiscountUsage, stats *model.UsageStats) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := "Usage"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headers := []string{"Used At", "Order ID", "Customer ID", "Discount Amount"}
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, styleErr := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	if styleErr == nil {
		f.SetCellStyle(sheetName, "A1", "D1", headerStyle)
	}

	for i, u := range usages {
		rowNum := i + 2
		cellAt := func(col int) string {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			return cell
		}

		f.SetCellValue(sheetName, cellAt(1), u.UsedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, cellAt(2), u.OrderID.String())
		if u.CustomerID != nil {
			f.SetCellValue(sheetName, cellAt(3), u.CustomerID.String())
		} else {
			f.SetCellValue(sheetName, cellAt(3), "guest")
		}
		f.SetCellValue(sheetName, cellAt(4), u.DiscountAmount.InexactFloat64())
	}

	// Summary
	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, err
	}
	rows := [][]interface{}{
		{"Discount ID", d.ID.String()},
		{"Code", d.Code},
		{"Name", d.Name},
		{"Type", string(d.Type())},
		{"Used Count", d.Limits.UsedCount},
		{"Max Uses", d.Limits.MaxUses},
		{"Total Uses", stats.TotalUses},
		{"Total Discount", stats.TotalDiscount.InexactFloat64()},
		{"Unique Customers", stats.UniqueCustomers},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}
	if styleErr == nil {
		f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle)
	}

	return f, nil
}
