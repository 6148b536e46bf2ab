package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportService 报表导出
type ExportService struct {
	*base
}

var poExportHeaders = []string{
	"订单编号", "供应商", "订单类型", "付款方式", "状态",
	"物料行数", "服务行数", "总额", "创建时间", "备注",
}

// ExportPOs 导出采购订单为xlsx
func (s *ExportService) ExportPOs(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	var orders []entity.PurchaseOrder
	err := s.read(ctx, "导出采购订单", func(ctx context.Context) error {
		var err error
		orders, err = s.repos.PO.FindForExport(ctx, filters)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	f, err := BuildPOWorkbook(orders)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("PO_%s.xlsx", time.Now().Format("20060102_150405"))
	return f, filename, nil
}

// BuildPOWorkbook 生成采购订单工作簿
func BuildPOWorkbook(orders []entity.PurchaseOrder) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "PurchaseOrders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range poExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	total := decimal.Zero
	for idx, po := range orders {
		row := idx + 2
		supplier := po.SupplierID
		if po.Supplier != nil {
			supplier = po.Supplier.Name
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), po.ReferenceNo)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), supplier)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), po.OrderType)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), po.PaymentType)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), po.Status)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), len(po.Items))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), len(po.Services))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), po.TotalCost.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), po.CreatedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), po.Remarks)
		total = total.Add(po.TotalCost)
	}

	// 底部汇总行
	summaryRow := len(orders) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("订单数: %d", len(orders)))
	f.SetCellValue(sheet, fmt.Sprintf("H%d", summaryRow), total.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("J%d", summaryRow), summaryStyle)

	colWidths := []float64{16, 24, 10, 14, 12, 10, 10, 14, 18, 30}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}
