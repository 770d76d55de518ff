package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"clinic-ops/src/services"
)

const (
	itemsSheet   = "Inventory"
	summarySheet = "Summary"
)

var itemHeaders = []string{
	"Item Name", "SKU", "Barcode", "Batch", "Category", "Unit",
	"Quantity", "Minimum Stock", "Unit Price", "Selling Price",
	"Stock Value", "Expiration Date", "Low Stock", "Expired",
}

// InventoryWorkbook renders an inventory report as an XLSX workbook with an
// item sheet and a per-category summary sheet. The caller closes the file.
func InventoryWorkbook(report *services.InventoryReport) (*excelize.File, error) {
	f := excelize.NewFile()

	// NewFile starts with "Sheet1"
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := writeRow(f, itemsSheet, 1, toCells(itemHeaders)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(itemsSheet, 1, 1, header); err != nil {
		return nil, err
	}

	for i, item := range report.Items {
		barcode := ""
		if item.Barcode != nil {
			barcode = *item.Barcode
		}
		expires := ""
		if item.ExpirationDate != nil {
			expires = item.ExpirationDate.Format("2006-01-02")
		}
		unitPrice, _ := item.UnitPrice.Float64()
		sellingPrice, _ := item.SellingPrice.Float64()
		value, _ := item.StockValue().Float64()

		row := []interface{}{
			item.ItemName, item.SKU, barcode, item.BatchNumber,
			string(item.Category), string(item.UnitType),
			item.Quantity, item.MinimumStock, unitPrice, sellingPrice,
			value, expires, yesNo(item.IsLowStock), yesNo(item.IsExpired),
		}
		if err := writeRow(f, itemsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, summarySheet, 1, []interface{}{"Category", "Items", "Quantity", "Value"}); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, header); err != nil {
		return nil, err
	}
	row := 2
	for _, c := range report.Categories {
		value, _ := c.Value.Float64()
		if err := writeRow(f, summarySheet, row, []interface{}{string(c.Category), c.Items, c.Quantity, value}); err != nil {
			return nil, err
		}
		row++
	}
	total, _ := report.TotalValue.Float64()
	if err := writeRow(f, summarySheet, row, []interface{}{"Total", report.TotalItems, nil, total}); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, row, row, header); err != nil {
		return nil, err
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
