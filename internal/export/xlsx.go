// Package export writes documents out as spreadsheet files.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/amberlin/invoice-studio/internal/engine"
)

const sheetName = "Document"

// XLSXExporter renders a document as a single-sheet workbook.
type XLSXExporter struct {
	logger *zap.Logger
}

// NewXLSXExporter creates a new exporter
func NewXLSXExporter(logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{logger: logger}
}

// Export writes doc as an xlsx workbook and returns the file bytes.
func (e *XLSXExporter) Export(doc *engine.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		e.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	kind := "Invoice"
	if doc.Mode == engine.ModeReceipt {
		kind = "Receipt"
	}

	e.setCell(f, "A1", kind)
	e.setCell(f, "A2", "Number")
	e.setCell(f, "B2", doc.Number)
	e.setCell(f, "A3", "Date")
	e.setCell(f, "B3", doc.Date)
	e.setCell(f, "A4", "Due Date")
	e.setCell(f, "B4", doc.DueDate)
	e.setCell(f, "A5", "Currency")
	e.setCell(f, "B5", doc.Currency)
	e.setCell(f, "A6", "From")
	e.setCell(f, "B6", doc.Issuer)
	e.setCell(f, "A7", "Billed To")
	e.setCell(f, "B7", doc.Customer)

	row := 9
	e.setCell(f, fmt.Sprintf("A%d", row), "Description")
	e.setCell(f, fmt.Sprintf("B%d", row), "Quantity")
	e.setCell(f, fmt.Sprintf("C%d", row), "Unit Price")
	e.setCell(f, fmt.Sprintf("D%d", row), "Tax")
	e.setCell(f, fmt.Sprintf("E%d", row), "Amount")
	for _, item := range doc.Items {
		row++
		e.setCell(f, fmt.Sprintf("A%d", row), item.Description)
		e.setCell(f, fmt.Sprintf("B%d", row), item.Quantity)
		e.setCell(f, fmt.Sprintf("C%d", row), item.Price)
		e.setCell(f, fmt.Sprintf("D%d", row), item.TaxAmount)
		e.setCell(f, fmt.Sprintf("E%d", row), item.Total)
	}

	row += 2
	e.setCell(f, fmt.Sprintf("D%d", row), "Subtotal")
	e.setCell(f, fmt.Sprintf("E%d", row), doc.Subtotal)
	row++
	e.setCell(f, fmt.Sprintf("D%d", row), fmt.Sprintf("Tax (%.6g%%)", doc.Tax))
	e.setCell(f, fmt.Sprintf("E%d", row), doc.TaxAmount)
	row++
	e.setCell(f, fmt.Sprintf("D%d", row), "Total")
	e.setCell(f, fmt.Sprintf("E%d", row), doc.Total)

	if doc.Mode == engine.ModeReceipt {
		row += 2
		e.setCell(f, fmt.Sprintf("A%d", row), "Payment Date")
		e.setCell(f, fmt.Sprintf("B%d", row), doc.Receipt.PaymentDate)
		row++
		e.setCell(f, fmt.Sprintf("A%d", row), "Payment Method")
		e.setCell(f, fmt.Sprintf("B%d", row), doc.Receipt.PaymentMethod)
		row++
		e.setCell(f, fmt.Sprintf("A%d", row), "Transaction ID")
		e.setCell(f, fmt.Sprintf("B%d", row), doc.Receipt.TransactionID)
		row++
		e.setCell(f, fmt.Sprintf("A%d", row), "Status")
		e.setCell(f, fmt.Sprintf("B%d", row), doc.Receipt.Status)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Exported document workbook",
		zap.String("id", doc.ID),
		zap.Int("items", len(doc.Items)))
	return buf.Bytes(), nil
}

// setCell sets a cell value in the workbook
func (e *XLSXExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
