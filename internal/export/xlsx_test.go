package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/amberlin/invoice-studio/internal/engine"
)

func TestExportInvoice(t *testing.T) {
	e := NewXLSXExporter(zap.NewNop())

	doc := engine.DefaultInvoice()
	doc.Number = "INV-0042"
	doc.Items = []engine.LineItem{
		{Description: "Widget", Quantity: 2, Price: 10, Total: 20, TaxAmount: 2, Subtotal: 22},
	}
	doc.Tax = 10
	doc.Subtotal = 20
	doc.TaxAmount = 2
	doc.Total = 22

	data, err := e.Export(doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	kind, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", kind)

	number, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "INV-0042", number)

	desc, err := f.GetCellValue(sheetName, "A10")
	require.NoError(t, err)
	assert.Equal(t, "Widget", desc)

	total, err := f.GetCellValue(sheetName, "E14")
	require.NoError(t, err)
	assert.Equal(t, "22", total)
}

func TestExportReceiptIncludesPaymentDetails(t *testing.T) {
	e := NewXLSXExporter(zap.NewNop())

	data, err := e.Export(engine.DemoInvoice())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	kind, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Receipt", kind)

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)

	var flat []string
	for _, row := range rows {
		flat = append(flat, row...)
	}
	assert.Contains(t, flat, "Transaction ID")
	assert.Contains(t, flat, "WIRE-12345678")
	assert.Contains(t, flat, engine.ReceiptStatusPaid)
}
