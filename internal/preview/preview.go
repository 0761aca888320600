// Package preview renders a document as a self-contained HTML page, the
// same layout whether it is an invoice or a receipt.
package preview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/amberlin/invoice-studio/internal/engine"
)

//go:embed templates/document.html.tmpl
var templateFS embed.FS

var printer = message.NewPrinter(language.English)

// Renderer renders documents to HTML.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded document template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("document.html.tmpl").Funcs(template.FuncMap{
		"money":    formatMoney,
		"longDate": formatLongDate,
		"svg": func(s string) template.HTML {
			return template.HTML(s)
		},
	}).ParseFS(templateFS, "templates/document.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type templateData struct {
	Doc          *engine.Invoice
	Title        string
	DocumentType string
	IsReceipt    bool
	DueDateLine  string
}

// Render produces the HTML preview of doc.
func (r *Renderer) Render(doc *engine.Invoice) ([]byte, error) {
	data := templateData{
		Doc:          doc,
		DocumentType: "Invoice",
		IsReceipt:    doc.Mode == engine.ModeReceipt,
	}
	if data.IsReceipt {
		data.DocumentType = "Receipt"
	}
	data.Title = fmt.Sprintf("%s %s", data.DocumentType, doc.Number)
	data.DueDateLine = dueDateLine(doc)

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.Bytes(), nil
}

// dueDateLine phrases the footer date: receipts that are paid show the
// payment date, everything else shows when payment is due.
func dueDateLine(doc *engine.Invoice) string {
	if doc.Mode == engine.ModeReceipt && doc.Receipt.Status == engine.ReceiptStatusPaid {
		date := doc.Receipt.PaymentDate
		if date == "" {
			date = doc.Date
		}
		return "Paid on " + formatLongDate(date)
	}
	if doc.PaymentTerms == engine.TermsReceipt {
		return "Due on receipt"
	}
	return "Due by " + formatLongDate(doc.DueDate)
}

// formatLongDate turns an ISO date into "2 January 2006". Unparseable
// input is shown as-is.
func formatLongDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("2 January 2006")
}

func formatMoney(currency string, amount float64) string {
	if currency == "" {
		currency = "USD"
	}
	return printer.Sprintf("%s %v", currency,
		number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
