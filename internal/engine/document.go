package engine

import (
	"fmt"
	"time"
)

// Mode distinguishes the two document kinds. The number prefix follows it.
type Mode string

const (
	ModeInvoice Mode = "invoice"
	ModeReceipt Mode = "receipt"
)

// Payment terms accepted by the PAYMENT_TERMS action.
const (
	Terms30Days   = "30days"
	Terms15Days   = "15days"
	TermsReceipt  = "receipt"
	TermsSpecific = "specific"
)

// Receipt payment methods.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCredit = "credit"
	PaymentMethodDebit  = "debit"
	PaymentMethodBank   = "bank"
	PaymentMethodCheck  = "check"
	PaymentMethodCrypto = "crypto"
	PaymentMethodOther  = "other"
)

// Receipt statuses.
const (
	ReceiptStatusPending   = "pending"
	ReceiptStatusPaid      = "paid"
	ReceiptStatusCancelled = "cancelled"
)

// LineItem is one billable row. Total, TaxAmount and Subtotal are derived
// by the reducer and never hand-set.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
	TaxAmount   float64 `json:"taxAmount"`
	Subtotal    float64 `json:"subtotal"`
}

// Empty reports whether the item carries no user data. Empty items are
// pruned on FULL updates, except that the item list never becomes empty.
func (li LineItem) Empty() bool {
	return li.Description == "" && li.Quantity <= 0 && li.Price <= 0
}

// Receipt holds the payment details shown in receipt mode. It is always
// present on a document, defaulted, even in invoice mode.
type Receipt struct {
	PaymentDate   string `json:"paymentDate"`
	PaymentMethod string `json:"paymentMethod"`
	TransactionID string `json:"transactionId"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
}

// Invoice is the document being edited. Subtotal, TaxAmount and Total are
// derived from Items and Tax; QRCodeSVG is a cached rendering artifact,
// not authoritative state.
type Invoice struct {
	ID                  string     `json:"id"`
	Mode                Mode       `json:"mode"`
	Number              string     `json:"number"`
	Date                string     `json:"date"`
	DueDate             string     `json:"dueDate"`
	Currency            string     `json:"currency"`
	Tax                 float64    `json:"tax"`
	Customer            string     `json:"customer"`
	Items               []LineItem `json:"items"`
	Issuer              string     `json:"issuer"`
	LogoURL             string     `json:"logoUrl"`
	PaymentLink         string     `json:"paymentLink"`
	Subtotal            float64    `json:"subtotal"`
	TaxAmount           float64    `json:"taxAmount"`
	Total               float64    `json:"total"`
	PaymentTerms        string     `json:"paymentTerms"`
	PaymentInstructions string     `json:"paymentInstructions"`
	Message             string     `json:"message"`
	QRCodeSVG           string     `json:"qrCodeSvg"`
	Receipt             Receipt    `json:"receipt"`
}

// Clone returns a structurally independent deep copy.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.Items = make([]LineItem, len(inv.Items))
	copy(out.Items, inv.Items)
	return &out
}

const isoDate = "2006-01-02"

func blankItem() LineItem {
	return LineItem{Quantity: 1}
}

func generateID(now time.Time) string {
	return fmt.Sprintf("INV-%d", now.UnixMilli())
}

// DefaultInvoice returns a blank document: generated id, invoice mode,
// due date 30 days out, one blank line item, zero totals and an empty but
// present receipt record. Every call returns an independent value.
func DefaultInvoice() *Invoice {
	now := time.Now()
	millis := fmt.Sprintf("%d", now.UnixMilli())
	return &Invoice{
		ID:           generateID(now),
		Mode:         ModeInvoice,
		Number:       "INV-" + millis[len(millis)-4:],
		Date:         now.Format(isoDate),
		DueDate:      now.AddDate(0, 0, 30).Format(isoDate),
		Currency:     "USD",
		Items:        []LineItem{blankItem()},
		PaymentTerms: Terms30Days,
		Receipt:      Receipt{Status: ReceiptStatusPending},
	}
}

// DemoInvoice returns the pre-filled fixture document used by the demo
// workspace: a paid produce receipt with three line items at 4% tax.
func DemoInvoice() *Invoice {
	now := time.Now()
	today := now.Format(isoDate)
	return &Invoice{
		ID:       fmt.Sprintf("DEMO-%d", now.UnixMilli()),
		Mode:     ModeReceipt,
		Number:   "RCP-FRESH",
		Date:     today,
		DueDate:  now.AddDate(0, 0, 30).Format(isoDate),
		Currency: "USD",
		Tax:      4,
		Customer: "Citrus & Fresh Grocery Chain\nAttn: Accounts Payable\n789 Retail Plaza\nSuite 500\nLos Angeles, CA 90017\nUnited States",
		Items: []LineItem{
			{Description: "Premium Meyer Lemons Supply (400 lbs)", Quantity: 2, Price: 600, Total: 1200, TaxAmount: 48, Subtotal: 1248},
			{Description: "Cold Chain Delivery Fee", Quantity: 1, Price: 150, Total: 150, TaxAmount: 6, Subtotal: 156},
			{Description: "Organic Certification Premium", Quantity: 1, Price: 250, Total: 250, TaxAmount: 10, Subtotal: 260},
		},
		Issuer:              "Sunny Grove Citrus LLC\nLucy Lemon, Owner\n456 Citrus Valley Road\nGrove District\nVentura, CA 93001\nUnited States\nFederal Tax ID (EIN): 12-3456789",
		LogoURL:             "https://images.unsplash.com/photo-1534531173927-aeb928d54385?q=80&w=400&h=200&auto=format&fit=crop",
		PaymentLink:         "https://example.com/pay/demo-invoice",
		Subtotal:            1600,
		TaxAmount:           66,
		Total:               1666,
		PaymentTerms:        TermsReceipt,
		PaymentInstructions: "Please make payment via bank transfer to:\nBank: First Agricultural Bank\nAccount: 1234567890\nRouting: 987654321\nAccount Name: Sunny Grove Citrus LLC",
		Message:             "Thank you for choosing Sunny Grove Citrus! We take pride in delivering the finest organic Meyer lemons to your stores.",
		Receipt: Receipt{
			PaymentDate:   today,
			PaymentMethod: PaymentMethodBank,
			TransactionID: "WIRE-12345678",
			Notes:         "Payment received via wire transfer from Citrus & Fresh Grocery Chain.\nReference: PO-2024-0123",
			Status:        ReceiptStatusPaid,
		},
	}
}
