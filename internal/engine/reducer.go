package engine

import (
	"math"
	"strings"
	"time"
)

// Apply maps (document, action) to a new document. It is pure: the input
// is never mutated and the result shares no memory with it. Every action
// except TextAction ends with a full totals recompute, so documents
// leaving the reducer always satisfy total == subtotal + taxAmount.
//
// The only error is ErrUnknownAction for a variant outside the closed
// set; malformed payloads degrade to no-ops (the recompute pass still
// runs), per the caller-validates contract.
func Apply(doc *Invoice, action Action) (*Invoice, error) {
	next := doc.Clone()
	if next == nil {
		next = &Invoice{}
	}
	if next.ID == "" {
		next.ID = generateID(time.Now())
	}
	if next.Items == nil {
		next.Items = []LineItem{blankItem()}
	}

	switch a := action.(type) {
	case TaxAction:
		next.Tax = sanitizeFloat(a.Percent)

	case ItemAction:
		applyItem(next, a)

	case PaymentTermsAction:
		applyPaymentTerms(next, a.Terms)

	case TextAction:
		setTextField(next, a.Field, a.Value)

	case ItemsAction:
		items := make([]LineItem, 0, len(a.Items))
		for _, in := range a.Items {
			items = append(items, computeItem(in, next.Tax))
		}
		next.Items = items

	case FullAction:
		applyPatch(next, a.Patch)

	case ModeAction:
		applyMode(next, a.Mode)

	case ReceiptAction:
		applyReceiptPatch(&next.Receipt, a.Patch)

	default:
		return nil, ErrUnknownAction
	}

	if _, textOnly := action.(TextAction); !textOnly {
		recompute(next)
	}
	return next, nil
}

// recompute re-derives every item's total, tax amount and subtotal from
// its quantity, price and the document tax, then the document sums.
// Applying it twice is idempotent.
func recompute(inv *Invoice) {
	var subtotal, taxTotal float64
	for i := range inv.Items {
		item := &inv.Items[i]
		item.Quantity = sanitizeFloat(item.Quantity)
		item.Price = sanitizeFloat(item.Price)
		item.Total = item.Quantity * item.Price
		item.TaxAmount = item.Total * inv.Tax / 100
		item.Subtotal = item.Total + item.TaxAmount
		subtotal += item.Total
		taxTotal += item.TaxAmount
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = taxTotal
	inv.Total = subtotal + taxTotal
}

// computeItem derives a full line item from caller input at the given
// tax rate.
func computeItem(in LineItemInput, tax float64) LineItem {
	quantity := sanitizeFloat(float64(in.Quantity))
	price := sanitizeFloat(float64(in.Price))
	total := quantity * price
	taxAmount := total * tax / 100
	return LineItem{
		Description: in.Description,
		Quantity:    quantity,
		Price:       price,
		Total:       total,
		TaxAmount:   taxAmount,
		Subtotal:    total + taxAmount,
	}
}

func applyItem(inv *Invoice, a ItemAction) {
	// Inert on missing payload or out-of-range index; index == len appends.
	if a.Item == nil || a.Index < 0 || a.Index > len(inv.Items) {
		return
	}
	item := computeItem(*a.Item, inv.Tax)
	if a.Index == len(inv.Items) {
		inv.Items = append(inv.Items, item)
		return
	}
	inv.Items[a.Index] = item
}

func applyPaymentTerms(inv *Invoice, terms string) {
	if terms == "" {
		return
	}
	inv.PaymentTerms = terms
	if terms == TermsSpecific {
		// The caller sets the due date directly via a text update.
		return
	}

	base := time.Now()
	if parsed, err := time.Parse(isoDate, inv.Date); err == nil {
		base = parsed
	}
	days := 0
	switch terms {
	case Terms15Days:
		days = 15
	case Terms30Days:
		days = 30
	}
	inv.DueDate = base.AddDate(0, 0, days).Format(isoDate)
}

// setTextField assigns a single free-text field by name. Unknown fields
// are ignored. Totals are deliberately untouched, even for fields that
// happen to look numeric.
func setTextField(inv *Invoice, field, value string) {
	switch field {
	case "number":
		inv.Number = value
	case "date":
		inv.Date = value
	case "dueDate":
		inv.DueDate = value
	case "currency":
		inv.Currency = value
	case "customer":
		inv.Customer = value
	case "issuer":
		inv.Issuer = value
	case "logoUrl":
		inv.LogoURL = value
	case "paymentLink":
		inv.PaymentLink = value
	case "paymentTerms":
		inv.PaymentTerms = value
	case "paymentInstructions":
		inv.PaymentInstructions = value
	case "message":
		inv.Message = value
	case "qrCodeSvg":
		inv.QRCodeSVG = value
	}
}

func applyPatch(inv *Invoice, p DocumentPatch) {
	if p.ID != nil {
		inv.ID = *p.ID
	}
	if p.Mode != nil {
		inv.Mode = *p.Mode
	}
	if p.Number != nil {
		inv.Number = *p.Number
	}
	if p.Date != nil {
		inv.Date = *p.Date
	}
	if p.DueDate != nil {
		inv.DueDate = *p.DueDate
	}
	if p.Currency != nil {
		inv.Currency = *p.Currency
	}
	if p.Tax != nil {
		inv.Tax = sanitizeFloat(float64(*p.Tax))
	}
	if p.Customer != nil {
		inv.Customer = *p.Customer
	}
	if p.Issuer != nil {
		inv.Issuer = *p.Issuer
	}
	if p.LogoURL != nil {
		inv.LogoURL = *p.LogoURL
	}
	if p.PaymentLink != nil {
		inv.PaymentLink = *p.PaymentLink
	}
	if p.PaymentTerms != nil {
		inv.PaymentTerms = *p.PaymentTerms
	}
	if p.PaymentInstructions != nil {
		inv.PaymentInstructions = *p.PaymentInstructions
	}
	if p.Message != nil {
		inv.Message = *p.Message
	}
	if p.QRCodeSVG != nil {
		inv.QRCodeSVG = *p.QRCodeSVG
	}
	if p.Receipt != nil {
		inv.Receipt = *p.Receipt
	}
	if p.Items != nil {
		inv.Items = p.Items
	}

	// Prune fully-empty items, but never let the list go empty.
	kept := inv.Items[:0:0]
	for _, item := range inv.Items {
		if !item.Empty() {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		kept = []LineItem{blankItem()}
	}
	inv.Items = kept
}

func applyMode(inv *Invoice, mode Mode) {
	if mode != ModeInvoice && mode != ModeReceipt {
		return
	}
	inv.Mode = mode
	if mode == ModeReceipt {
		inv.Number = strings.Replace(inv.Number, "INV-", "RCP-", 1)
	} else {
		inv.Number = strings.Replace(inv.Number, "RCP-", "INV-", 1)
	}
}

func applyReceiptPatch(r *Receipt, p ReceiptPatch) {
	if p.PaymentDate != nil {
		r.PaymentDate = *p.PaymentDate
	}
	if p.PaymentMethod != nil {
		r.PaymentMethod = *p.PaymentMethod
	}
	if p.TransactionID != nil {
		r.TransactionID = *p.TransactionID
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

func sanitizeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
