package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// TaxRate is a suggested tax percentage. Unlike Number, an unparseable
// value does not coerce to 0: it unmarshals as invalid, and the merge
// falls back to the document's rate instead of zeroing it.
type TaxRate struct {
	Value float64
	Valid bool
}

func (t *TaxRate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*t = TaxRate{}
		return nil
	}
	*t = TaxRate{Value: v, Valid: true}
	return nil
}

func (t TaxRate) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// SuggestedItem is a proposed line item from the AI/extraction
// collaborators: description, quantity and price only. Derived amounts
// are computed during the merge.
type SuggestedItem struct {
	Description string `json:"description"`
	Quantity    Number `json:"quantity"`
	Price       Number `json:"price"`
}

// Suggestion is an externally produced partial document. Every field is
// optional; a set field is authoritative over the current document, an
// unset one defers to it.
type Suggestion struct {
	Mode                *Mode           `json:"mode,omitempty"`
	Number              *string         `json:"number,omitempty"`
	Date                *string         `json:"date,omitempty"`
	DueDate             *string         `json:"dueDate,omitempty"`
	Currency            *string         `json:"currency,omitempty"`
	Tax                 *TaxRate        `json:"tax,omitempty"`
	Customer            *string         `json:"customer,omitempty"`
	Items               []SuggestedItem `json:"items,omitempty"`
	Issuer              *string         `json:"issuer,omitempty"`
	LogoURL             *string         `json:"logoUrl,omitempty"`
	PaymentLink         *string         `json:"paymentLink,omitempty"`
	PaymentTerms        *string         `json:"paymentTerms,omitempty"`
	PaymentInstructions *string         `json:"paymentInstructions,omitempty"`
	Message             *string         `json:"message,omitempty"`
	Receipt             *ReceiptPatch   `json:"receipt,omitempty"`
}

// MergeSuggestion reconciles a suggestion with the current document and
// returns the FULL action that applies the result. Suggested fields win;
// everything else is backfilled from the document. Suggested items are
// computed at the resolved tax rate and appended after the existing
// items; empty existing items are dropped, and a suggested item that
// duplicates one already on the document (case-insensitive description
// match plus exact price match) is skipped rather than re-added.
//
// A suggestion with no items leaves the document's items untouched.
func MergeSuggestion(doc *Invoice, s *Suggestion) FullAction {
	if doc == nil {
		doc = &Invoice{}
	}
	merged := doc.Clone()
	if s == nil {
		s = &Suggestion{}
	}

	tax := merged.Tax
	if s.Tax != nil && s.Tax.Valid {
		tax = sanitizeFloat(s.Tax.Value)
	}
	merged.Tax = tax

	if s.Mode != nil {
		merged.Mode = *s.Mode
	}
	if s.Number != nil && *s.Number != "" {
		merged.Number = *s.Number
	}
	if s.Date != nil && *s.Date != "" {
		merged.Date = *s.Date
	}
	if s.DueDate != nil && *s.DueDate != "" {
		merged.DueDate = *s.DueDate
	}
	if s.Currency != nil {
		merged.Currency = *s.Currency
	}
	if s.Customer != nil {
		merged.Customer = *s.Customer
	}
	if s.Issuer != nil {
		merged.Issuer = *s.Issuer
	}
	if s.LogoURL != nil {
		merged.LogoURL = *s.LogoURL
	}
	if s.PaymentLink != nil {
		merged.PaymentLink = *s.PaymentLink
	}
	if s.PaymentTerms != nil {
		merged.PaymentTerms = *s.PaymentTerms
	}
	if s.PaymentInstructions != nil {
		merged.PaymentInstructions = *s.PaymentInstructions
	}
	if s.Message != nil {
		merged.Message = *s.Message
	}
	if s.Receipt != nil {
		applyReceiptPatch(&merged.Receipt, *s.Receipt)
	}

	if len(s.Items) > 0 {
		merged.Items = mergeItems(doc.Items, s.Items, tax)
	}

	return FullAction{Patch: patchFromInvoice(merged)}
}

// mergeItems keeps the user's non-empty items in their entered order,
// then appends the suggested ones, skipping any suggestion that
// duplicates an item already on the document so the user's row is not
// re-added under a differently cased description.
func mergeItems(existing []LineItem, suggested []SuggestedItem, tax float64) []LineItem {
	kept := make([]LineItem, 0, len(existing)+len(suggested))
	for _, item := range existing {
		if item.Description == "" || (item.Quantity <= 0 && item.Price <= 0) {
			continue
		}
		kept = append(kept, item)
	}

	for _, s := range suggested {
		item := computeItem(LineItemInput{
			Description: s.Description,
			Quantity:    Number(clampNonNegative(float64(s.Quantity))),
			Price:       Number(clampNonNegative(float64(s.Price))),
		}, tax)
		if duplicatesAny(item, kept) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func duplicatesAny(item LineItem, items []LineItem) bool {
	for _, c := range items {
		if strings.EqualFold(c.Description, item.Description) && c.Price == item.Price {
			return true
		}
	}
	return false
}

func clampNonNegative(v float64) float64 {
	v = sanitizeFloat(v)
	if v < 0 {
		return 0
	}
	return v
}

// patchFromInvoice builds a DocumentPatch that sets every field to the
// invoice's values. The merger produces a complete payload so the FULL
// update is deterministic regardless of the document it lands on.
func patchFromInvoice(inv *Invoice) DocumentPatch {
	tax := Number(inv.Tax)
	receipt := inv.Receipt
	return DocumentPatch{
		ID:                  &inv.ID,
		Mode:                &inv.Mode,
		Number:              &inv.Number,
		Date:                &inv.Date,
		DueDate:             &inv.DueDate,
		Currency:            &inv.Currency,
		Tax:                 &tax,
		Customer:            &inv.Customer,
		Items:               inv.Items,
		Issuer:              &inv.Issuer,
		LogoURL:             &inv.LogoURL,
		PaymentLink:         &inv.PaymentLink,
		PaymentTerms:        &inv.PaymentTerms,
		PaymentInstructions: &inv.PaymentInstructions,
		Message:             &inv.Message,
		QRCodeSVG:           &inv.QRCodeSVG,
		Receipt:             &receipt,
	}
}
