package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeChangesFields(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 5})
	doc.Customer = "Old Co"
	doc.Tax = 4

	s := &Suggestion{
		Customer: strPtr("New Co"),
		Tax:      taxPtr(10),
		Message:  strPtr("thanks"),
	}

	summary := SummarizeChanges(s, doc)
	lines := strings.Split(summary, "\n")

	assert.Contains(t, lines, "customer: Old Co → New Co")
	assert.Contains(t, lines, "tax: 4 → 10")
	assert.Contains(t, lines, "message:  → thanks")
}

func TestSummarizeChangesNestedReceipt(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 5})
	doc.Receipt.Status = ReceiptStatusPending

	s := &Suggestion{Receipt: &ReceiptPatch{Status: strPtr(ReceiptStatusPaid)}}

	summary := SummarizeChanges(s, doc)
	assert.Contains(t, summary, "receipt.status: pending → paid")
	assert.NotContains(t, summary, "receipt.notes", "null nested values are skipped")
}

func TestSummarizeChangesSkipsUnchangedAndItems(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 5})
	doc.Currency = "USD"

	s := &Suggestion{
		Currency: strPtr("USD"),
		Items:    []SuggestedItem{{Description: "Delivery", Quantity: 1, Price: 150}},
	}

	summary := SummarizeChanges(s, doc)
	assert.NotContains(t, summary, "currency")
	assert.NotContains(t, summary, "items:")
	assert.Contains(t, summary, "+ Delivery ($150 × 1)")
}

func TestSummarizeChangesItemLines(t *testing.T) {
	doc := docWithItems(0)
	s := &Suggestion{
		Customer: strPtr("ACME"),
		Items: []SuggestedItem{
			{Description: "Lemons", Quantity: 2, Price: 600},
			{Description: "Delivery", Quantity: 1.5, Price: 149.99},
		},
	}

	summary := SummarizeChanges(s, doc)
	lines := strings.Split(summary, "\n")
	require.Len(t, lines, 3)

	// Field diffs come first, item additions after, in suggestion order.
	assert.Equal(t, "customer:  → ACME", lines[0])
	assert.Equal(t, "+ Lemons ($600 × 2)", lines[1])
	assert.Equal(t, "+ Delivery ($149.99 × 1.5)", lines[2])
}

func TestSummarizeChangesReadOnly(t *testing.T) {
	doc := docWithItems(4, LineItem{Description: "A", Quantity: 1, Price: 5})
	snapshot := doc.Clone()
	s := &Suggestion{Customer: strPtr("ACME")}

	_ = SummarizeChanges(s, doc)
	assert.Equal(t, snapshot, doc)
}

func TestSummarizeChangesNilSuggestion(t *testing.T) {
	assert.Empty(t, SummarizeChanges(nil, DefaultInvoice()))
}
