package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithItems(tax float64, items ...LineItem) *Invoice {
	return &Invoice{
		ID:     "INV-1",
		Mode:   ModeInvoice,
		Number: "INV-0042",
		Date:   "2024-01-01",
		Tax:    tax,
		Items:  items,
	}
}

func TestApplyTax(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "Widget", Quantity: 2, Price: 10})

	got, err := Apply(doc, TaxAction{Percent: 10})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, 20.0, got.Items[0].Total)
	assert.Equal(t, 2.0, got.Items[0].TaxAmount)
	assert.Equal(t, 22.0, got.Items[0].Subtotal)
	assert.Equal(t, 20.0, got.Subtotal)
	assert.Equal(t, 2.0, got.TaxAmount)
	assert.Equal(t, 22.0, got.Total)
}

func TestApplyTaxIdempotent(t *testing.T) {
	doc := docWithItems(0,
		LineItem{Description: "Widget", Quantity: 2, Price: 10},
		LineItem{Description: "Gadget", Quantity: 3, Price: 7.5},
	)

	once, err := Apply(doc, TaxAction{Percent: 12.5})
	require.NoError(t, err)
	twice, err := Apply(once, TaxAction{Percent: 12.5})
	require.NoError(t, err)

	assert.Equal(t, once.Items, twice.Items)
	assert.Equal(t, once.Subtotal, twice.Subtotal)
	assert.Equal(t, once.TaxAmount, twice.TaxAmount)
	assert.Equal(t, once.Total, twice.Total)
}

func TestTotalsConsistency(t *testing.T) {
	doc := docWithItems(7.25,
		LineItem{Description: "A", Quantity: 3, Price: 19.99},
		LineItem{Description: "B", Quantity: 1.5, Price: 42},
	)

	actions := []Action{
		TaxAction{Percent: 7.25},
		ItemAction{Index: 2, Item: &LineItemInput{Description: "C", Quantity: 4, Price: 3.33}},
		ItemsAction{Items: []LineItemInput{
			{Description: "X", Quantity: 2, Price: 10},
			{Description: "Y", Quantity: 1, Price: 0.07},
		}},
		FullAction{Patch: DocumentPatch{Message: strPtr("hello")}},
		ModeAction{Mode: ModeReceipt},
		ReceiptAction{Patch: ReceiptPatch{Status: strPtr(ReceiptStatusPaid)}},
	}

	current := doc
	for _, action := range actions {
		next, err := Apply(current, action)
		require.NoError(t, err)

		var sumTotal, sumTax float64
		for _, item := range next.Items {
			assert.InDelta(t, item.Quantity*item.Price, item.Total, 1e-9)
			assert.InDelta(t, item.Total*next.Tax/100, item.TaxAmount, 1e-9)
			assert.InDelta(t, item.Total+item.TaxAmount, item.Subtotal, 1e-9)
			sumTotal += item.Total
			sumTax += item.TaxAmount
		}
		assert.InDelta(t, sumTotal, next.Subtotal, 1e-9)
		assert.InDelta(t, sumTax, next.TaxAmount, 1e-9)
		assert.InDelta(t, next.Subtotal+next.TaxAmount, next.Total, 1e-9)
		current = next
	}
}

func TestTextSkipsRecompute(t *testing.T) {
	// Deliberately stale totals: a text edit must not touch them.
	doc := docWithItems(0, LineItem{Description: "Widget", Quantity: 2, Price: 10})
	doc.Subtotal = 999
	doc.Total = 999

	got, err := Apply(doc, TextAction{Field: "customer", Value: "ACME Corp"})
	require.NoError(t, err)

	assert.Equal(t, "ACME Corp", got.Customer)
	assert.Equal(t, 999.0, got.Subtotal)
	assert.Equal(t, 999.0, got.Total)

	// Any other action repairs them.
	repaired, err := Apply(got, ReceiptAction{})
	require.NoError(t, err)
	assert.Equal(t, 20.0, repaired.Subtotal)
	assert.Equal(t, 20.0, repaired.Total)
}

func TestTextUnknownFieldIsInert(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "Widget", Quantity: 2, Price: 10})

	got, err := Apply(doc, TextAction{Field: "nonsense", Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, doc.Customer, got.Customer)
	assert.Equal(t, doc.Number, got.Number)
}

func TestModeToggleInvolutive(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "Widget", Quantity: 1, Price: 5})
	require.Equal(t, "INV-0042", doc.Number)

	asReceipt, err := Apply(doc, ModeAction{Mode: ModeReceipt})
	require.NoError(t, err)
	assert.Equal(t, "RCP-0042", asReceipt.Number)
	assert.Equal(t, ModeReceipt, asReceipt.Mode)

	back, err := Apply(asReceipt, ModeAction{Mode: ModeInvoice})
	require.NoError(t, err)
	assert.Equal(t, doc.Number, back.Number)
	assert.Equal(t, ModeInvoice, back.Mode)
}

func TestFullPrunesEmptyItems(t *testing.T) {
	doc := docWithItems(0,
		LineItem{},
		LineItem{Description: "A", Quantity: 1, Price: 5},
	)

	got, err := Apply(doc, FullAction{Patch: DocumentPatch{Items: doc.Items}})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "A", got.Items[0].Description)
	assert.Equal(t, 5.0, got.Subtotal)
	assert.Equal(t, 5.0, got.Total)
}

func TestFullNeverEmptiesItems(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 5})

	got, err := Apply(doc, FullAction{Patch: DocumentPatch{Items: []LineItem{{}}}})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, blankItem().Quantity, got.Items[0].Quantity)
	assert.Empty(t, got.Items[0].Description)
}

func TestItemReplaceAndAppend(t *testing.T) {
	doc := docWithItems(10, LineItem{Description: "Old", Quantity: 1, Price: 1})

	replaced, err := Apply(doc, ItemAction{Index: 0, Item: &LineItemInput{Description: "New", Quantity: 2, Price: 3}})
	require.NoError(t, err)
	require.Len(t, replaced.Items, 1)
	assert.Equal(t, "New", replaced.Items[0].Description)
	assert.Equal(t, 6.0, replaced.Items[0].Total)
	assert.InDelta(t, 0.6, replaced.Items[0].TaxAmount, 1e-9)

	appended, err := Apply(replaced, ItemAction{Index: 1, Item: &LineItemInput{Description: "Extra", Quantity: 1, Price: 4}})
	require.NoError(t, err)
	require.Len(t, appended.Items, 2)
	assert.Equal(t, "Extra", appended.Items[1].Description)
}

func TestItemMalformedPayloadIsInert(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "Keep", Quantity: 1, Price: 5})

	got, err := Apply(doc, ItemAction{Index: 0, Item: nil})
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Items[0].Description)

	got, err = Apply(doc, ItemAction{Index: 7, Item: &LineItemInput{Description: "Lost"}})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Keep", got.Items[0].Description)
}

func TestPaymentTermsDueDate(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 1})
	doc.Date = "2024-01-01"

	got, err := Apply(doc, PaymentTermsAction{Terms: Terms15Days})
	require.NoError(t, err)
	assert.Equal(t, Terms15Days, got.PaymentTerms)
	assert.Equal(t, "2024-01-16", got.DueDate)

	got, err = Apply(doc, PaymentTermsAction{Terms: Terms30Days})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got.DueDate)

	got, err = Apply(doc, PaymentTermsAction{Terms: TermsReceipt})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", got.DueDate)
}

func TestPaymentTermsSpecificKeepsDueDate(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 1})
	doc.DueDate = "2030-06-01"

	got, err := Apply(doc, PaymentTermsAction{Terms: TermsSpecific})
	require.NoError(t, err)
	assert.Equal(t, TermsSpecific, got.PaymentTerms)
	assert.Equal(t, "2030-06-01", got.DueDate)
}

func TestReceiptMerge(t *testing.T) {
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 1})
	doc.Receipt = Receipt{Status: ReceiptStatusPending, Notes: "keep me"}

	got, err := Apply(doc, ReceiptAction{Patch: ReceiptPatch{
		Status:        strPtr(ReceiptStatusPaid),
		PaymentMethod: strPtr(PaymentMethodBank),
	}})
	require.NoError(t, err)

	assert.Equal(t, ReceiptStatusPaid, got.Receipt.Status)
	assert.Equal(t, PaymentMethodBank, got.Receipt.PaymentMethod)
	assert.Equal(t, "keep me", got.Receipt.Notes)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	doc := docWithItems(5, LineItem{Description: "Widget", Quantity: 2, Price: 10})
	snapshot := doc.Clone()

	_, err := Apply(doc, TaxAction{Percent: 50})
	require.NoError(t, err)
	_, err = Apply(doc, ItemAction{Index: 0, Item: &LineItemInput{Description: "Changed", Quantity: 9, Price: 9}})
	require.NoError(t, err)

	assert.Equal(t, snapshot, doc)
}

func TestApplyGuardsMissingIDAndItems(t *testing.T) {
	got, err := Apply(&Invoice{}, TaxAction{Percent: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1.0, got.Items[0].Quantity)
}

func TestNegativeQuantitiesNotClamped(t *testing.T) {
	// The reducer only defaults unparseable input to zero; negatives
	// pass through (the suggestion path is where clamping happens).
	doc := docWithItems(0, LineItem{Description: "A", Quantity: 1, Price: 1})

	got, err := Apply(doc, ItemAction{Index: 0, Item: &LineItemInput{Description: "Refund", Quantity: 1, Price: -20}})
	require.NoError(t, err)
	assert.Equal(t, -20.0, got.Items[0].Total)
	assert.Equal(t, -20.0, got.Total)
}

func strPtr(s string) *string { return &s }
