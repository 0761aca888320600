package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownAction is returned when an action tag outside the eight
// defined variants reaches the reducer. It is the only error the engine
// signals outward; every other anomaly is absorbed as a no-op.
var ErrUnknownAction = errors.New("engine: unknown action type")

// Wire tags for the action envelope.
const (
	actionTax          = "tax"
	actionItem         = "item"
	actionPaymentTerms = "paymentTerms"
	actionText         = "text"
	actionItems        = "items"
	actionFull         = "full"
	actionMode         = "mode"
	actionReceipt      = "receipt"
)

// Number is a float64 that tolerates sloppy JSON: numeric strings are
// parsed, anything unparseable (or NaN) becomes 0. User input mid-typing
// must never corrupt the document.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(coerceFloat(strings.TrimSpace(string(b))))
	return nil
}

func coerceFloat(s string) float64 {
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// LineItemInput is the caller-supplied shape of a line item: description
// plus quantity and price as typed. Derived fields are the reducer's job.
type LineItemInput struct {
	Description string `json:"description"`
	Quantity    Number `json:"quantity"`
	Price       Number `json:"price"`
}

// ReceiptPatch is a partial receipt record; nil fields are left untouched.
type ReceiptPatch struct {
	PaymentDate   *string `json:"paymentDate,omitempty"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
	TransactionID *string `json:"transactionId,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// DocumentPatch is a partial document for FULL updates. Nil fields keep
// the current document's value; Items, when present, replaces the whole
// item list (subject to empty-item pruning); Receipt, when present,
// replaces the receipt record wholesale.
type DocumentPatch struct {
	ID                  *string    `json:"id,omitempty"`
	Mode                *Mode      `json:"mode,omitempty"`
	Number              *string    `json:"number,omitempty"`
	Date                *string    `json:"date,omitempty"`
	DueDate             *string    `json:"dueDate,omitempty"`
	Currency            *string    `json:"currency,omitempty"`
	Tax                 *Number    `json:"tax,omitempty"`
	Customer            *string    `json:"customer,omitempty"`
	Items               []LineItem `json:"items,omitempty"`
	Issuer              *string    `json:"issuer,omitempty"`
	LogoURL             *string    `json:"logoUrl,omitempty"`
	PaymentLink         *string    `json:"paymentLink,omitempty"`
	PaymentTerms        *string    `json:"paymentTerms,omitempty"`
	PaymentInstructions *string    `json:"paymentInstructions,omitempty"`
	Message             *string    `json:"message,omitempty"`
	QRCodeSVG           *string    `json:"qrCodeSvg,omitempty"`
	Receipt             *Receipt   `json:"receipt,omitempty"`
}

// Action is the closed set of document mutations. Adding a variant is a
// compile-time-checked change: the reducer's type switch must cover it.
type Action interface {
	isAction()
}

// TaxAction sets the tax percentage and re-derives every item.
type TaxAction struct {
	Percent float64
}

// ItemAction replaces the item at Index with a freshly computed item.
// Index may equal the current item count to append. A nil Item or an
// out-of-range index makes the action inert.
type ItemAction struct {
	Index int
	Item  *LineItemInput
}

// PaymentTermsAction sets the payment terms and, for anything other than
// "specific", re-derives the due date.
type PaymentTermsAction struct {
	Terms string
}

// TextAction sets a single text field. It is the one action that skips
// the totals recompute pass, so a field edit is one cheap undo step.
type TextAction struct {
	Field string
	Value string
}

// ItemsAction replaces the whole item list.
type ItemsAction struct {
	Items []LineItemInput
}

// FullAction shallow-merges a partial document over the current one.
type FullAction struct {
	Patch DocumentPatch
}

// ModeAction switches between invoice and receipt, rewriting the number
// prefix.
type ModeAction struct {
	Mode Mode
}

// ReceiptAction merges a partial receipt record into the document.
type ReceiptAction struct {
	Patch ReceiptPatch
}

func (TaxAction) isAction()          {}
func (ItemAction) isAction()         {}
func (PaymentTermsAction) isAction() {}
func (TextAction) isAction()         {}
func (ItemsAction) isAction()        {}
func (FullAction) isAction()         {}
func (ModeAction) isAction()         {}
func (ReceiptAction) isAction()      {}

// DecodeAction parses the wire form {"type": tag, "payload": ...} into a
// typed action. An unknown tag yields ErrUnknownAction; a malformed
// payload yields an inert action of the right variant, matching the
// absorb-don't-throw contract for caller mistakes.
func DecodeAction(data []byte) (Action, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}

	switch env.Type {
	case actionTax:
		var n Number
		_ = json.Unmarshal(env.Payload, &n)
		return TaxAction{Percent: float64(n)}, nil

	case actionItem:
		var p struct {
			Index int            `json:"index"`
			Item  *LineItemInput `json:"item"`
		}
		_ = json.Unmarshal(env.Payload, &p)
		return ItemAction{Index: p.Index, Item: p.Item}, nil

	case actionPaymentTerms:
		var p struct {
			Terms string `json:"terms"`
		}
		_ = json.Unmarshal(env.Payload, &p)
		return PaymentTermsAction{Terms: p.Terms}, nil

	case actionText:
		var p struct {
			Field string          `json:"field"`
			Value json.RawMessage `json:"value"`
		}
		_ = json.Unmarshal(env.Payload, &p)
		return TextAction{Field: p.Field, Value: rawToString(p.Value)}, nil

	case actionItems:
		var items []LineItemInput
		_ = json.Unmarshal(env.Payload, &items)
		return ItemsAction{Items: items}, nil

	case actionFull:
		var patch DocumentPatch
		_ = json.Unmarshal(env.Payload, &patch)
		return FullAction{Patch: patch}, nil

	case actionMode:
		var m Mode
		_ = json.Unmarshal(env.Payload, &m)
		return ModeAction{Mode: m}, nil

	case actionReceipt:
		var patch ReceiptPatch
		_ = json.Unmarshal(env.Payload, &patch)
		return ReceiptAction{Patch: patch}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
}

// rawToString renders a JSON scalar as the text a form field would hold.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
