package engine

import (
	"encoding/json"
	"fmt"
)

// History is a linear undo/redo stack of document snapshots plus a
// position pointer. Entries are deep copies: nothing handed to or from
// the history aliases a caller's document. Every committed action gets
// its own entry, including single-character text edits; there is no
// coalescing, so one undo step reverts one dispatched action.
//
// History is not safe for concurrent use; the editor assumes one
// in-flight mutation at a time.
type History struct {
	entries []*Invoice
	index   int
}

// NewHistory creates a history seeded with a single snapshot of doc.
func NewHistory(doc *Invoice) *History {
	h := &History{}
	h.Reset(doc)
	return h
}

// Commit truncates any redo-able future states and appends a snapshot of
// doc as the new current entry.
func (h *History) Commit(doc *Invoice) {
	h.entries = append(h.entries[:h.index+1], doc.Clone())
	h.index++
}

// Undo steps back one entry and returns a copy of it as the new live
// document. It reports false, returning nil, when already at the oldest
// entry.
func (h *History) Undo() (*Invoice, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.entries[h.index].Clone(), true
}

// Redo steps forward one entry and returns a copy of it. It reports
// false when already at the newest entry.
func (h *History) Redo() (*Invoice, bool) {
	if h.index == len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return h.entries[h.index].Clone(), true
}

// Reset replaces the history with a single snapshot of doc. Used when a
// document is replaced wholesale: reset, load, demo.
func (h *History) Reset(doc *Invoice) {
	if doc == nil {
		doc = &Invoice{}
	}
	h.entries = []*Invoice{doc.Clone()}
	h.index = 0
}

// CanUndo reports whether an older entry exists.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether a newer entry exists.
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the current position pointer.
func (h *History) Index() int { return h.index }

// Current returns a copy of the entry at the position pointer.
func (h *History) Current() *Invoice {
	return h.entries[h.index].Clone()
}

type historySnapshot struct {
	Entries      []*Invoice `json:"entries"`
	CurrentIndex int        `json:"currentIndex"`
}

// MarshalJSON serializes the full snapshot sequence and pointer. The
// format round-trips losslessly through UnmarshalJSON.
func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(historySnapshot{Entries: h.entries, CurrentIndex: h.index})
}

func (h *History) UnmarshalJSON(data []byte) error {
	var snap historySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode history snapshot: %w", err)
	}
	if len(snap.Entries) == 0 {
		return fmt.Errorf("history snapshot has no entries")
	}
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Entries) {
		return fmt.Errorf("history snapshot index %d out of range [0,%d)", snap.CurrentIndex, len(snap.Entries))
	}
	h.entries = snap.Entries
	h.index = snap.CurrentIndex
	return nil
}
