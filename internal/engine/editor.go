package engine

// Editor binds one live document to its history: dispatching an action
// runs the reducer and commits the result as a new snapshot, undo/redo
// replay snapshots without touching the reducer.
//
// An Editor handles exactly one in-flight mutation at a time. Dispatch
// and the history operations are not reentrant-safe: callers must not
// dispatch again from within a commit callback, and concurrent callers
// need their own serialization (the HTTP layer holds a lock per
// document).
type Editor struct {
	doc     *Invoice
	history *History
}

// NewEditor starts an editing session on doc, seeding the history with
// it. A nil doc starts from the default document.
func NewEditor(doc *Invoice) *Editor {
	if doc == nil {
		doc = DefaultInvoice()
	}
	return &Editor{doc: doc, history: NewHistory(doc)}
}

// ResumeEditor rebuilds a session from a persisted history snapshot: the
// live document is the history's current entry.
func ResumeEditor(history *History) *Editor {
	return &Editor{doc: history.Current(), history: history}
}

// Document returns the live document.
func (e *Editor) Document() *Invoice { return e.doc }

// History returns the session's history, e.g. for persistence.
func (e *Editor) History() *History { return e.history }

// Dispatch applies the action and commits the result as one history
// entry. Text edits are committed like everything else: one entry per
// dispatched action, so a single field edit is a single undo step.
func (e *Editor) Dispatch(action Action) (*Invoice, error) {
	next, err := Apply(e.doc, action)
	if err != nil {
		return nil, err
	}
	e.doc = next
	e.history.Commit(next)
	return next, nil
}

// ApplySuggestion merges the suggestion into the live document and
// dispatches the resulting FULL action.
func (e *Editor) ApplySuggestion(s *Suggestion) (*Invoice, error) {
	return e.Dispatch(MergeSuggestion(e.doc, s))
}

// Undo steps the session back one snapshot. It is a no-op at the oldest
// entry; the returned document is always the live one.
func (e *Editor) Undo() *Invoice {
	if doc, ok := e.history.Undo(); ok {
		e.doc = doc
	}
	return e.doc
}

// Redo steps the session forward one snapshot; no-op at the newest.
func (e *Editor) Redo() *Invoice {
	if doc, ok := e.history.Redo(); ok {
		e.doc = doc
	}
	return e.doc
}

// Reset replaces the document wholesale and reinitializes the history to
// a single entry. A nil doc resets to the default document.
func (e *Editor) Reset(doc *Invoice) *Invoice {
	if doc == nil {
		doc = DefaultInvoice()
	}
	e.doc = doc
	e.history.Reset(doc)
	return e.doc
}

// CanUndo reports whether an undo step is available.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a redo step is available.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }
