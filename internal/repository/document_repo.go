package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amberlin/invoice-studio/internal/engine"
	"go.uber.org/zap"
)

// DocumentSummary is the list-view projection of a stored document.
type DocumentSummary struct {
	ID        string      `json:"id"`
	Mode      engine.Mode `json:"mode"`
	Number    string      `json:"number"`
	Total     float64     `json:"total"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// DocumentRepository persists documents together with their undo/redo
// history, keyed by document id. Both are stored as JSON blobs; the
// history column round-trips the full snapshot sequence and pointer.
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts a document and its history.
func (r *DocumentRepository) Save(ctx context.Context, doc *engine.Invoice, history *engine.History) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	historyData, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	query := `
		INSERT INTO documents (id, mode, number, total, data, history, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			number = excluded.number,
			total = excluded.total,
			data = excluded.data,
			history = excluded.history,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query,
		doc.ID, string(doc.Mode), doc.Number, doc.Total, string(data), string(historyData),
	); err != nil {
		r.logger.Error("Failed to save document", zap.String("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Get retrieves a document and its history by id. Both return values
// are nil when the id is unknown.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*engine.Invoice, *engine.History, error) {
	query := `SELECT data, history FROM documents WHERE id = ?`

	var data, historyData string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data, &historyData)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("id", id), zap.Error(err))
		return nil, nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc engine.Invoice
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	var history engine.History
	if err := json.Unmarshal([]byte(historyData), &history); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal history for %s: %w", id, err)
	}
	return &doc, &history, nil
}

// List returns summaries of all stored documents, most recently updated
// first.
func (r *DocumentRepository) List(ctx context.Context) ([]DocumentSummary, error) {
	query := `
		SELECT id, mode, number, total, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var summaries []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		var mode string
		if err := rows.Scan(&s.ID, &mode, &s.Number, &s.Total, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		s.Mode = engine.Mode(mode)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a document. Deleting an unknown id is not an error.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete document", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
