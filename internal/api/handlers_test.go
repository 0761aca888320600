package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amberlin/invoice-studio/internal/ai"
	"github.com/amberlin/invoice-studio/internal/engine"
	"github.com/amberlin/invoice-studio/internal/export"
	"github.com/amberlin/invoice-studio/internal/extract"
	"github.com/amberlin/invoice-studio/internal/preview"
	"github.com/amberlin/invoice-studio/internal/repository"
	"github.com/amberlin/invoice-studio/pkg/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	renderer, err := preview.NewRenderer()
	require.NoError(t, err)

	handlers := NewHandlers(
		repository.NewDocumentRepository(db.DB, logger),
		ai.NewSuggester(ai.Config{}, logger),
		extract.NewExtractor(2, logger),
		renderer,
		export.NewXLSXExporter(logger),
		t.TempDir(),
		20,
		logger,
	)
	return NewServer(DefaultServerConfig(), handlers, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) DocumentResponse {
	t.Helper()
	var resp struct {
		Success bool             `json:"success"`
		Data    DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data.Document)
	return resp.Data
}

func createDocument(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/documents", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeDocument(t, w).Document.ID
}

func TestCreateAndGetDocument(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/documents/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeDocument(t, w)
	assert.Equal(t, id, data.Document.ID)
	assert.Equal(t, engine.ModeInvoice, data.Document.Mode)
	assert.False(t, data.CanUndo)
	assert.False(t, data.CanRedo)
}

func TestCreateDemoDocument(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/documents/demo", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeDocument(t, w)
	assert.Equal(t, engine.ModeReceipt, data.Document.Mode)
	assert.Equal(t, "RCP-FRESH", data.Document.Number)
	assert.InDelta(t, 1666, data.Document.Total, 1e-9)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/documents/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyActionRecomputesTotals(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type": "item",
		"payload": map[string]any{
			"index": 0,
			"item":  map[string]any{"description": "Widget", "quantity": 2, "price": 10},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type":    "tax",
		"payload": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeDocument(t, w)
	assert.InDelta(t, 20, data.Document.Subtotal, 1e-9)
	assert.InDelta(t, 2, data.Document.TaxAmount, 1e-9)
	assert.InDelta(t, 22, data.Document.Total, 1e-9)
	assert.True(t, data.CanUndo)
}

func TestApplyActionUnknownType(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type":    "explode",
		"payload": nil,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown action type")
}

func TestUndoRedoFlow(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type":    "text",
		"payload": map[string]any{"field": "customer", "value": "Widgets Inc"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/undo", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeDocument(t, w)
	assert.Empty(t, data.Document.Customer)
	assert.True(t, data.CanRedo)

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/redo", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeDocument(t, w)
	assert.Equal(t, "Widgets Inc", data.Document.Customer)

	// at the newest entry, redo is a refused no-op
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/redo", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeDocument(t, w)
	assert.Equal(t, "Widgets Inc", data.Document.Customer)
	assert.False(t, data.CanRedo)
}

func TestApplySuggestionEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/suggestions", id), map[string]any{
		"tax": 10,
		"items": []map[string]any{
			{"description": "Consulting", "quantity": 3, "price": 100},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeDocument(t, w)
	assert.InDelta(t, 300, data.Document.Subtotal, 1e-9)
	assert.InDelta(t, 30, data.Document.TaxAmount, 1e-9)
	assert.InDelta(t, 330, data.Document.Total, 1e-9)
	assert.True(t, data.CanUndo)
}

func TestResetDocument(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type":    "text",
		"payload": map[string]any{"field": "customer", "value": "Widgets Inc"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/reset", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeDocument(t, w)
	assert.Empty(t, data.Document.Customer)
	assert.False(t, data.CanUndo)
	assert.False(t, data.CanRedo)
}

func TestDeleteDocument(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodDelete, "/api/documents/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDocuments(t *testing.T) {
	s := newTestServer(t)
	createDocument(t, s)
	createDocument(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                         `json:"success"`
		Data    []repository.DocumentSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestChatUnconfigured(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/chat", ChatRequest{
		DocumentID: id,
		Message:    "add 10% tax",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGenerateQRCode(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/qrcode", QRCodeRequest{Link: "https://example.com/pay"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SVG string `json:"svg"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.SVG, "<svg"))

	w = doJSON(t, s, http.MethodPost, "/api/qrcode", QRCodeRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/documents/demo", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeDocument(t, w).Document.ID

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/documents/%s/preview", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "RCP-FRESH")
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/documents/demo", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeDocument(t, w).Document.ID

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/documents/%s/export", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "RCP-FRESH.xlsx")
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestConcurrentEditsAndReads(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	var wg sync.WaitGroup
	codes := make(chan int, 200)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
				"type":    "tax",
				"payload": n % 20,
			})
			codes <- w.Code
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/documents/%s/preview", id), nil)
			codes <- w.Code
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/documents/%s/export", id), nil)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestEditorSurvivesColdRestart(t *testing.T) {
	s := newTestServer(t)
	id := createDocument(t, s)

	w := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/actions", id), map[string]any{
		"type":    "text",
		"payload": map[string]any{"field": "issuer", "value": "Acme Corp"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// simulate a restart: drop the in-memory session, keep the store
	s.handlers.mu.Lock()
	delete(s.handlers.editors, id)
	s.handlers.mu.Unlock()

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/documents/%s/undo", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeDocument(t, w)
	assert.Empty(t, data.Document.Issuer)
	assert.True(t, data.CanRedo)
}
