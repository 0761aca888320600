package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amberlin/invoice-studio/internal/ai"
	"github.com/amberlin/invoice-studio/internal/engine"
	"github.com/amberlin/invoice-studio/internal/export"
	"github.com/amberlin/invoice-studio/internal/extract"
	"github.com/amberlin/invoice-studio/internal/preview"
	"github.com/amberlin/invoice-studio/internal/qr"
	"github.com/amberlin/invoice-studio/internal/repository"
)

// Handlers contains all HTTP request handlers. Editors are kept in
// memory per document and rehydrated from the repository on demand; mu
// guards the editor map and serializes edits within a document.
type Handlers struct {
	repo      *repository.DocumentRepository
	suggester *ai.Suggester
	extractor *extract.Extractor
	renderer  *preview.Renderer
	exporter  *export.XLSXExporter
	tempDir   string
	maxUpload int64
	logger    *zap.Logger

	mu      sync.Mutex
	editors map[string]*engine.Editor
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	repo *repository.DocumentRepository,
	suggester *ai.Suggester,
	extractor *extract.Extractor,
	renderer *preview.Renderer,
	exporter *export.XLSXExporter,
	tempDir string,
	maxUploadMB int,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		repo:      repo,
		suggester: suggester,
		extractor: extractor,
		renderer:  renderer,
		exporter:  exporter,
		tempDir:   tempDir,
		maxUpload: int64(maxUploadMB) * 1024 * 1024,
		logger:    logger,
		editors:   make(map[string]*engine.Editor),
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DocumentResponse carries the document state the client renders after
// every mutation, along with the undo/redo availability flags.
type DocumentResponse struct {
	Document *engine.Invoice `json:"document"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	DocumentID  string          `json:"documentId" binding:"required"`
	Message     string          `json:"message"`
	FileContext *ai.FileContext `json:"fileContext,omitempty"`
}

// ChatResponse pairs the model's suggestion with a human-readable diff
// against the current document.
type ChatResponse struct {
	Suggestions   *engine.Suggestion `json:"suggestions,omitempty"`
	ChangeSummary string             `json:"changeSummary,omitempty"`
	Explanation   string             `json:"explanation,omitempty"`
}

// QRCodeRequest is the body of POST /api/qrcode.
type QRCodeRequest struct {
	Link string `json:"link" binding:"required"`
	Size int    `json:"size"`
}

func docResponse(ed *engine.Editor) DocumentResponse {
	return DocumentResponse{
		Document: ed.Document(),
		CanUndo:  ed.CanUndo(),
		CanRedo:  ed.CanRedo(),
	}
}

// editor returns the in-memory editor for id, loading the stored
// document and history when the session is cold. Callers must hold mu;
// mutating handlers keep it for the whole edit-and-save cycle.
func (h *Handlers) editor(c *gin.Context, id string) (*engine.Editor, error) {
	if ed, ok := h.editors[id]; ok {
		return ed, nil
	}
	doc, history, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var ed *engine.Editor
	if history != nil && history.Len() > 0 {
		ed = engine.ResumeEditor(history)
	} else {
		ed = engine.NewEditor(doc)
	}
	h.editors[id] = ed
	return ed, nil
}

// snapshot returns the current document for id, captured while holding
// mu. Dispatch swaps the editor's live pointer under the mutex, so
// read-only handlers must take their copy of the pointer under it too;
// the document value itself is immutable once committed. A nil document
// with a nil error means the id is unknown.
func (h *Handlers) snapshot(c *gin.Context, id string) (*engine.Invoice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, err := h.editor(c, id)
	if err != nil || ed == nil {
		return nil, err
	}
	return ed.Document(), nil
}

func (h *Handlers) save(c *gin.Context, ed *engine.Editor) error {
	return h.repo.Save(c.Request.Context(), ed.Document(), ed.History())
}

// CreateDocument handles POST /api/documents
func (h *Handlers) CreateDocument(c *gin.Context) {
	h.createFrom(c, engine.DefaultInvoice())
}

// CreateDemoDocument handles POST /api/documents/demo
func (h *Handlers) CreateDemoDocument(c *gin.Context) {
	h.createFrom(c, engine.DemoInvoice())
}

func (h *Handlers) createFrom(c *gin.Context, doc *engine.Invoice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ed := engine.NewEditor(doc)
	if err := h.save(c, ed); err != nil {
		h.logger.Error("Failed to create document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create document"})
		return
	}
	h.editors[ed.Document().ID] = ed

	c.JSON(http.StatusCreated, Response{Success: true, Data: docResponse(ed)})
}

// ListDocuments handles GET /api/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	summaries, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summaries})
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ed, err := h.editor(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if ed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: docResponse(ed)})
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := c.Param("id")
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete document"})
		return
	}
	delete(h.editors, id)
	c.JSON(http.StatusOK, Response{Success: true})
}

// ApplyAction handles POST /api/documents/:id/actions. The body is a
// tagged action envelope; an unknown tag is the client's mistake and a
// 400, a malformed payload within a known tag is absorbed.
func (h *Handlers) ApplyAction(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read request body"})
		return
	}

	action, err := engine.DecodeAction(body)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownAction) {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid action payload"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ed, err := h.editor(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if ed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	if _, err := ed.Dispatch(action); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	if err := h.save(c, ed); err != nil {
		h.logger.Error("Failed to persist document", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to save document"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: docResponse(ed)})
}

// ApplySuggestion handles POST /api/documents/:id/suggestions. The
// suggestion is merged against the current state and applied as one
// undoable step.
func (h *Handlers) ApplySuggestion(c *gin.Context) {
	var suggestion engine.Suggestion
	if err := c.ShouldBindJSON(&suggestion); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid suggestion payload"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ed, err := h.editor(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if ed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	if _, err := ed.ApplySuggestion(&suggestion); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	if err := h.save(c, ed); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to save document"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: docResponse(ed)})
}

// Undo handles POST /api/documents/:id/undo
func (h *Handlers) Undo(c *gin.Context) {
	h.timeTravel(c, func(ed *engine.Editor) bool {
		if !ed.CanUndo() {
			return false
		}
		ed.Undo()
		return true
	})
}

// Redo handles POST /api/documents/:id/redo
func (h *Handlers) Redo(c *gin.Context) {
	h.timeTravel(c, func(ed *engine.Editor) bool {
		if !ed.CanRedo() {
			return false
		}
		ed.Redo()
		return true
	})
}

// timeTravel runs an undo/redo style move; a refused move (already at
// the boundary) still returns the current state.
func (h *Handlers) timeTravel(c *gin.Context, move func(*engine.Editor) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ed, err := h.editor(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if ed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	if move(ed) {
		if err := h.save(c, ed); err != nil {
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to save document"})
			return
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: docResponse(ed)})
}

// ResetDocument handles POST /api/documents/:id/reset. The document
// returns to a blank state and history restarts from it.
func (h *Handlers) ResetDocument(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ed, err := h.editor(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if ed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	oldID := c.Param("id")
	ed.Reset(engine.DefaultInvoice())
	if err := h.save(c, ed); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to save document"})
		return
	}
	if newID := ed.Document().ID; newID != oldID {
		delete(h.editors, oldID)
		h.editors[newID] = ed
		if err := h.repo.Delete(c.Request.Context(), oldID); err != nil {
			h.logger.Warn("Failed to remove old document after reset",
				zap.String("id", oldID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: docResponse(ed)})
}

// Chat handles POST /api/chat. The reply carries the model's suggestion
// plus a change summary against the current document; applying it is a
// separate, user-confirmed call.
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "documentId is required"})
		return
	}

	doc, err := h.snapshot(c, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	result, err := h.suggester.Suggest(c.Request.Context(), req.Message, doc, req.FileContext)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "assistant is not configured"})
			return
		}
		h.logger.Error("Chat request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "chat request failed"})
		return
	}

	resp := ChatResponse{Explanation: result.Explanation}
	if result.Suggestions != nil {
		resp.Suggestions = result.Suggestions
		resp.ChangeSummary = engine.SummarizeChanges(result.Suggestions, doc)
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// ProcessFile handles POST /api/process-file. The uploaded file is
// extracted to text (or page images for scanned documents, analyzed by
// the vision model) and turned into a suggestion.
func (h *Handlers) ProcessFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
		return
	}
	documentID := c.PostForm("documentId")
	message := c.PostForm("message")

	tmpPath := filepath.Join(h.tempDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		h.logger.Error("Failed to store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to store upload"})
		return
	}
	defer os.Remove(tmpPath)

	extracted, err := h.extractor.Extract(tmpPath, file.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	content := extracted.Content
	if content == "" && len(extracted.Images) > 0 {
		content, err = h.suggester.AnalyzeImages(c.Request.Context(), extracted.Images)
		if err != nil {
			if errors.Is(err, ai.ErrNotConfigured) {
				c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "assistant is not configured"})
				return
			}
			h.logger.Error("Vision analysis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to analyze document images"})
			return
		}
	}
	if content == "" {
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: "no readable content in file"})
		return
	}

	var current *engine.Invoice
	if documentID != "" {
		current, _ = h.snapshot(c, documentID)
	}

	result, err := h.suggester.Suggest(c.Request.Context(), message, current,
		&ai.FileContext{Filename: file.Filename, Content: content})
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "assistant is not configured"})
			return
		}
		h.logger.Error("File suggestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to process file"})
		return
	}

	resp := ChatResponse{Explanation: result.Explanation}
	if result.Suggestions != nil {
		resp.Suggestions = result.Suggestions
		if current != nil {
			resp.ChangeSummary = engine.SummarizeChanges(result.Suggestions, current)
		}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// GenerateQRCode handles POST /api/qrcode
func (h *Handlers) GenerateQRCode(c *gin.Context) {
	var req QRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "link is required"})
		return
	}
	svg, err := qr.SVG(req.Link, req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"svg": svg}})
}

// PreviewDocument handles GET /api/documents/:id/preview
func (h *Handlers) PreviewDocument(c *gin.Context) {
	doc, err := h.snapshot(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	html, err := h.renderer.Render(doc)
	if err != nil {
		h.logger.Error("Preview render failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to render preview"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// ExportDocument handles GET /api/documents/:id/export
func (h *Handlers) ExportDocument(c *gin.Context) {
	doc, err := h.snapshot(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "document not found"})
		return
	}

	data, err := h.exporter.Export(doc)
	if err != nil {
		h.logger.Error("Export failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export document"})
		return
	}

	filename := fmt.Sprintf("%s.xlsx", doc.Number)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
