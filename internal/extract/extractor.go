package extract

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Extraction text below this length means the PDF is likely scanned and
// worth sending through the vision path.
const minUsefulText = 20

// Extracted is the outcome of pulling content from an uploaded file:
// plain text where the format carries it, page images where it doesn't
// (scanned PDFs, photos) so the vision model can take over.
type Extracted struct {
	Filename string
	Content  string
	Images   [][]byte
}

// Extractor pulls text content out of uploaded invoice files.
type Extractor struct {
	visionPages int
	logger      *zap.Logger
}

// NewExtractor creates a new extractor. visionPages caps how many PDF
// pages are rendered for vision analysis.
func NewExtractor(visionPages int, logger *zap.Logger) *Extractor {
	return &Extractor{visionPages: visionPages, logger: logger}
}

// Extract reads the file at path and extracts its content based on the
// extension of the original filename. Unsupported extensions are an
// error; extraction yielding no text is not.
func (e *Extractor) Extract(path, filename string) (*Extracted, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	e.logger.Info("Extracting file content",
		zap.String("filename", filename),
		zap.String("ext", ext))

	switch ext {
	case ".pdf":
		return e.extractPDF(path, filename)
	case ".docx":
		text, err := readDocxText(path)
		if err != nil {
			return nil, fmt.Errorf("failed to extract DOCX text: %w", err)
		}
		return &Extracted{Filename: filename, Content: strings.TrimSpace(text)}, nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		return &Extracted{Filename: filename, Content: strings.TrimSpace(string(data))}, nil
	case ".jpg", ".jpeg", ".png":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		return &Extracted{Filename: filename, Images: [][]byte{data}}, nil
	}

	return nil, fmt.Errorf("unsupported file type: %s", ext)
}

// extractPDF pulls the text layer from every page. When the document has
// no usable text layer, the first pages are rendered to JPEG instead.
func (e *Extractor) extractPDF(path, filename string) (*Extracted, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.Int("page", n+1),
				zap.Error(err))
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			pages = append(pages, t)
		}
	}

	out := &Extracted{Filename: filename, Content: strings.Join(pages, "\n\n")}
	if len(out.Content) >= minUsefulText {
		return out, nil
	}

	e.logger.Info("PDF has no usable text layer, rendering pages",
		zap.String("filename", filename),
		zap.Int("pages", doc.NumPage()))
	out.Content = ""

	maxPages := doc.NumPage()
	if e.visionPages > 0 && maxPages > e.visionPages {
		maxPages = e.visionPages
	}
	for n := 0; n < maxPages; n++ {
		img, err := doc.Image(n)
		if err != nil {
			e.logger.Warn("Failed to render PDF page", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			e.logger.Warn("Failed to encode page JPEG", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		out.Images = append(out.Images, buf.Bytes())
	}
	return out, nil
}
