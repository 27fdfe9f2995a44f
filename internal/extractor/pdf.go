// Package extractor turns uploaded PDF documents into plain text.
package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfchat/internal/domain"
)

// PDFExtractor concatenates the text of every page of every document.
type PDFExtractor struct {
	logger *slog.Logger
}

// New creates a PDFExtractor. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract returns the text of all documents in input order, pages in page order.
// Pages without extractable text contribute nothing; a document that cannot be
// opened fails the whole batch.
func (e *PDFExtractor) Extract(docs []domain.Document) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("%w: no documents supplied", domain.ErrExtraction)
	}
	var sb strings.Builder
	for _, doc := range docs {
		text, err := e.extractOne(doc)
		if err != nil {
			e.logger.Error("pdf extraction failed", "document", doc.Name, "error", err)
			return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Name, err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (e *PDFExtractor) extractOne(doc domain.Document) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("page has no extractable text", "document", doc.Name, "page", i, "error", err)
			continue
		}
		sb.WriteString(pageText)
	}
	e.logger.Debug("extracted document", "document", doc.Name, "pages", pages, "chars", sb.Len())
	return sb.String(), nil
}
