package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vantive/scansight/internal/domain"
)

// maxExtractBytes caps how much of an object is read during extraction.
const maxExtractBytes = 10 << 20

// ObjectGetter fetches stored objects by key.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor pulls a document's blob from storage and returns its plain
// text. Only text-based formats are handled here; binary formats need a
// format-specific extractor in front of ingestion.
type TextExtractor struct {
	objects ObjectGetter
}

// NewTextExtractor creates a new TextExtractor instance
func NewTextExtractor(objects ObjectGetter) *TextExtractor {
	return &TextExtractor{objects: objects}
}

// ExtractText implements the ingestion extractor interface.
func (e *TextExtractor) ExtractText(ctx context.Context, doc *domain.Document) (string, error) {
	if doc.StorageKey == "" {
		return "", fmt.Errorf("document %s has no storage key", doc.ID)
	}
	if !isTextMimeType(doc.MimeType) {
		return "", fmt.Errorf("unsupported mime type %q for document %s", doc.MimeType, doc.ID)
	}

	body, err := e.objects.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document %s: %w", doc.ID, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxExtractBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", doc.ID, err)
	}

	return string(data), nil
}

func isTextMimeType(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-ndjson":
		return true
	}
	return false
}
