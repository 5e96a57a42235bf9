package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion state of a document.
type DocumentStatus string

const (
	DocumentStatusUploaded DocumentStatus = "uploaded"
	DocumentStatusIngested DocumentStatus = "ingested"
	DocumentStatusFailed   DocumentStatus = "failed"
)

// Document is a source file uploaded into a scan. Its extracted text is
// chunked and embedded by the ingestion path; the document row itself only
// carries metadata and the blob storage key.
type Document struct {
	ID         string
	TenantID   string
	ScanID     string
	Filename   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	Status     DocumentStatus
	CreatedAt  time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.ScanID == "" {
		return fmt.Errorf("document ScanID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusIngested, DocumentStatusFailed:
		return true
	}
	return false
}
