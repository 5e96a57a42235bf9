package domain

import (
	"fmt"
	"time"
)

// Chunk is the atomic retrievable unit: one embedded fragment of a source
// document, always owned by exactly one scan within one tenant.
type Chunk struct {
	ID         string
	TenantID   string
	ScanID     string
	DocumentID string
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// NewChunk creates a Chunk instance.
func NewChunk(id, tenantID, scanID, documentID, text string, embedding []float32, createdAt time.Time) *Chunk {
	return &Chunk{
		ID:         id,
		TenantID:   tenantID,
		ScanID:     scanID,
		DocumentID: documentID,
		Text:       text,
		Embedding:  embedding,
		CreatedAt:  createdAt,
	}
}

// ValidateChunk validates a Chunk instance. expectedDim is the embedding
// dimensionality of the deployment; a mismatch is a hard ingestion error.
func ValidateChunk(c *Chunk, expectedDim int) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("chunk TenantID is required")
	}

	if c.ScanID == "" {
		return fmt.Errorf("chunk ScanID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	if expectedDim > 0 && len(c.Embedding) != expectedDim {
		return fmt.Errorf("chunk embedding has %d dimensions, expected %d: %w", len(c.Embedding), expectedDim, ErrEmbeddingDimension)
	}

	return nil
}
