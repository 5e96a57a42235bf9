package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vantive/scansight/internal/domain"
)

// TextExtractor turns an uploaded document into plain text. File-format
// parsing (PDF, spreadsheets) lives behind this interface, outside the
// retrieval engine.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc *domain.Document) (string, error)
}

// IngestionDocumentRepository defines the repository interface for documents
// during ingestion.
type IngestionDocumentRepository interface {
	GetByID(ctx context.Context, id, tenantID string) (*domain.Document, error)
}

// UUIDGenerator generates unique identifiers
type UUIDGenerator interface {
	NewID() string
}

// DefaultUUIDGenerator generates UUIDs using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewID() string {
	return uuid.NewString()
}

// IngestionService chunks and embeds one document's text and replaces its
// stored chunk set. Called by the background worker.
type IngestionService struct {
	extractor  TextExtractor
	embedding  EmbeddingClient
	docs       IngestionDocumentRepository
	tx         TxRunner
	uuid       UUIDGenerator
	chunkCfg   ChunkConfig
	dimensions int
}

// NewIngestionService creates a new IngestionService instance. dimensions is
// the deployment-wide embedding dimensionality; every chunk written must
// match it exactly.
func NewIngestionService(
	extractor TextExtractor,
	embedding EmbeddingClient,
	docs IngestionDocumentRepository,
	tx TxRunner,
	uuid UUIDGenerator,
	dimensions int,
) *IngestionService {
	return &IngestionService{
		extractor:  extractor,
		embedding:  embedding,
		docs:       docs,
		tx:         tx,
		uuid:       uuid,
		chunkCfg:   DefaultChunkConfig(),
		dimensions: dimensions,
	}
}

// IngestDocument extracts, chunks, embeds, and stores one document. The
// chunk swap and the document status update commit in one transaction, so a
// reader never sees a half-replaced document.
func (s *IngestionService) IngestDocument(ctx context.Context, documentID, tenantID string) error {
	doc, err := s.docs.GetByID(ctx, documentID, tenantID)
	if err != nil {
		return err
	}

	text, err := s.extractor.ExtractText(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	fragments := splitText(text, s.chunkCfg)
	createdAt := time.Now().UTC()

	chunks := make([]domain.Chunk, 0, len(fragments))
	for _, fragment := range fragments {
		embedding, err := s.embedding.GenerateEmbedding(ctx, fragment)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}

		chunk := domain.Chunk{
			ID:         s.uuid.NewID(),
			TenantID:   doc.TenantID,
			ScanID:     doc.ScanID,
			DocumentID: doc.ID,
			Text:       fragment,
			Embedding:  embedding,
			CreatedAt:  createdAt,
		}
		if err := domain.ValidateChunk(&chunk, s.dimensions); err != nil {
			return fmt.Errorf("invalid chunk for document %s: %w", doc.ID, err)
		}
		chunks = append(chunks, chunk)
	}

	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceDocumentChunks(ctx, doc.ID, doc.TenantID, chunks); err != nil {
			return fmt.Errorf("failed to replace document chunks: %w", err)
		}
		if err := repos.Documents().UpdateStatus(ctx, doc.ID, doc.TenantID, domain.DocumentStatusIngested); err != nil {
			return fmt.Errorf("failed to update document status: %w", err)
		}
		return nil
	})
}
