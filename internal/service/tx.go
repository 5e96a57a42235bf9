package service

import (
	"context"

	"github.com/vantive/scansight/internal/domain"
)

// ChunkReplacer swaps a document's chunk set atomically with the rest of an
// ingestion transaction.
type ChunkReplacer interface {
	ReplaceDocumentChunks(ctx context.Context, documentID, tenantID string, chunks []domain.Chunk) error
}

// DocumentStatusUpdater updates document lifecycle state.
type DocumentStatusUpdater interface {
	UpdateStatus(ctx context.Context, id, tenantID string, status domain.DocumentStatus) error
}

// IngestionJobCreator enqueues ingestion jobs.
type IngestionJobCreator interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Chunks() ChunkReplacer
	Documents() DocumentStatusUpdater
	IngestionJobs() IngestionJobCreator
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
