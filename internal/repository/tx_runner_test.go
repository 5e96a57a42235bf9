//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/service"
	"github.com/vantive/scansight/internal/testutil"
)

func TestTxRunner_CommitsChunkSwapAndStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	runner := NewTxRunner(pool)

	doc := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-1")

	newChunks := []domain.Chunk{{
		ID:         uuid.NewString(),
		TenantID:   "tenant-1",
		ScanID:     "scan-1",
		DocumentID: doc.ID,
		Text:       "committed chunk",
		Embedding:  testEmbedding(0.7),
	}}

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Chunks().ReplaceDocumentChunks(ctx, doc.ID, "tenant-1", newChunks); err != nil {
			return err
		}
		return repos.Documents().UpdateStatus(ctx, doc.ID, "tenant-1", domain.DocumentStatusIngested)
	})
	require.NoError(t, err)

	chunks, err := chunkRepo.ListByScan(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "committed chunk", chunks[0].Text)

	retrieved, err := docRepo.GetByID(ctx, doc.ID, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusIngested, retrieved.Status)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	runner := NewTxRunner(pool)

	doc := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-1")

	boom := errors.New("ingestion blew up")
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Chunks().ReplaceDocumentChunks(ctx, doc.ID, "tenant-1", []domain.Chunk{{
			ID:         uuid.NewString(),
			TenantID:   "tenant-1",
			ScanID:     "scan-1",
			DocumentID: doc.ID,
			Text:       "never visible",
			Embedding:  testEmbedding(0.8),
		}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	chunks, err := chunkRepo.ListByScan(ctx, "scan-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	retrieved, err := docRepo.GetByID(ctx, doc.ID, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusUploaded, retrieved.Status)
}
