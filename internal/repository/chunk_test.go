//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/testutil"
)

// testEmbedding builds a vector matching the schema's dimensionality with a
// distinguishable head so roundtrips can be asserted.
func testEmbedding(seed float32) []float32 {
	vec := make([]float32, 1536)
	vec[0] = seed
	vec[1] = 1 - seed
	return vec
}

func createTestDocument(ctx context.Context, t *testing.T, docRepo *DocumentRepository, tenantID, scanID string) *domain.Document {
	doc := &domain.Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ScanID:    scanID,
		Filename:  "report.txt",
		MimeType:  "text/plain",
		SizeBytes: 128,
		Status:    domain.DocumentStatusUploaded,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, docRepo.Create(ctx, doc))
	return doc
}

func TestChunkRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-1")

	c := &domain.Chunk{
		ID:         uuid.NewString(),
		TenantID:   "tenant-1",
		ScanID:     "scan-1",
		DocumentID: doc.ID,
		Text:       "quarterly revenue grew by twelve percent",
		Embedding:  testEmbedding(0.25),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	require.NoError(t, chunkRepo.Insert(ctx, c))

	retrieved, err := chunkRepo.GetByID(ctx, c.ID, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, retrieved.ID)
	assert.Equal(t, c.TenantID, retrieved.TenantID)
	assert.Equal(t, c.ScanID, retrieved.ScanID)
	assert.Equal(t, c.DocumentID, retrieved.DocumentID)
	assert.Equal(t, c.Text, retrieved.Text)
	require.Len(t, retrieved.Embedding, 1536)
	assert.InDelta(t, 0.25, retrieved.Embedding[0], 1e-6)
	assert.InDelta(t, 0.75, retrieved.Embedding[1], 1e-6)
}

func TestChunkRepository_Insert_MissingPartitionKey(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunkRepo := NewChunkRepository(pool)

	err := chunkRepo.Insert(ctx, &domain.Chunk{
		ID:        uuid.NewString(),
		ScanID:    "scan-1",
		Embedding: testEmbedding(0.5),
	})
	assert.ErrorIs(t, err, domain.ErrMissingPartitionKey)
}

func TestChunkRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunkRepo := NewChunkRepository(pool)

	_, err := chunkRepo.GetByID(ctx, uuid.NewString(), "tenant-1")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_ListByScan_ScopesToScan(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	docA := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-a")
	docB := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-b")

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, chunkRepo.Insert(ctx, &domain.Chunk{
			ID:         uuid.NewString(),
			TenantID:   "tenant-1",
			ScanID:     "scan-a",
			DocumentID: docA.ID,
			Text:       "scan a chunk",
			Embedding:  testEmbedding(float32(i) / 10),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, chunkRepo.Insert(ctx, &domain.Chunk{
		ID:         uuid.NewString(),
		TenantID:   "tenant-1",
		ScanID:     "scan-b",
		DocumentID: docB.ID,
		Text:       "scan b chunk",
		Embedding:  testEmbedding(0.9),
	}))

	chunks, err := chunkRepo.ListByScan(ctx, "scan-a")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, "scan-a", c.ScanID)
	}

	// Insertion order is preserved
	for i := 1; i < len(chunks); i++ {
		assert.False(t, chunks[i].CreatedAt.Before(chunks[i-1].CreatedAt))
	}
}

func TestChunkRepository_ListByScan_EmptyScan(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunkRepo := NewChunkRepository(pool)

	chunks, err := chunkRepo.ListByScan(ctx, "no-such-scan")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-1")

	c := &domain.Chunk{
		ID:         uuid.NewString(),
		TenantID:   "tenant-1",
		ScanID:     "scan-1",
		DocumentID: doc.ID,
		Text:       "to be deleted",
		Embedding:  testEmbedding(0.1),
	}
	require.NoError(t, chunkRepo.Insert(ctx, c))

	// Wrong tenant cannot delete it
	err := chunkRepo.DeleteByID(ctx, c.ID, "tenant-2")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)

	require.NoError(t, chunkRepo.DeleteByID(ctx, c.ID, "tenant-1"))

	_, err = chunkRepo.GetByID(ctx, c.ID, "tenant-1")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_ReplaceDocumentChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, "tenant-1", "scan-1")

	oldChunk := domain.Chunk{
		ID:         uuid.NewString(),
		TenantID:   "tenant-1",
		ScanID:     "scan-1",
		DocumentID: doc.ID,
		Text:       "stale content",
		Embedding:  testEmbedding(0.2),
	}
	require.NoError(t, chunkRepo.Insert(ctx, &oldChunk))

	newChunks := []domain.Chunk{
		{
			ID:         uuid.NewString(),
			TenantID:   "tenant-1",
			ScanID:     "scan-1",
			DocumentID: doc.ID,
			Text:       "fresh content one",
			Embedding:  testEmbedding(0.3),
		},
		{
			ID:         uuid.NewString(),
			TenantID:   "tenant-1",
			ScanID:     "scan-1",
			DocumentID: doc.ID,
			Text:       "fresh content two",
			Embedding:  testEmbedding(0.4),
		},
	}

	require.NoError(t, chunkRepo.ReplaceDocumentChunks(ctx, doc.ID, "tenant-1", newChunks))

	chunks, err := chunkRepo.ListByScan(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.NotEqual(t, oldChunk.ID, c.ID)
	}

	// Replacing with nil clears the document's chunks
	require.NoError(t, chunkRepo.ReplaceDocumentChunks(ctx, doc.ID, "tenant-1", nil))

	chunks, err = chunkRepo.ListByScan(ctx, "scan-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
