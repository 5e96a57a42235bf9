package service

import (
	"context"

	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/telemetry"
)

// ScopedRetriever is the degraded path of the grounding strategy: per-query
// retrieval straight from the store.
type ScopedRetriever interface {
	SearchSimilar(ctx context.Context, scanID string, queryEmbedding []float32, limit int) ([]RetrievedChunk, error)
}

// GroundingResult holds the ranked chunks for one query. Err is set when the
// query could not be answered by either tier; it is terminal for that query
// only, never for the batch.
type GroundingResult struct {
	Chunks []RetrievedChunk
	Err    error
}

// GroundingService answers many queries against one scan's corpus. The
// preferred tier fetches the corpus once and ranks it in memory per query,
// saving one store round-trip per query. When the bulk fetch fails with a
// store failure, or returns nothing, each query transparently degrades to
// scoped retrieval — a slower but independent path.
type GroundingService struct {
	chunks    ChunkStore
	retrieval ScopedRetriever
}

// NewGroundingService creates a new GroundingService instance
func NewGroundingService(chunks ChunkStore, retrieval ScopedRetriever) *GroundingService {
	return &GroundingService{
		chunks:    chunks,
		retrieval: retrieval,
	}
}

// FetchCorpus returns every chunk for the scan in one pass, with no
// similarity filtering. An empty scan yields an empty slice.
func (s *GroundingService) FetchCorpus(ctx context.Context, scanID string) ([]*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "GroundingService.FetchCorpus", telemetry.SpanAttributes{
		ScanID:    scanID,
		Operation: "corpus_fetch",
	})
	defer span.End()

	corpus, err := s.chunks.ListByScan(ctx, scanID)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "bulk corpus fetch failed", err)
	}
	return corpus, nil
}

// GroundQueries returns the top limit chunks for each query embedding, in
// query order. Results are per query: one query failing on the degraded
// path does not fail its siblings.
func (s *GroundingService) GroundQueries(ctx context.Context, scanID string, queryEmbeddings [][]float32, limit int) []GroundingResult {
	if limit <= 0 {
		limit = DefaultTopK
	}

	results := make([]GroundingResult, len(queryEmbeddings))

	corpus, err := s.FetchCorpus(ctx, scanID)
	if err == nil && len(corpus) > 0 {
		for i, q := range queryEmbeddings {
			results[i] = GroundingResult{Chunks: RankChunks(corpus, q, limit)}
		}
		return results
	}

	// Only store failures are recoverable by the degraded path; a cancelled
	// context aborts the batch outright.
	if err != nil && (ctx.Err() != nil || !domain.IsStoreFailure(err)) {
		for i := range results {
			results[i] = GroundingResult{Err: err}
		}
		return results
	}

	for i, q := range queryEmbeddings {
		chunks, qerr := s.retrieval.SearchSimilar(ctx, scanID, q, limit)
		results[i] = GroundingResult{Chunks: chunks, Err: qerr}
	}
	return results
}
