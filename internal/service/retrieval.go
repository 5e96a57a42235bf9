package service

import (
	"context"
	"sort"

	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/telemetry"
)

// DefaultTopK is the result count used when a caller asks for none.
const DefaultTopK = 5

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore defines the repository interface for scoped chunk reads
type ChunkStore interface {
	ListByScan(ctx context.Context, scanID string) ([]*domain.Chunk, error)
}

// RetrievedChunk is one ranked retrieval result.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64
}

// RetrievalService ranks a scan's chunks against query embeddings with an
// exact linear-scan cosine pass. Corpora are bounded per scan, so brute
// force keeps ranking exact without index machinery.
type RetrievalService struct {
	chunks    ChunkStore
	embedding EmbeddingClient
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(chunks ChunkStore, embedding EmbeddingClient) *RetrievalService {
	return &RetrievalService{
		chunks:    chunks,
		embedding: embedding,
	}
}

// SearchSimilar loads the candidate chunks for one scan, scores each against
// the query embedding, and returns the top limit results sorted by descending
// score. Ties keep store order (stable sort). A scan with no chunks returns
// an empty slice; a store failure returns an error so callers can tell "not
// ingested yet" from "broken".
func (s *RetrievalService) SearchSimilar(ctx context.Context, scanID string, queryEmbedding []float32, limit int) ([]RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.SearchSimilar", telemetry.SpanAttributes{
		ScanID:    scanID,
		Operation: "search",
	})
	defer span.End()

	if limit <= 0 {
		limit = DefaultTopK
	}

	candidates, err := s.chunks.ListByScan(ctx, scanID)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "chunk store query failed", err)
	}

	return RankChunks(candidates, queryEmbedding, limit), nil
}

// SearchSimilarText embeds the query text and delegates to SearchSimilar.
// An embedding failure means the query cannot be ranked and is surfaced.
func (s *RetrievalService) SearchSimilarText(ctx context.Context, scanID, query string, limit int) ([]RetrievedChunk, error) {
	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to embed query", err)
	}

	return s.SearchSimilar(ctx, scanID, embedding, limit)
}

// RankChunks scores candidates against the query embedding and returns the
// top limit results. It is the single ranking pass shared by scoped
// retrieval and corpus-local ranking, which keeps the two paths equivalent
// views over the same data.
func RankChunks(candidates []*domain.Chunk, queryEmbedding []float32, limit int) []RetrievedChunk {
	scored := make([]RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		scored = append(scored, RetrievedChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			Score:      domain.CosineSimilarity(queryEmbedding, c.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
