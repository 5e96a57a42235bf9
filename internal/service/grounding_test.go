package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vantive/scansight/internal/domain"
)

// MockScopedRetriever is a mock implementation of ScopedRetriever
type MockScopedRetriever struct {
	mock.Mock
}

func (m *MockScopedRetriever) SearchSimilar(ctx context.Context, scanID string, queryEmbedding []float32, limit int) ([]RetrievedChunk, error) {
	args := m.Called(ctx, scanID, queryEmbedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RetrievedChunk), args.Error(1)
}

// TestGroundingService_FetchCorpus tests the FetchCorpus method
func TestGroundingService_FetchCorpus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns every chunk for the scan unfiltered", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		service := NewGroundingService(mockStore, nil)

		corpus := []*domain.Chunk{
			testChunk("chunk-1", "scan-1", []float32{1, 0}),
			testChunk("chunk-2", "scan-1", []float32{0, 1}),
		}
		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(corpus, nil)

		result, err := service.FetchCorpus(ctx, "scan-1")

		require.NoError(t, err)
		assert.Len(t, result, 2)
		mockStore.AssertExpectations(t)
	})

	t.Run("empty scan yields empty slice without error", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		service := NewGroundingService(mockStore, nil)

		mockStore.On("ListByScan", mock.Anything, "scan-empty").Return([]*domain.Chunk{}, nil)

		result, err := service.FetchCorpus(ctx, "scan-empty")

		require.NoError(t, err)
		assert.Empty(t, result)
		mockStore.AssertExpectations(t)
	})

	t.Run("store failure is wrapped as a store failure", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		service := NewGroundingService(mockStore, nil)

		storeErr := errors.New("timeout")
		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(nil, storeErr)

		result, err := service.FetchCorpus(ctx, "scan-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, domain.IsStoreFailure(err))
		mockStore.AssertExpectations(t)
	})
}

// TestGroundingService_GroundQueries tests the two-tier grounding strategy
func TestGroundingService_GroundQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("preferred tier fetches the corpus once and ranks per query", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		mockRetriever := new(MockScopedRetriever)
		service := NewGroundingService(mockStore, mockRetriever)

		corpus := []*domain.Chunk{
			testChunk("chunk-1", "scan-1", []float32{1, 0}),
			testChunk("chunk-2", "scan-1", []float32{0, 1}),
			testChunk("chunk-3", "scan-1", []float32{0.9, 0.1}),
		}
		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(corpus, nil).Once()

		queries := [][]float32{{1, 0}, {0, 1}}
		results := service.GroundQueries(ctx, "scan-1", queries, 2)

		require.Len(t, results, 2)

		require.NoError(t, results[0].Err)
		require.Len(t, results[0].Chunks, 2)
		assert.Equal(t, "chunk-1", results[0].Chunks[0].ChunkID)
		assert.Equal(t, "chunk-3", results[0].Chunks[1].ChunkID)

		require.NoError(t, results[1].Err)
		require.Len(t, results[1].Chunks, 2)
		assert.Equal(t, "chunk-2", results[1].Chunks[0].ChunkID)

		mockStore.AssertExpectations(t)
		mockRetriever.AssertNotCalled(t, "SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure on bulk fetch degrades every query to scoped retrieval", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		mockRetriever := new(MockScopedRetriever)
		service := NewGroundingService(mockStore, mockRetriever)

		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(nil, errors.New("connection reset")).Once()

		fallbackA := []RetrievedChunk{{ChunkID: "chunk-a", Score: 0.9}}
		fallbackB := []RetrievedChunk{{ChunkID: "chunk-b", Score: 0.8}}
		mockRetriever.On("SearchSimilar", mock.Anything, "scan-1", []float32{1, 0}, 2).Return(fallbackA, nil)
		mockRetriever.On("SearchSimilar", mock.Anything, "scan-1", []float32{0, 1}, 2).Return(fallbackB, nil)

		results := service.GroundQueries(ctx, "scan-1", [][]float32{{1, 0}, {0, 1}}, 2)

		require.Len(t, results, 2)
		require.NoError(t, results[0].Err)
		assert.Equal(t, "chunk-a", results[0].Chunks[0].ChunkID)
		require.NoError(t, results[1].Err)
		assert.Equal(t, "chunk-b", results[1].Chunks[0].ChunkID)
		mockStore.AssertExpectations(t)
		mockRetriever.AssertExpectations(t)
	})

	t.Run("empty corpus also degrades to scoped retrieval", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		mockRetriever := new(MockScopedRetriever)
		service := NewGroundingService(mockStore, mockRetriever)

		mockStore.On("ListByScan", mock.Anything, "scan-1").Return([]*domain.Chunk{}, nil).Once()
		mockRetriever.On("SearchSimilar", mock.Anything, "scan-1", []float32{1, 0}, 5).Return([]RetrievedChunk{}, nil)

		results := service.GroundQueries(ctx, "scan-1", [][]float32{{1, 0}}, 5)

		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)
		assert.Empty(t, results[0].Chunks)
		mockStore.AssertExpectations(t)
		mockRetriever.AssertExpectations(t)
	})

	t.Run("degraded path failures are terminal per query, not per batch", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		mockRetriever := new(MockScopedRetriever)
		service := NewGroundingService(mockStore, mockRetriever)

		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(nil, errors.New("primary down")).Once()

		queryErr := errors.New("still down")
		mockRetriever.On("SearchSimilar", mock.Anything, "scan-1", []float32{1, 0}, 3).Return(nil, queryErr)
		mockRetriever.On("SearchSimilar", mock.Anything, "scan-1", []float32{0, 1}, 3).Return([]RetrievedChunk{{ChunkID: "chunk-ok"}}, nil)

		results := service.GroundQueries(ctx, "scan-1", [][]float32{{1, 0}, {0, 1}}, 3)

		require.Len(t, results, 2)
		assert.ErrorIs(t, results[0].Err, queryErr)
		assert.Nil(t, results[0].Chunks)
		require.NoError(t, results[1].Err)
		assert.Equal(t, "chunk-ok", results[1].Chunks[0].ChunkID)
		mockStore.AssertExpectations(t)
		mockRetriever.AssertExpectations(t)
	})

	t.Run("cancelled context aborts the batch instead of retrying per query", func(t *testing.T) {
		mockStore := new(MockChunkStore)
		mockRetriever := new(MockScopedRetriever)
		service := NewGroundingService(mockStore, mockRetriever)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		mockStore.On("ListByScan", mock.Anything, "scan-1").Return(nil, context.Canceled).Once()

		results := service.GroundQueries(cancelled, "scan-1", [][]float32{{1, 0}, {0, 1}}, 2)

		require.Len(t, results, 2)
		assert.Error(t, results[0].Err)
		assert.Error(t, results[1].Err)
		mockRetriever.AssertNotCalled(t, "SearchSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("both tiers rank identically over the same corpus", func(t *testing.T) {
		corpus := []*domain.Chunk{
			testChunk("chunk-1", "scan-1", []float32{1, 0}),
			testChunk("chunk-2", "scan-1", []float32{0, 1}),
			testChunk("chunk-3", "scan-1", []float32{0.9, 0.1}),
			testChunk("chunk-4", "scan-1", []float32{0.5, 0.5}),
		}
		query := []float32{1, 0}

		// Preferred tier: bulk fetch then rank locally.
		bulkStore := new(MockChunkStore)
		bulkStore.On("ListByScan", mock.Anything, "scan-1").Return(corpus, nil)
		grounding := NewGroundingService(bulkStore, nil)
		bulkResults := grounding.GroundQueries(ctx, "scan-1", [][]float32{query}, 3)
		require.Len(t, bulkResults, 1)
		require.NoError(t, bulkResults[0].Err)

		// Degraded tier: scoped retrieval straight from the store.
		scopedStore := new(MockChunkStore)
		scopedStore.On("ListByScan", mock.Anything, "scan-1").Return(corpus, nil)
		retrieval := NewRetrievalService(scopedStore, nil)
		scopedResults, err := retrieval.SearchSimilar(ctx, "scan-1", query, 3)
		require.NoError(t, err)

		assert.Equal(t, scopedResults, bulkResults[0].Chunks)
	})
}
