package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vantive/scansight/internal/api"
	"github.com/vantive/scansight/internal/api/middleware"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/service"
)

// RetrievalService is the scoped top-K retrieval entry point.
type RetrievalService interface {
	SearchSimilarText(ctx context.Context, scanID, query string, limit int) ([]service.RetrievedChunk, error)
}

// GroundingService serves the bulk corpus fetch and multi-query grounding.
type GroundingService interface {
	FetchCorpus(ctx context.Context, scanID string) ([]*domain.Chunk, error)
	GroundQueries(ctx context.Context, scanID string, queryEmbeddings [][]float32, limit int) []service.GroundingResult
}

// QueryEmbedder embeds query text for the grounding path.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type RetrievalHandler struct {
	retrieval RetrievalService
	grounding GroundingService
	embedder  QueryEmbedder
	logs      service.RetrievalLogRepository
}

func NewRetrievalHandler(
	retrieval RetrievalService,
	grounding GroundingService,
	embedder QueryEmbedder,
	logs service.RetrievalLogRepository,
) *RetrievalHandler {
	return &RetrievalHandler{
		retrieval: retrieval,
		grounding: grounding,
		embedder:  embedder,
		logs:      logs,
	}
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type RetrievedChunkResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type SearchResponse struct {
	ScanID  string                   `json:"scan_id"`
	Query   string                   `json:"query"`
	TopK    int                      `json:"top_k"`
	Results []RetrievedChunkResponse `json:"results"`
}

func retrievedToResponse(chunks []service.RetrievedChunk) []RetrievedChunkResponse {
	out := make([]RetrievedChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, RetrievedChunkResponse{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			Score:      c.Score,
		})
	}
	return out
}

// Search handles POST /scans/{scanID}/search
func (h *RetrievalHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scanID := chi.URLParam(r, "scanID")
	if scanID == "" {
		api.Error(w, http.StatusBadRequest, "scan ID is required")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = service.DefaultTopK
	}

	start := time.Now()
	results, err := h.retrieval.SearchSimilarText(r.Context(), scanID, req.Query, topK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.logRetrieval(r.Context(), tenantID, scanID, req.Query, topK, time.Since(start), results)

	api.Success(w, http.StatusOK, SearchResponse{
		ScanID:  scanID,
		Query:   req.Query,
		TopK:    topK,
		Results: retrievedToResponse(results),
	})
}

// logRetrieval records the call for offline evaluation. Best effort: a log
// write failure never fails the retrieval it describes.
func (h *RetrievalHandler) logRetrieval(ctx context.Context, tenantID, scanID, query string, topK int, duration time.Duration, results []service.RetrievedChunk) {
	if h.logs == nil {
		return
	}

	logged := make([]service.RetrievalLogResult, 0, len(results))
	for _, c := range results {
		logged = append(logged, service.RetrievalLogResult{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Score:      c.Score,
		})
	}

	entry := service.RetrievalLogEntry{
		TenantID:   tenantID,
		ScanID:     scanID,
		Query:      query,
		TopK:       topK,
		DurationMs: int(duration.Milliseconds()),
		Results:    logged,
	}
	if _, err := h.logs.CreateRetrievalLog(ctx, entry); err != nil {
		log.Printf("retrieval log write failed: %v", err)
	}
}

type CorpusChunkResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

type CorpusResponse struct {
	ScanID string                `json:"scan_id"`
	Count  int                   `json:"count"`
	Chunks []CorpusChunkResponse `json:"chunks"`
}

// Corpus handles GET /scans/{scanID}/chunks
func (h *RetrievalHandler) Corpus(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scanID := chi.URLParam(r, "scanID")
	if scanID == "" {
		api.Error(w, http.StatusBadRequest, "scan ID is required")
		return
	}

	corpus, err := h.grounding.FetchCorpus(r.Context(), scanID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	chunks := make([]CorpusChunkResponse, 0, len(corpus))
	for _, c := range corpus {
		chunks = append(chunks, CorpusChunkResponse{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			CreatedAt:  c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, CorpusResponse{
		ScanID: scanID,
		Count:  len(chunks),
		Chunks: chunks,
	})
}

type BriefRequest struct {
	Queries []string `json:"queries"`
	TopK    int      `json:"top_k"`
}

type BriefQueryResponse struct {
	Query   string                   `json:"query"`
	Error   string                   `json:"error,omitempty"`
	Results []RetrievedChunkResponse `json:"results"`
}

type BriefResponse struct {
	ScanID  string               `json:"scan_id"`
	TopK    int                  `json:"top_k"`
	Queries []BriefQueryResponse `json:"queries"`
}

const maxBriefQueries = 32

// Brief handles POST /scans/{scanID}/brief. It grounds a batch of analysis
// questions against the scan corpus in one pass; failures are reported per
// query so one bad question does not sink the brief.
func (h *RetrievalHandler) Brief(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scanID := chi.URLParam(r, "scanID")
	if scanID == "" {
		api.Error(w, http.StatusBadRequest, "scan ID is required")
		return
	}

	var req BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Queries) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one query is required")
		return
	}
	if len(req.Queries) > maxBriefQueries {
		api.Error(w, http.StatusBadRequest, "too many queries")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = service.DefaultTopK
	}

	responses := make([]BriefQueryResponse, len(req.Queries))
	embeddings := make([][]float32, 0, len(req.Queries))
	embedded := make([]int, 0, len(req.Queries))

	for i, q := range req.Queries {
		responses[i] = BriefQueryResponse{Query: q, Results: []RetrievedChunkResponse{}}
		if q == "" {
			responses[i].Error = "query is empty"
			continue
		}
		vec, err := h.embedder.GenerateEmbedding(r.Context(), q)
		if err != nil {
			responses[i].Error = "failed to embed query"
			continue
		}
		embeddings = append(embeddings, vec)
		embedded = append(embedded, i)
	}

	if len(embeddings) > 0 {
		grounded := h.grounding.GroundQueries(r.Context(), scanID, embeddings, topK)
		for j, result := range grounded {
			i := embedded[j]
			if result.Err != nil {
				responses[i].Error = result.Err.Error()
				continue
			}
			responses[i].Results = retrievedToResponse(result.Chunks)
		}
	}

	api.Success(w, http.StatusOK, BriefResponse{
		ScanID:  scanID,
		TopK:    topK,
		Queries: responses,
	})
}
