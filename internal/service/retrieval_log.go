package service

import "context"

// RetrievalLogResult is one logged result row.
type RetrievalLogResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// RetrievalLogEntry captures one retrieval call for offline evaluation.
type RetrievalLogEntry struct {
	TenantID   string
	ScanID     string
	Query      string
	TopK       int
	DurationMs int
	Results    []RetrievalLogResult
}

// RetrievalLogRepository persists retrieval logs. Implementations are
// best-effort; a logging failure must never fail the retrieval it describes.
type RetrievalLogRepository interface {
	CreateRetrievalLog(ctx context.Context, entry RetrievalLogEntry) (string, error)
}
