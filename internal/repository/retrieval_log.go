package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vantive/scansight/internal/service"
)

// RetrievalLogRepository stores retrieval call logs for evaluation.
// Logging is best-effort; callers ignore failures here.
type RetrievalLogRepository struct {
	pool *pgxpool.Pool
}

func NewRetrievalLogRepository(pool *pgxpool.Pool) *RetrievalLogRepository {
	return &RetrievalLogRepository{pool: pool}
}

func (r *RetrievalLogRepository) CreateRetrievalLog(ctx context.Context, entry service.RetrievalLogEntry) (string, error) {
	resultsJSON, _ := json.Marshal(entry.Results)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO retrieval_logs (tenant_id, scan_id, query, top_k, result_count, results, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.TenantID,
		entry.ScanID,
		entry.Query,
		entry.TopK,
		len(entry.Results),
		resultsJSON,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
