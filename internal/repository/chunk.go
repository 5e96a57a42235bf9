package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/vantive/scansight/internal/domain"
)

// ChunkRepository persists embedded document fragments. Every write and
// point delete requires the tenant partition key; scoped reads filter by
// scan_id in the query predicate so another scan's rows never reach memory.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) Insert(ctx context.Context, c *domain.Chunk) error {
	if c.TenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO chunks (id, tenant_id, scan_id, document_id, content, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.ScanID, c.DocumentID, c.Text, pgvector.NewVector(c.Embedding), createdAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.Chunk, error) {
	if tenantID == "" {
		return nil, domain.ErrMissingPartitionKey
	}

	var c domain.Chunk
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, scan_id, document_id, content, embedding, created_at
		 FROM chunks WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.ScanID, &c.DocumentID, &c.Text, &vec, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	c.Embedding = vec.Slice()
	return &c, nil
}

// ListByScan returns every chunk belonging to one scan, in insertion order.
// An empty scan yields an empty slice, not an error.
func (r *ChunkRepository) ListByScan(ctx context.Context, scanID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, scan_id, document_id, content, embedding, created_at
		 FROM chunks WHERE scan_id = $1 ORDER BY created_at ASC, id ASC`,
		scanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) DeleteByID(ctx context.Context, id, tenantID string) error {
	if tenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// DeleteByScan removes every chunk for a scan. Used by the owning CRUD
// layer's cascade when a scan or workspace is deleted.
func (r *ChunkRepository) DeleteByScan(ctx context.Context, scanID, tenantID string) error {
	if tenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	_, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE scan_id = $1 AND tenant_id = $2`,
		scanID, tenantID,
	)
	return err
}

// ReplaceDocumentChunks deletes a document's existing chunks and inserts the
// new set. Chunks are never updated in place; re-ingestion goes through here
// so stale fragments never co-exist with refreshed ones.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, documentID, tenantID string, chunks []domain.Chunk) error {
	if tenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	_, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND tenant_id = $2`,
		documentID, tenantID,
	)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, tenant_id, scan_id, document_id, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.TenantID, c.ScanID, c.DocumentID, c.Text, pgvector.NewVector(c.Embedding), createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	results := make([]*domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ScanID, &c.DocumentID, &c.Text, &vec, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		results = append(results, &c)
	}
	return results, rows.Err()
}
