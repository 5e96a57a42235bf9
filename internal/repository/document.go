package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/pagination"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if d.TenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, tenant_id, scan_id, filename, mime_type, size_bytes, storage_key, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.TenantID, d.ScanID, d.Filename, nullableString(d.MimeType), d.SizeBytes, nullableString(d.StorageKey), d.Status, d.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.Document, error) {
	if tenantID == "" {
		return nil, domain.ErrMissingPartitionKey
	}

	var d domain.Document
	var mimeType, storageKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, scan_id, filename, mime_type, size_bytes, storage_key, status, created_at
		 FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&d.ID, &d.TenantID, &d.ScanID, &d.Filename, &mimeType, &d.SizeBytes, &storageKey, &d.Status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if mimeType != nil {
		d.MimeType = *mimeType
	}
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	return &d, nil
}

// ListByScanPage returns one keyset page of a scan's documents. A nil cursor
// starts from the beginning.
func (r *DocumentRepository) ListByScanPage(ctx context.Context, scanID string, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, scan_id, filename, mime_type, size_bytes, storage_key, status, created_at
			 FROM documents
			 WHERE scan_id = $1 AND (created_at, id) > ($2, $3)
			 ORDER BY created_at ASC, id ASC
			 LIMIT $4`,
			scanID, cursor.Timestamp, cursor.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, scan_id, filename, mime_type, size_bytes, storage_key, status, created_at
			 FROM documents WHERE scan_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2`,
			scanID, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var mimeType, storageKey *string
		if err := rows.Scan(&d.ID, &d.TenantID, &d.ScanID, &d.Filename, &mimeType, &d.SizeBytes, &storageKey, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		if mimeType != nil {
			d.MimeType = *mimeType
		}
		if storageKey != nil {
			d.StorageKey = *storageKey
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id, tenantID string, status domain.DocumentStatus) error {
	if tenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1 WHERE id = $2 AND tenant_id = $3`,
		status, id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id, tenantID string) error {
	if tenantID == "" {
		return domain.ErrMissingPartitionKey
	}

	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
