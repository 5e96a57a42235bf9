package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vantive/scansight/internal/domain"
)

// StorageClientInterface defines blob storage operations for uploaded files
type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// DocumentRepositoryInterface defines the repository interface for document CRUD
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id, tenantID string) (*domain.Document, error)
	Delete(ctx context.Context, id, tenantID string) error
}

// InitUploadInput is the input for InitUpload
type InitUploadInput struct {
	TenantID  string
	ScanID    string
	Filename  string
	MimeType  string
	SizeBytes int64
}

// InitUploadResult carries the new document ID and its presigned upload URL
type InitUploadResult struct {
	Document  *domain.Document
	UploadURL string
}

// DocumentService manages document upload, deletion, and ingestion kickoff.
// It is the thin CRUD edge around the retrieval engine; chunk data is only
// ever touched through the transactional replace path.
type DocumentService struct {
	docs    DocumentRepositoryInterface
	storage StorageClientInterface
	tx      TxRunner
	uuid    UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docs DocumentRepositoryInterface,
	storage StorageClientInterface,
	tx TxRunner,
	uuid UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		docs:    docs,
		storage: storage,
		tx:      tx,
		uuid:    uuid,
	}
}

// InitUpload registers a document and returns a presigned upload URL.
func (s *DocumentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if input.TenantID == "" {
		return nil, domain.ErrMissingPartitionKey
	}
	if input.ScanID == "" || input.Filename == "" {
		return nil, domain.ErrMissingRequiredField
	}

	doc := &domain.Document{
		ID:        s.uuid.NewID(),
		TenantID:  input.TenantID,
		ScanID:    input.ScanID,
		Filename:  input.Filename,
		MimeType:  input.MimeType,
		SizeBytes: input.SizeBytes,
		Status:    domain.DocumentStatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
	doc.StorageKey = fmt.Sprintf("scans/%s/documents/%s/%s", doc.ScanID, doc.ID, doc.Filename)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	uploadURL, err := s.storage.GenerateUploadURL(ctx, doc.StorageKey, doc.MimeType)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate upload URL", err)
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	return &InitUploadResult{Document: doc, UploadURL: uploadURL}, nil
}

// CompleteUpload enqueues the ingestion job for an uploaded document.
func (s *DocumentService) CompleteUpload(ctx context.Context, documentID, tenantID string) (*domain.IngestionJob, error) {
	doc, err := s.docs.GetByID(ctx, documentID, tenantID)
	if err != nil {
		return nil, err
	}

	job := &domain.IngestionJob{
		ID:         s.uuid.NewID(),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		Status:     domain.IngestionJobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := domain.ValidateIngestionJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid ingestion job", err)
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		return repos.IngestionJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// GetDownloadURL returns a presigned download URL for a stored document.
func (s *DocumentService) GetDownloadURL(ctx context.Context, documentID, tenantID string) (string, error) {
	doc, err := s.docs.GetByID(ctx, documentID, tenantID)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == "" {
		return "", domain.ErrDocumentNotFound
	}

	url, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate download URL", err)
	}
	return url, nil
}

// DeleteDocument removes a document, its stored blob, and all of its chunks.
// The chunk delete and the document row delete happen together so retrieval
// never serves fragments of a document that no longer exists.
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID, tenantID string) error {
	doc, err := s.docs.GetByID(ctx, documentID, tenantID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceDocumentChunks(ctx, doc.ID, doc.TenantID, nil); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, doc.ID, doc.TenantID); err != nil {
		return err
	}

	if doc.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to delete stored object", err)
		}
	}

	return nil
}
