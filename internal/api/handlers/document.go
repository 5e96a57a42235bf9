package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vantive/scansight/internal/api"
	"github.com/vantive/scansight/internal/api/middleware"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/pagination"
	"github.com/vantive/scansight/internal/service"
)

// DocumentService manages the document upload and deletion lifecycle.
type DocumentService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	CompleteUpload(ctx context.Context, documentID, tenantID string) (*domain.IngestionJob, error)
	GetDownloadURL(ctx context.Context, documentID, tenantID string) (string, error)
	DeleteDocument(ctx context.Context, documentID, tenantID string) error
}

// DocumentLister lists a scan's documents one keyset page at a time.
type DocumentLister interface {
	ListByScanPage(ctx context.Context, scanID string, cursor *pagination.Cursor, limit int) ([]*domain.Document, error)
}

const defaultListLimit = 50

type DocumentHandler struct {
	svc  DocumentService
	docs DocumentLister
}

func NewDocumentHandler(svc DocumentService, docs DocumentLister) *DocumentHandler {
	return &DocumentHandler{svc: svc, docs: docs}
}

type InitUploadRequest struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type DocumentResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ScanID    string `json:"scan_id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type InitUploadResponse struct {
	Document  *DocumentResponse `json:"document"`
	UploadURL string            `json:"upload_url"`
}

type CompleteUploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		TenantID:  d.TenantID,
		ScanID:    d.ScanID,
		Filename:  d.Filename,
		MimeType:  d.MimeType,
		SizeBytes: d.SizeBytes,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// InitUpload handles POST /scans/{scanID}/documents
func (h *DocumentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
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

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		TenantID:  tenantID,
		ScanID:    scanID,
		Filename:  req.Filename,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, InitUploadResponse{
		Document:  documentToResponse(result.Document),
		UploadURL: result.UploadURL,
	})
}

// CompleteUpload handles POST /documents/{documentID}/complete
func (h *DocumentHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document ID is required")
		return
	}

	job, err := h.svc.CompleteUpload(r.Context(), documentID, tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, CompleteUploadResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// List handles GET /scans/{scanID}/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var cursor *pagination.Cursor
	if v := r.URL.Query().Get("cursor"); v != "" {
		decoded, err := pagination.DecodeCursor(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = decoded
	}

	docs, err := h.docs.ListByScanPage(r.Context(), scanID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		responses = append(responses, documentToResponse(d))
	}

	next := pagination.CreateNextCursor(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	)

	api.Success(w, http.StatusOK, pagination.PageResult[*DocumentResponse]{
		Items:   responses,
		Cursor:  next,
		HasMore: next != "",
	})
}

// Download handles GET /documents/{documentID}/download
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document ID is required")
		return
	}

	url, err := h.svc.GetDownloadURL(r.Context(), documentID, tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

// Delete handles DELETE /documents/{documentID}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document ID is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), documentID, tenantID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
