package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vantive/scansight/internal/domain"
)

type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockIngestionJobRepository struct {
	mock.Mock
}

func (m *MockIngestionJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.IngestionJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestionJob), args.Error(1)
}

func (m *MockIngestionJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestionJobStatus, errMsg string) error {
	return m.Called(ctx, jobID, status, errMsg).Error(0)
}

func (m *MockIngestionJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

type MockDocumentIngester struct {
	mock.Mock
}

func (m *MockDocumentIngester) IngestDocument(ctx context.Context, documentID, tenantID string) error {
	return m.Called(ctx, documentID, tenantID).Error(0)
}

// runWorker starts w on its own goroutine and returns a channel that closes
// when Start returns.
func runWorker(ctx context.Context, w *Worker) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return done
}

func pendingJob(id, tenantID, docID string, retries int) *domain.IngestionJob {
	return &domain.IngestionJob{
		ID:         id,
		TenantID:   tenantID,
		DocumentID: docID,
		Status:     domain.IngestionJobStatusPending,
		Retries:    int32(retries),
	}
}

func TestWorker_StartStop(t *testing.T) {
	proc := new(MockJobProcessor)
	called := make(chan struct{}, 1)
	proc.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	}).Return(nil)

	w := NewWorker(proc, 10*time.Millisecond)
	done := runWorker(context.Background(), w)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("worker never polled")
	}

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_ContextCancellation(t *testing.T) {
	proc := new(MockJobProcessor)
	called := make(chan struct{}, 1)
	proc.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(proc, 10*time.Millisecond)
	done := runWorker(ctx, w)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("worker never polled")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit on cancelled context")
	}
}

func TestIngestionWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.IngestionJob{}, nil)

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ingester.AssertNotCalled(t, "IngestDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionWorker_ProcessJobs_Success(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestionJob{pendingJob("job-1", "tenant-1", "doc-1", 0)}, nil)
	ingester.On("IngestDocument", mock.Anything, "doc-1", "tenant-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestionJobStatusCompleted, "").Return(nil)

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ingester.AssertExpectations(t)
}

func TestIngestionWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestionJob{pendingJob("job-1", "tenant-1", "doc-1", 0)}, nil)
	ingester.On("IngestDocument", mock.Anything, "doc-1", "tenant-1").Return(errors.New("extraction failed"))
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	// Below the retry cap the job goes back to pending with the error recorded.
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestionJobStatusPending,
		mock.MatchedBy(func(msg string) bool { return msg != "" })).Return(nil)

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ingester.AssertExpectations(t)
}

func TestIngestionWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)

	repo.On("GetPendingJobs", mock.Anything).
		Return([]*domain.IngestionJob{pendingJob("job-1", "tenant-1", "doc-1", 2)}, nil)
	ingester.On("IngestDocument", mock.Anything, "doc-1", "tenant-1").Return(errors.New("extraction failed"))
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestionJobStatusFailed,
		mock.MatchedBy(func(msg string) bool { return msg != "" })).Return(nil)

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ingester.AssertExpectations(t)
}

func TestIngestionWorker_ProcessJobs_MultipleJobs(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)

	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.IngestionJob{
		pendingJob("job-1", "tenant-1", "doc-1", 0),
		pendingJob("job-2", "tenant-2", "doc-2", 0),
	}, nil)

	ingester.On("IngestDocument", mock.Anything, "doc-1", "tenant-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.IngestionJobStatusCompleted, "").Return(nil)

	// The second job failing must not disturb the first job's outcome.
	ingester.On("IngestDocument", mock.Anything, "doc-2", "tenant-2").Return(errors.New("provider down"))
	repo.On("IncrementRetries", mock.Anything, "job-2").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-2", domain.IngestionJobStatusPending, mock.Anything).Return(nil)

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ingester.AssertExpectations(t)
}

func TestIngestionWorker_ProcessJobs_RepositoryError(t *testing.T) {
	repo := new(MockIngestionJobRepository)
	ingester := new(MockDocumentIngester)
	repo.On("GetPendingJobs", mock.Anything).Return(nil, errors.New("database error"))

	err := NewIngestionWorker(repo, ingester).ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
	repo.AssertExpectations(t)
}
