//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vantive/scansight/internal/api/handlers"
	"github.com/vantive/scansight/internal/jobs"
	"github.com/vantive/scansight/internal/repository"
	"github.com/vantive/scansight/internal/server"
	"github.com/vantive/scansight/internal/service"
	"github.com/vantive/scansight/internal/storage"
	"github.com/vantive/scansight/internal/testutil"
)

const (
	e2eAPIToken = "sst_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	e2eTenantID = "tenant-e2e"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Processor    *jobs.IngestionWorker
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create S3 client
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	// Start HTTP server
	serverURL, serverCloser, processor := startServer(t, pool, s3Client, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Processor:    processor,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	// Clean up binaries
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// ProcessJobs runs one synchronous worker poll, draining pending ingestion jobs.
func (e *E2ETestEnv) ProcessJobs() {
	if err := e.Processor.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("failed to process ingestion jobs: %v", err)
	}
}

// BuildBinaries builds the scansight and scansightd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "scansight-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "scansightd"), "./cmd/scansightd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build scansightd: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "scansight"), "./cmd/scansight")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build scansight: %v\n%s", err, out)
	}
}

// RunScansight runs the scansight CLI command in workDir with test credentials.
func (e *E2ETestEnv) RunScansight(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "scansight"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SCANSIGHT_API_TOKEN=%s", e2eAPIToken),
		fmt.Sprintf("SCANSIGHT_API_URL=%s", e.ServerURL),
		// Keep the CLI's global config out of the real user config dir
		fmt.Sprintf("XDG_CONFIG_HOME=%s", filepath.Join(e.BinaryDir, "config")),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.call(http.MethodGet, path, nil, authToken)
}

func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.call(http.MethodPost, path, body, authToken)
}

func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.call(http.MethodDelete, path, nil, authToken)
}

// call hits the API and decodes the envelope. Error statuses come back as
// errors carrying the HTTP code so tests can assert on them.
func (e *E2ETestEnv) call(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return &APIResponse{}, nil
	case resp.StatusCode >= 400:
		var envelope APIResponse
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, envelope.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var envelope APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// UploadFile PUTs content to a presigned URL, as the CLI would.
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(content))

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// DownloadFile fetches the bytes behind a presigned URL.
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *jobs.IngestionWorker) {
	// Initialize repositories
	chunkRepo := repository.NewChunkRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	logRepo := repository.NewRetrievalLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// Initialize services with a deterministic embedder so no external
	// provider is needed
	embedder := &hashingEmbedder{}
	uuidGen := &service.DefaultUUIDGenerator{}

	retrievalSvc := service.NewRetrievalService(chunkRepo, embedder)
	groundingSvc := service.NewGroundingService(chunkRepo, retrievalSvc)
	documentSvc := service.NewDocumentService(documentRepo, s3Client, txRunner, uuidGen)

	extractor := storage.NewTextExtractor(s3Client)
	ingestionSvc := service.NewIngestionService(extractor, embedder, documentRepo, txRunner, uuidGen, embeddingDim)
	processor := jobs.NewIngestionWorker(jobRepo, ingestionSvc)

	// Initialize handlers
	retrievalHandler := handlers.NewRetrievalHandler(retrievalSvc, groundingSvc, embedder, logRepo)
	documentHandler := handlers.NewDocumentHandler(documentSvc, documentRepo)

	cfg := server.RouterConfig{
		AuthValidator:    service.NewStaticTokenValidator(e2eAPIToken, e2eTenantID),
		RetrievalHandler: retrievalHandler,
		DocumentHandler:  documentHandler,
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, processor
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if resp, err := http.Get(url + "/health"); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become healthy within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

const embeddingDim = 1536

// hashingEmbedder maps text to deterministic bag-of-words vectors. Texts
// sharing words get correlated vectors, so ranking behaves like a crude but
// predictable semantic search without an external provider.
type hashingEmbedder struct{}

func (h *hashingEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(word))
		vec[hasher.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
