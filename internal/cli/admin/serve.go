package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/vantive/scansight/internal/api/handlers"
	"github.com/vantive/scansight/internal/config"
	"github.com/vantive/scansight/internal/domain"
	"github.com/vantive/scansight/internal/jobs"
	"github.com/vantive/scansight/internal/openai"
	"github.com/vantive/scansight/internal/repository"
	"github.com/vantive/scansight/internal/server"
	"github.com/vantive/scansight/internal/service"
	"github.com/vantive/scansight/internal/storage"
	"github.com/vantive/scansight/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the scansight retrieval API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	logRepo := repository.NewRetrievalLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var s3Client *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var embeddingClient service.EmbeddingClient
	var queryEmbedder handlers.QueryEmbedder
	dimensions := cfg.EmbeddingDimensions
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openai.ResolveEmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		dimensions = client.Dimensions()
		embeddingClient = client
		queryEmbedder = client
	} else {
		noop := &NoOpEmbeddingClient{}
		embeddingClient = noop
		queryEmbedder = noop
		log.Println("no embedding provider configured: search and ingestion disabled")
	}

	uuidGen := &service.DefaultUUIDGenerator{}

	retrievalSvc := service.NewRetrievalService(chunkRepo, embeddingClient)
	groundingSvc := service.NewGroundingService(chunkRepo, retrievalSvc)

	var documentSvc handlers.DocumentService
	var ingestionWorker *jobs.Worker
	if s3Client != nil {
		documentSvc = service.NewDocumentService(documentRepo, s3Client, txRunner, uuidGen)

		if cfg.HasOpenAI() {
			extractor := storage.NewTextExtractor(s3Client)
			ingestionSvc := service.NewIngestionService(extractor, embeddingClient, documentRepo, txRunner, uuidGen, dimensions)
			processor := jobs.NewIngestionWorker(jobRepo, ingestionSvc)
			ingestionWorker = jobs.NewWorker(processor, 10*time.Second)
			go ingestionWorker.Start(ctx)
			log.Println("ingestion worker started")
		}
	} else {
		documentSvc = &NoOpDocumentService{}
	}

	retrievalHandler := handlers.NewRetrievalHandler(retrievalSvc, groundingSvc, queryEmbedder, logRepo)
	documentHandler := handlers.NewDocumentHandler(documentSvc, documentRepo)

	if !cfg.HasStaticTenant() {
		log.Println("warning: no API token configured; all authenticated routes will reject requests")
	}
	authValidator := service.NewStaticTokenValidator(cfg.APIToken, cfg.TenantID)

	routerCfg := server.RouterConfig{
		AuthValidator:    authValidator,
		RetrievalHandler: retrievalHandler,
		DocumentHandler:  documentHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestionWorker != nil {
		ingestionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpEmbeddingClient rejects embedding requests when no provider is configured.
type NoOpEmbeddingClient struct{}

func (c *NoOpEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

// NoOpDocumentService rejects document operations when object storage is not configured.
type NoOpDocumentService struct{}

func (s *NoOpDocumentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) CompleteUpload(ctx context.Context, documentID, tenantID string) (*domain.IngestionJob, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) GetDownloadURL(ctx context.Context, documentID, tenantID string) (string, error) {
	return "", fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) DeleteDocument(ctx context.Context, documentID, tenantID string) error {
	return fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
