// Package telemetry wires Sentry tracing into the service layer.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "scansight"

// Config controls Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init sets up the Sentry client and returns a flush function for shutdown.
// An empty DSN disables tracing entirely; initialization failure is logged
// and the service runs untraced rather than refusing to start.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	rate := cfg.TracesSampleRate
	if rate == 0 {
		rate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		EnableTracing:    true,
		TracesSampleRate: rate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: func(sc sentry.SamplingContext) float64 {
			// Health probes would dominate the trace volume
			if sc.Span.Name == "GET /health" || sc.Span.Op == "http.server GET /health" {
				return 0.0
			}
			// Children inherit the parent's decision
			var root sentry.SpanID
			if sc.Span.ParentSpanID != root {
				if sc.Span.Sampled.Bool() {
					return 1.0
				}
				return 0.0
			}
			return rate
		},
	})
	if err != nil {
		log.Printf("sentry init failed, tracing disabled: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry tracing on (env=%s rate=%.2f)", env, rate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// SpanAttributes carries the tags every retrieval-path span shares.
type SpanAttributes struct {
	TenantID   string
	ScanID     string
	DocumentID string
	Operation  string
}

// Span is a nil-safe wrapper around a sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan opens a child of the transaction already in ctx, or a fresh
// transaction when there is none (background workers, CLI paths).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.TenantID != "" {
		span.SetTag("tenant_id", attrs.TenantID)
	}
	if attrs.ScanID != "" {
		span.SetTag("scan_id", attrs.ScanID)
	}
	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}
