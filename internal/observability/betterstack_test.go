package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rosterlab/perfect-roster/internal/config"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
)

// ingestRecorder stands in for the Better Stack endpoint and counts what
// the shipper delivers.
type ingestRecorder struct {
	mu       sync.Mutex
	requests int
	lastAuth string
}

func (rec *ingestRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.requests++
		rec.lastAuth = r.Header.Get("Authorization")
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

func (rec *ingestRecorder) snapshot() (int, string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.requests, rec.lastAuth
}

func newShippingLogger(t *testing.T, endpoint string) (*logging.Logger, func(context.Context) error) {
	t.Helper()

	cfg := config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: endpoint,
		BetterStackToken:    "secret-token",
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		ServiceName:         "perfect-roster-api",
		AppEnv:              config.EnvDev,
	}
	logger, shutdown, err := InitBetterStackLogger(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}
	return logger, shutdown
}

func drainShipper(t *testing.T, shutdown func(context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}
}

func TestInitBetterStackLogger_ShipsErrorsWithAuth(t *testing.T) {
	t.Parallel()

	rec := &ingestRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	logger, shutdown := newShippingLogger(t, server.URL)
	logger.ErrorContext(context.Background(), "backend error", "component", "httpapi")
	drainShipper(t, shutdown)

	requests, auth := rec.snapshot()
	if requests == 0 {
		t.Fatalf("expected the ingest endpoint to receive at least 1 request")
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
}

func TestInitBetterStackLogger_FiltersBelowMinLevel(t *testing.T) {
	t.Parallel()

	rec := &ingestRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	logger, shutdown := newShippingLogger(t, server.URL)
	logger.InfoContext(context.Background(), "info log should not be shipped")
	drainShipper(t, shutdown)

	if requests, _ := rec.snapshot(); requests != 0 {
		t.Fatalf("expected no request for info log, got %d", requests)
	}
}

func TestInitBetterStackLogger_DisabledReturnsBase(t *testing.T) {
	t.Parallel()

	base := logging.NewNop()
	logger, shutdown, err := InitBetterStackLogger(config.Config{BetterStackEnabled: false}, base)
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}
	if logger != base {
		t.Fatalf("expected the base logger back when betterstack is disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
