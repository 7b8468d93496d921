package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rosterlab/perfect-roster/internal/config"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shipperQueueSize      = 1024
	shipperDefaultTimeout = 3 * time.Second
	shipperDrainTimeout   = 5 * time.Second
)

// InitBetterStackLogger returns a logger that writes JSON to stdout and, when
// Better Stack is enabled, tees entries at or above the configured level to
// its ingest endpoint. The second return value drains the ship queue; call it
// on shutdown after the last log line.
func InitBetterStackLogger(cfg config.Config, baseLogger *logging.Logger) (*logging.Logger, func(context.Context) error, error) {
	if baseLogger == nil {
		baseLogger = logging.NewJSON(cfg.LogLevel)
	}

	if !cfg.BetterStackEnabled {
		baseLogger.Info("betterstack disabled", "reason", "BETTERSTACK_ENABLED=false")
		return baseLogger, noopShutdown, nil
	}

	ingestURL := betterstackIngestURL(cfg.BetterStackEndpoint)
	if ingestURL == "" {
		return nil, nil, fmt.Errorf("betterstack endpoint cannot be empty")
	}

	shipper := newBetterstackShipper(ingestURL, strings.TrimSpace(cfg.BetterStackToken), cfg.BetterStackTimeout)

	encoderCfg := logging.EncoderConfig()
	tee := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stdout), cfg.LogLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(shipper), cfg.BetterStackMinLevel),
	)
	logger := logging.FromZap(zap.New(tee, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))

	logger.Info("betterstack enabled",
		"endpoint", ingestURL,
		"min_level", cfg.BetterStackMinLevel.String(),
		"service_name", cfg.ServiceName,
		"environment", cfg.AppEnv,
	)

	flush := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, shipperDrainTimeout)
			defer cancel()
		}
		if err := shipper.Close(ctx); err != nil {
			return fmt.Errorf("drain betterstack queue: %w", err)
		}
		if err := logger.Sync(); err != nil && !isIgnorableLoggerSyncError(err) {
			return err
		}
		return nil
	}

	return logger, flush, nil
}

// betterstackIngestURL trims the configured endpoint and defaults the scheme
// to https, since the ingest hosts are usually configured bare.
func betterstackIngestURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	return value
}

// betterstackShipper forwards encoded log lines to Better Stack from a single
// background goroutine. Write never blocks the logging hot path: when the
// queue is full the entry is dropped and counted.
type betterstackShipper struct {
	endpoint string
	token    string
	client   *http.Client

	entries  chan []byte
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
}

func newBetterstackShipper(endpoint, token string, timeout time.Duration) *betterstackShipper {
	if timeout <= 0 {
		timeout = shipperDefaultTimeout
	}

	s := &betterstackShipper{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		entries:  make(chan []byte, shipperQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.pump()

	return s
}

// Write queues one encoded entry. It always reports the full length as
// written so a slow or stopped shipper can never error the zap core.
func (s *betterstackShipper) Write(p []byte) (int, error) {
	line := bytes.TrimSpace(p)
	if len(line) == 0 {
		return len(p), nil
	}

	select {
	case <-s.quit:
		return len(p), nil
	default:
	}

	// zap reuses its encode buffer after Write returns, so the entry has to
	// be copied before it crosses the channel.
	entry := make([]byte, len(line))
	copy(entry, line)

	select {
	case s.entries <- entry:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			fmt.Fprintf(os.Stderr, "betterstack queue full; dropped logs=%d\n", n)
		}
	}

	return len(p), nil
}

func (s *betterstackShipper) pump() {
	defer close(s.done)

	for {
		select {
		case entry := <-s.entries:
			s.post(entry)
		case <-s.quit:
			for {
				select {
				case entry := <-s.entries:
					s.post(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *betterstackShipper) post(entry []byte) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(entry))
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack create request failed: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack send log failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		fmt.Fprintf(os.Stderr, "betterstack send log got non-2xx status=%d\n", resp.StatusCode)
	}
}

// Close stops intake, lets the pump drain anything already queued, and waits
// for it to finish or the context to expire.
func (s *betterstackShipper) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.stopOnce.Do(func() { close(s.quit) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stdout on Linux reports EINVAL or EBADF from Sync depending on how it is
// redirected; neither means a log line was lost.
func isIgnorableLoggerSyncError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bad file descriptor") || strings.Contains(msg, "invalid argument")
}
