package jobqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/rosterlab/perfect-roster/internal/platform/resilience"
)

func TestQStashPublisher_Enqueue_SendsPublishRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v2/publish/https://roster.example/internal/jobs/recompute" {
			t.Errorf("unexpected publish path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer qstash-token" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if got := r.Header.Get("Upstash-Method"); got != http.MethodPost {
			t.Errorf("unexpected upstash method: %s", got)
		}
		if got := r.Header.Get("Upstash-Retries"); got != "2" {
			t.Errorf("unexpected retries header: %s", got)
		}
		if got := r.Header.Get("Upstash-Delay"); got != "300s" {
			t.Errorf("unexpected delay header: %s", got)
		}
		if got := r.Header.Get("Upstash-Deduplication-Id"); got != "recompute-all-20260821T120000Z" {
			t.Errorf("unexpected deduplication header: %s", got)
		}
		if got := r.Header.Get("Upstash-Forward-X-Internal-Job-Token"); got != "job-secret" {
			t.Errorf("unexpected forwarded job token: %s", got)
		}

		var body map[string]string
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode publish body: %v", err)
		}
		if body["dispatch_id"] != "recompute-all-20260821T120000Z" {
			t.Errorf("unexpected dispatch id in body: %s", body["dispatch_id"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"msg_123"}`))
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://roster.example",
		Retries:          2,
		InternalJobToken: "job-secret",
		CircuitBreaker:   resilience.CircuitBreakerConfig{Enabled: false},
	})

	payload := map[string]any{"dispatch_id": "recompute-all-20260821T120000Z"}
	err := publisher.Enqueue(context.Background(), "/internal/jobs/recompute", payload, 5*time.Minute, "recompute-all-20260821T120000Z")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
}

func TestQStashPublisher_Enqueue_RequiresJobPath(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        srv.URL,
		Token:          "qstash-token",
		TargetBaseURL:  "https://roster.example",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	if err := publisher.Enqueue(context.Background(), "   ", nil, 0, ""); err == nil {
		t.Fatalf("expected error for blank job path")
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no publish calls, got %d", calls.Load())
	}
}

func TestQStashPublisher_Enqueue_RejectsNonHTTPTargetBaseURL(t *testing.T) {
	t.Parallel()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        "https://qstash.example",
		Token:          "qstash-token",
		TargetBaseURL:  "ftp://roster.example",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	err := publisher.Enqueue(context.Background(), "/internal/jobs/recompute", nil, 0, "")
	if err == nil {
		t.Fatalf("expected error for non-http target base url")
	}
	if !strings.Contains(err.Error(), "QSTASH_TARGET_BASE_URL") {
		t.Fatalf("error must name the bad setting, got %v", err)
	}
}

func TestQStashPublisher_Enqueue_ServerErrorTripsBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		Token:         "qstash-token",
		TargetBaseURL: "https://roster.example",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if err := publisher.Enqueue(context.Background(), "/internal/jobs/recompute", nil, 0, ""); err == nil {
		t.Fatalf("expected error on 500 response")
	}

	// The breaker opened on the first failure, so this attempt is rejected
	// before it reaches the wire.
	err := publisher.Enqueue(context.Background(), "/internal/jobs/recompute", nil, 0, "")
	if err == nil || !strings.Contains(err.Error(), "temporarily unavailable") {
		t.Fatalf("expected open-breaker rejection, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one wire call, got %d", calls.Load())
	}

	if snapshot := publisher.CircuitSnapshot(); snapshot.State != resilience.CircuitStateOpen {
		t.Fatalf("expected open breaker, got %s", snapshot.State)
	}
}

func TestQStashPublisher_Enqueue_ClientErrorDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		Token:         "qstash-token",
		TargetBaseURL: "https://roster.example",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 2; i++ {
		if err := publisher.Enqueue(context.Background(), "/internal/jobs/recompute", nil, 0, ""); err == nil {
			t.Fatalf("expected error on 400 response")
		}
	}

	// Permanent rejections never open the circuit; both attempts reach the wire.
	if calls.Load() != 2 {
		t.Fatalf("expected two wire calls, got %d", calls.Load())
	}
	if snapshot := publisher.CircuitSnapshot(); snapshot.State != resilience.CircuitStateClosed {
		t.Fatalf("expected closed breaker, got %s", snapshot.State)
	}
}

func TestNormalizeDelay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		delay time.Duration
		want  string
	}{
		{delay: 0, want: "0s"},
		{delay: -5 * time.Second, want: "0s"},
		{delay: 1500 * time.Millisecond, want: "2s"},
		{delay: 90 * time.Second, want: "90s"},
		{delay: 5 * time.Minute, want: "300s"},
	}

	for _, tc := range cases {
		if got := normalizeDelay(tc.delay); got != tc.want {
			t.Fatalf("normalizeDelay(%s)=%q want=%q", tc.delay, got, tc.want)
		}
	}
}
