package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"github.com/rosterlab/perfect-roster/internal/platform/resilience"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

const (
	bundlePath  = "/v1/roster/bundle"
	changesPath = "/v1/roster/changes"

	defaultTimeout      = 20 * time.Second
	defaultPollWait     = 25 * time.Second
	pollRetryBackoff    = 5 * time.Second
	changeBufferSize    = 16
	maxResponseBodySize = 6 << 20
)

var errDocstoreTransient = crerr.New("document store transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	PollWait       time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads challenge and player documents from the document store. It
// implements usecase.ChallengeDataProvider through FetchChallengeBundle and
// usecase.EntryFeed through Changes.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	apiKey         string
	timeout        time.Duration
	pollWait       time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			MaxResponseBodySize: maxResponseBodySize,
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pollWait := cfg.PollWait
	if pollWait <= 0 {
		pollWait = defaultPollWait
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		timeout:        timeout,
		pollWait:       pollWait,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchChallengeBundle pulls the current snapshot of every challenge document
// and its player pool. Field validation happens in the sync usecase; the
// client only reshapes the wire documents.
func (c *Client) FetchChallengeBundle(ctx context.Context) (usecase.ExternalChallengeBundle, error) {
	var envelope bundleEnvelope
	if _, err := c.doJSON(ctx, fasthttp.MethodGet, bundlePath, nil, c.timeout, &envelope); err != nil {
		return usecase.ExternalChallengeBundle{}, fmt.Errorf("fetch roster bundle: %w", err)
	}

	out := usecase.ExternalChallengeBundle{
		Revision:   strings.TrimSpace(envelope.Revision),
		Challenges: make([]usecase.ExternalChallenge, 0, len(envelope.Challenges)),
		Players:    make([]usecase.ExternalPlayer, 0, len(envelope.Players)),
	}
	for _, doc := range envelope.Challenges {
		out.Challenges = append(out.Challenges, mapChallengeDocument(doc))
	}
	for _, doc := range envelope.Players {
		out.Players = append(out.Players, mapPlayerDocument(doc))
	}

	return out, nil
}

// Changes long-polls the store's change feed and forwards one EntryChange per
// touched challenge. The returned channel closes when ctx ends.
func (c *Client) Changes(ctx context.Context) (<-chan usecase.EntryChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(chan usecase.EntryChange, changeBufferSize)
	go c.runChangeFeed(ctx, out)
	return out, nil
}

// CircuitSnapshot reports the transport breaker for the readiness probe.
func (c *Client) CircuitSnapshot() resilience.CircuitSnapshot {
	return c.breaker.Snapshot()
}

func (c *Client) runChangeFeed(ctx context.Context, out chan<- usecase.EntryChange) {
	defer close(out)

	cursor := ""
	for {
		if ctx.Err() != nil {
			return
		}

		challengeIDs, next, err := c.pollChanges(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WarnContext(ctx, "entry change poll failed", "cursor", cursor, "error", err)
			timer := time.NewTimer(pollRetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		if next != "" {
			cursor = next
		}

		for _, challengeID := range challengeIDs {
			select {
			case out <- usecase.EntryChange{ChallengeID: challengeID}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pollChanges issues one long-poll round. The store holds the request until
// documents move past the cursor or the wait window lapses; a lapse answers
// 204 and the next round reuses the same cursor. An empty cursor positions
// the feed at the current revision without replaying history.
func (c *Client) pollChanges(ctx context.Context, cursor string) ([]string, string, error) {
	payload := changesRequest{Cursor: cursor, WaitMs: int(c.pollWait / time.Millisecond)}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return nil, "", fmt.Errorf("encode change poll request: %w", err)
	}

	var envelope changesEnvelope
	found, err := c.doJSON(ctx, fasthttp.MethodPost, changesPath, buf.Bytes(), c.timeout+c.pollWait, &envelope)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, cursor, nil
	}

	return envelope.ChallengeIDs, strings.TrimSpace(envelope.Cursor), nil
}

// doJSON runs one logical request through the breaker and the singleflight
// group, then decodes the payload into target. It reports found=false when
// the store answers with no content.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, wait time.Duration, target any) (bool, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "document store circuit breaker rejected request", "state", c.breaker.State())
			return false, fmt.Errorf("%w: document store is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	key := method + " " + path + " " + string(body)
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, method, fullURL, body, wait)
		if c.circuitEnabled {
			if reqErr != nil && isDocstoreCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return false, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return false, fmt.Errorf("unexpected response payload type %T", out)
	}
	if len(raw) == 0 {
		return false, nil
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode document payload: %w", err)
	}

	return true, nil
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL string, body []byte, wait time.Duration) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.attemptRequest(ctx, method, fullURL, body, wait)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errDocstoreTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else if status == fasthttp.StatusNoContent {
			return nil, nil
		} else if status >= 200 && status < 300 {
			return raw, nil
		} else if isRetryableStatus(status) {
			lastErr = fmt.Errorf("%w: store status=%d body=%s", errDocstoreTransient, status, abbreviateBody(raw))
		} else {
			return nil, fmt.Errorf("store status=%d body=%s", status, abbreviateBody(raw))
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("document store request failed")
	}
	c.logger.WarnContext(ctx, "document store request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) attemptRequest(ctx context.Context, method, fullURL string, body []byte, wait time.Duration) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(fullURL)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if len(body) > 0 {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(wait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}

	// The response buffer is reused after release; copy the body out.
	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

func mapChallengeDocument(doc challengeDocument) usecase.ExternalChallenge {
	out := usecase.ExternalChallenge{
		ID:           doc.ID,
		Name:         doc.Name,
		Season:       doc.Season,
		Type:         doc.Type,
		Set:          doc.Set,
		CurrentCup:   doc.CurrentCup,
		CaptainSlots: doc.Slots.Captain,
		NASlots:      doc.Slots.NA,
		BRLatamSlots: doc.Slots.BRLatam,
		FlexSlots:    doc.Slots.Flex,
	}
	if parsed := parseDocumentTime(doc.EndDate); parsed != nil {
		out.EndDate = *parsed
	}
	return out
}

func mapPlayerDocument(doc playerDocument) usecase.ExternalPlayer {
	out := usecase.ExternalPlayer{
		ID:        doc.ID,
		Name:      doc.Name,
		Region:    doc.Region,
		Set:       doc.Set,
		CupScores: doc.CupScores,
	}
	if doc.Regionals != nil {
		out.Regionals = &usecase.ExternalRegionalsResult{
			Qualified: doc.Regionals.Qualified,
			Placement: doc.Regionals.Placement,
		}
	}
	return out
}

func parseDocumentTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}

func isDocstoreCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errDocstoreTransient)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func sanitizeSensitiveText(value, secret string) string {
	value = strings.TrimSpace(value)
	if value == "" || secret == "" {
		return value
	}
	return strings.ReplaceAll(value, secret, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type bundleEnvelope struct {
	Revision   string              `json:"revision"`
	Challenges []challengeDocument `json:"challenges"`
	Players    []playerDocument    `json:"players"`
}

type challengeDocument struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Season     string        `json:"season"`
	Type       string        `json:"type"`
	Set        int           `json:"set"`
	CurrentCup string        `json:"current_cup"`
	EndDate    string        `json:"end_date"`
	Slots      slotsDocument `json:"slots"`
}

type slotsDocument struct {
	Captain int `json:"captain"`
	NA      int `json:"na"`
	BRLatam int `json:"br_latam"`
	Flex    int `json:"flex"`
}

type playerDocument struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Region    string             `json:"region"`
	Set       int                `json:"set"`
	CupScores map[string]float64 `json:"cup_scores"`
	Regionals *regionalsDocument `json:"regionals"`
}

type regionalsDocument struct {
	Qualified bool `json:"qualified"`
	Placement *int `json:"placement"`
}

type changesRequest struct {
	Cursor string `json:"cursor,omitempty"`
	WaitMs int    `json:"wait_ms"`
}

type changesEnvelope struct {
	Cursor       string   `json:"cursor"`
	ChallengeIDs []string `json:"challenge_ids"`
}
