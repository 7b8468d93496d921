package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/rosterlab/perfect-roster/internal/domain/user"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/memory"
	"github.com/rosterlab/perfect-roster/internal/platform/logging"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

const (
	testAccessToken = "token-blue"
	testJobToken    = "job-secret"
)

type stubTokenVerifier struct {
	principals map[string]user.Principal
}

func (v *stubTokenVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	principal, ok := v.principals[token]
	if !ok {
		return user.Principal{}, fmt.Errorf("%w: unknown access token", usecase.ErrUnauthorized)
	}
	return principal, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	challengeRepo := memory.NewChallengeRepository(memory.SeedChallenges())
	playerRepo := memory.NewPlayerRepository(memory.SeedPlayers())
	lineupRepo := memory.NewLineupRepository()

	logger := logging.NewNop()
	handler := NewHandler(
		usecase.NewChallengeService(challengeRepo),
		usecase.NewPlayerService(challengeRepo, playerRepo),
		usecase.NewLineupService(challengeRepo, playerRepo, lineupRepo),
		usecase.NewScoringService(challengeRepo, playerRepo, lineupRepo, logger.Slog()),
		usecase.NewDerivedViewsService(challengeRepo, playerRepo, lineupRepo, logger),
		nil,
		nil,
		logger,
	)

	verifier := &stubTokenVerifier{principals: map[string]user.Principal{
		testAccessToken: {UserID: "user-blue", DisplayName: "BluePhoenix"},
	}}

	return NewRouter(handler, verifier, logger.Slog(), false, nil, testJobToken)
}

func serveJSON(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal response body: %v (body=%q)", err, rec.Body.String())
	}
	return rec, decoded
}

func envelopeData(t *testing.T, decoded map[string]any) map[string]any {
	t.Helper()

	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in response, got %v", decoded)
	}
	return data
}

func envelopeErrorReason(t *testing.T, decoded map[string]any) string {
	t.Helper()

	errorObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response, got %v", decoded)
	}
	items, _ := errorObj["errors"].([]any)
	if len(items) == 0 {
		t.Fatalf("expected error items in response, got %v", errorObj)
	}
	first, _ := items[0].(map[string]any)
	reason, _ := first["reason"].(string)
	return reason
}

func authedRequest(method, target, payload string) *http.Request {
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testAccessToken)
	return req
}

func TestRouter_ChallengesArePublic(t *testing.T) {
	router := newTestRouter(t)

	rec, decoded := serveJSON(t, router, httptest.NewRequest(http.MethodGet, "/v1/challenges", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	items, ok := decoded["data"].([]any)
	if !ok {
		t.Fatalf("expected data array in response, got %v", decoded)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded challenges, got %d", len(items))
	}
}

func TestRouter_UnknownChallengeIsNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec, decoded := serveJSON(t, router, httptest.NewRequest(http.MethodGet, "/v1/challenges/no-such-challenge", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "notFound" {
		t.Fatalf("expected reason notFound, got %q", reason)
	}
}

func TestRouter_LineupRequiresBearerToken(t *testing.T) {
	router := newTestRouter(t)

	target := "/v1/challenges/" + memory.ChallengeIDChampionsCircuit + "/lineup"
	rec, decoded := serveJSON(t, router, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "unauthorized" {
		t.Fatalf("expected reason unauthorized, got %q", reason)
	}
}

func TestRouter_LineupEditFlow(t *testing.T) {
	router := newTestRouter(t)
	base := "/v1/challenges/" + memory.ChallengeIDChampionsCircuit + "/lineup"

	// A never-edited user still gets a lineup shaped by the challenge.
	rec, decoded := serveJSON(t, router, authedRequest(http.MethodGet, base, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	captains, _ := data["captains"].([]any)
	if len(captains) != 1 {
		t.Fatalf("expected 1 captain slot, got %d", len(captains))
	}

	rec, decoded = serveJSON(t, router, authedRequest(http.MethodPost, base+"/placements",
		`{"playerId":"emea-nightowl","category":"captain","slotIndex":0}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data = envelopeData(t, decoded)
	captains, _ = data["captains"].([]any)
	if got, _ := captains[0].(string); got != "emea-nightowl" {
		t.Fatalf("expected emea-nightowl in captain slot, got %q", got)
	}

	// Region gate: a BR player cannot take an NA slot.
	rec, decoded = serveJSON(t, router, authedRequest(http.MethodPost, base+"/placements",
		`{"playerId":"br-jaguara","category":"na","slotIndex":0}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "ineligiblePlacement" {
		t.Fatalf("expected reason ineligiblePlacement, got %q", reason)
	}

	rec, decoded = serveJSON(t, router, authedRequest(http.MethodDelete, base+"/slots/captain/0", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data = envelopeData(t, decoded)
	captains, _ = data["captains"].([]any)
	if got, _ := captains[0].(string); got != "" {
		t.Fatalf("expected cleared captain slot, got %q", got)
	}

	rec, decoded = serveJSON(t, router, authedRequest(http.MethodDelete, base+"/slots/captain/later", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "invalidInput" {
		t.Fatalf("expected reason invalidInput, got %q", reason)
	}
}

func TestRouter_LockedLineupRejectsEdits(t *testing.T) {
	router := newTestRouter(t)
	base := "/v1/challenges/" + memory.ChallengeIDChampionsCircuit + "/lineup"

	rec, _ := serveJSON(t, router, authedRequest(http.MethodPost, base+"/placements",
		`{"playerId":"emea-nightowl","category":"captain","slotIndex":0}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	rec, decoded := serveJSON(t, router, authedRequest(http.MethodPost, base+"/lock", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	if locked, _ := data["locked"].(bool); !locked {
		t.Fatalf("expected locked lineup, got %v", data["locked"])
	}

	rec, decoded = serveJSON(t, router, authedRequest(http.MethodPost, base+"/placements",
		`{"playerId":"na-quickcast","category":"na","slotIndex":0}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "lineupLocked" {
		t.Fatalf("expected reason lineupLocked, got %q", reason)
	}
}

func TestRouter_ScoreRequiresAuthAndBreaksDownPoints(t *testing.T) {
	router := newTestRouter(t)
	base := "/v1/challenges/" + memory.ChallengeIDChampionsCircuit

	rec, _ := serveJSON(t, router, httptest.NewRequest(http.MethodGet, base+"/score", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	rec, _ = serveJSON(t, router, authedRequest(http.MethodPost, base+"/lineup/placements",
		`{"playerId":"emea-nightowl","category":"captain","slotIndex":0}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	rec, decoded := serveJSON(t, router, authedRequest(http.MethodGet, base+"/score", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	// Nightowl scores 125 on cup2; the captain multiplier lifts it to 187.5.
	if total, _ := data["total"].(float64); total != 187.5 {
		t.Fatalf("expected total 187.5, got %v", data["total"])
	}
	contributions, _ := data["contributions"].([]any)
	if len(contributions) != 1 {
		t.Fatalf("expected 1 contribution, got %d", len(contributions))
	}
}

func TestRouter_LeaderboardAnonymousAndAuthorized(t *testing.T) {
	router := newTestRouter(t)
	base := "/v1/challenges/" + memory.ChallengeIDChampionsCircuit

	rec, _ := serveJSON(t, router, authedRequest(http.MethodPost, base+"/lineup/placements",
		`{"playerId":"emea-nightowl","category":"captain","slotIndex":0}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	rec, decoded := serveJSON(t, router, httptest.NewRequest(http.MethodGet, base+"/leaderboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	if count, _ := data["entryCount"].(float64); count != 1 {
		t.Fatalf("expected entryCount 1, got %v", data["entryCount"])
	}
	if _, ok := data["positionLabel"]; ok {
		t.Fatalf("anonymous leaderboard must not carry a position label, got %v", data["positionLabel"])
	}

	rec, decoded = serveJSON(t, router, authedRequest(http.MethodGet, base+"/leaderboard", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data = envelopeData(t, decoded)
	if got, _ := data["positionLabel"].(string); got != "1 of 1" {
		t.Fatalf("expected position label %q, got %v", "1 of 1", data["positionLabel"])
	}
}

func TestRouter_LeaderboardRejectsBadToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/challenges/"+memory.ChallengeIDChampionsCircuit+"/leaderboard", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	rec, decoded := serveJSON(t, router, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "unauthorized" {
		t.Fatalf("expected reason unauthorized, got %q", reason)
	}
}

func TestRouter_InternalJobTokenGuard(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := serveJSON(t, router, httptest.NewRequest(http.MethodPost, "/internal/jobs/recompute", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/recompute", nil)
	req.Header.Set("X-Internal-Job-Token", "wrong-secret")
	rec, _ = serveJSON(t, router, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/jobs/recompute", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec, decoded := serveJSON(t, router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	if count, _ := data["challenges"].(float64); count != 2 {
		t.Fatalf("expected recompute across 2 challenges, got %v", data["challenges"])
	}
}

func TestRouter_ChallengeSyncUnconfigured(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/challenge-sync", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec, decoded := serveJSON(t, router, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if reason := envelopeErrorReason(t, decoded); reason != "dependencyUnavailable" {
		t.Fatalf("expected reason dependencyUnavailable, got %q", reason)
	}
}

func TestRouter_HealthzBypassesEnvelopeGuards(t *testing.T) {
	router := newTestRouter(t)

	rec, decoded := serveJSON(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, decoded)
	if got, _ := data["status"].(string); got != "ok" {
		t.Fatalf("expected status ok, got %v", data["status"])
	}
}
