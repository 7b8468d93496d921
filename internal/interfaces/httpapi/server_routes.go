package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /readyz", handler.Readyz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.HandleFunc("GET /v1/challenges", handler.ListChallenges)
	mux.HandleFunc("GET /v1/challenges/{challengeID}", handler.GetChallenge)
	mux.HandleFunc("GET /v1/challenges/{challengeID}/players", handler.ListChallengePlayers)
	mux.HandleFunc("GET /v1/challenges/{challengeID}/perfect-roster", handler.GetPerfectRoster)
	mux.HandleFunc("GET /v1/challenges/{challengeID}/popular-roster", handler.GetPopularRoster)
	// The leaderboard is public; a bearer token only adds the caller's
	// position label.
	mux.Handle("GET /v1/challenges/{challengeID}/leaderboard", OptionalAuth(verifier, http.HandlerFunc(handler.GetLeaderboard)))
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedLineupRoutes(mux, handler, verifier)
	registerAuthorizedScoreRoutes(mux, handler, verifier)
}

func registerAuthorizedLineupRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/challenges/{challengeID}/lineup", RequireAuth(verifier, http.HandlerFunc(handler.GetLineup)))
	mux.Handle("POST /v1/challenges/{challengeID}/lineup/placements", RequireAuth(verifier, http.HandlerFunc(handler.PlaceLineupPlayer)))
	mux.Handle("POST /v1/challenges/{challengeID}/lineup/moves", RequireAuth(verifier, http.HandlerFunc(handler.MoveLineupPlayer)))
	mux.Handle("DELETE /v1/challenges/{challengeID}/lineup/slots/{category}/{index}", RequireAuth(verifier, http.HandlerFunc(handler.ClearLineupSlot)))
	mux.Handle("POST /v1/challenges/{challengeID}/lineup/lock", RequireAuth(verifier, http.HandlerFunc(handler.LockLineup)))
}

func registerAuthorizedScoreRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/challenges/{challengeID}/score", RequireAuth(verifier, http.HandlerFunc(handler.GetMyScore)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /internal/jobs/challenge-sync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunChallengeSyncJob)))
	mux.Handle("POST /internal/jobs/recompute", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecomputeJob)))
}
