package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rosterlab/perfect-roster/internal/usecase"
)

func (h *Handler) GetMyScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyScore")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	score, err := h.scoringService.UserScore(ctx, challengeID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get user score failed", "challenge_id", challengeID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupScoreToDTO(ctx, score))
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	// Anonymous viewers get the board without a position label.
	targetUserID := ""
	if principal, ok := principalFromContext(ctx); ok {
		targetUserID = principal.UserID
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	board, err := h.viewsService.Leaderboard(ctx, challengeID, targetUserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get leaderboard failed", "challenge_id", challengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaderboardToDTO(ctx, board))
}

func (h *Handler) GetPerfectRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPerfectRoster")
	defer span.End()

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	roster, err := h.viewsService.PerfectRoster(ctx, challengeID)
	if err != nil {
		h.logger.WarnContext(ctx, "get perfect roster failed", "challenge_id", challengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, perfectRosterToDTO(ctx, challengeID, roster))
}

func (h *Handler) GetPopularRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPopularRoster")
	defer span.End()

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	roster, err := h.viewsService.PopularRoster(ctx, challengeID)
	if err != nil {
		h.logger.WarnContext(ctx, "get popular roster failed", "challenge_id", challengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, popularRosterToDTO(ctx, challengeID, roster))
}
