package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/rosterlab/perfect-roster/internal/usecase"
)

func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListChallenges")
	defer span.End()

	items, err := h.challengeService.ListChallenges(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list challenges failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]challengeDTO, 0, len(items))
	for _, item := range items {
		out = append(out, challengeToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetChallenge")
	defer span.End()

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	item, err := h.challengeService.GetChallenge(ctx, challengeID)
	if err != nil {
		h.logger.WarnContext(ctx, "get challenge failed", "challenge_id", challengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, challengeToDetailDTO(ctx, item, time.Now().UTC()))
}

func (h *Handler) ListChallengePlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListChallengePlayers")
	defer span.End()

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	query := r.URL.Query()

	items, err := h.playerService.ListChallengePlayers(ctx, usecase.ListPlayersInput{
		ChallengeID: challengeID,
		Region:      strings.TrimSpace(query.Get("region")),
		Search:      strings.TrimSpace(query.Get("search")),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list challenge players failed", "challenge_id", challengeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]playerDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}
