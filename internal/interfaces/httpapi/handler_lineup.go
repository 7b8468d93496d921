package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

func (h *Handler) GetLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLineup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	item, err := h.lineupService.Get(ctx, principal.UserID, principal.DisplayName, challengeID)
	if err != nil {
		h.logger.WarnContext(ctx, "get lineup failed", "challenge_id", challengeID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(ctx, item))
}

func (h *Handler) PlaceLineupPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlaceLineupPlayer")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	var req placeLineupPlayerRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.lineupService.Place(ctx, usecase.PlaceInput{
		UserID:      principal.UserID,
		UserName:    principal.DisplayName,
		ChallengeID: challengeID,
		Category:    req.Category,
		SlotIndex:   req.SlotIndex,
		PlayerID:    req.PlayerID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "place lineup player failed",
			"challenge_id", challengeID,
			"user_id", principal.UserID,
			"player_id", req.PlayerID,
			"category", req.Category,
			"slot_index", req.SlotIndex,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(ctx, item))
}

func (h *Handler) MoveLineupPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MoveLineupPlayer")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	var req moveLineupPlayerRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.lineupService.Move(ctx, usecase.MoveInput{
		UserID:      principal.UserID,
		UserName:    principal.DisplayName,
		ChallengeID: challengeID,
		PlayerID:    req.PlayerID,
		Category:    req.Category,
		SlotIndex:   req.SlotIndex,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "move lineup player failed",
			"challenge_id", challengeID,
			"user_id", principal.UserID,
			"player_id", req.PlayerID,
			"category", req.Category,
			"slot_index", req.SlotIndex,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(ctx, item))
}

func (h *Handler) ClearLineupSlot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearLineupSlot")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	category := strings.TrimSpace(r.PathValue("category"))
	rawIndex := strings.TrimSpace(r.PathValue("index"))
	slotIndex, err := strconv.Atoi(rawIndex)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: slot index must be an integer: %v", usecase.ErrInvalidInput, err))
		return
	}

	item, err := h.lineupService.Remove(ctx, usecase.RemoveInput{
		UserID:      principal.UserID,
		ChallengeID: challengeID,
		Category:    category,
		SlotIndex:   slotIndex,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "clear lineup slot failed",
			"challenge_id", challengeID,
			"user_id", principal.UserID,
			"category", category,
			"slot_index", slotIndex,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(ctx, item))
}

func (h *Handler) LockLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LockLineup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	challengeID := strings.TrimSpace(r.PathValue("challengeID"))
	item, err := h.lineupService.Lock(ctx, principal.UserID, principal.DisplayName, challengeID)
	if err != nil {
		h.logger.WarnContext(ctx, "lock lineup failed", "challenge_id", challengeID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(ctx, item))
}
