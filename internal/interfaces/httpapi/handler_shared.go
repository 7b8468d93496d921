package httpapi

import (
	"context"
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	"github.com/rosterlab/perfect-roster/internal/usecase"
)

type placeLineupPlayerRequest struct {
	PlayerID  string `json:"playerId" validate:"required"`
	Category  string `json:"category" validate:"required"`
	SlotIndex int    `json:"slotIndex" validate:"gte=0"`
}

type moveLineupPlayerRequest struct {
	PlayerID  string `json:"playerId" validate:"required"`
	Category  string `json:"category" validate:"required"`
	SlotIndex int    `json:"slotIndex" validate:"gte=0"`
}

type challengeSyncJobRequest struct {
	DispatchID string `json:"dispatch_id"`
}

type recomputeJobRequest struct {
	ChallengeID string `json:"challenge_id"`
	DispatchID  string `json:"dispatch_id"`
}

type slotSettingsDTO struct {
	CaptainSlots int `json:"captainSlots"`
	NASlots      int `json:"naSlots"`
	BRLatamSlots int `json:"brLatamSlots"`
	FlexSlots    int `json:"flexSlots"`
}

type challengeDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Season     string          `json:"season"`
	Type       string          `json:"type"`
	Set        int             `json:"set"`
	CurrentCup string          `json:"currentCup"`
	EndDate    string          `json:"endDate"`
	Settings   slotSettingsDTO `json:"settings"`
}

type challengeDetailDTO struct {
	Challenge        challengeDTO `json:"challenge"`
	SecondsRemaining int64        `json:"secondsRemaining"`
	Ended            bool         `json:"ended"`
}

type regionalsResultDTO struct {
	Qualified bool `json:"qualified"`
	Placement *int `json:"placement,omitempty"`
}

type playerDTO struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Region    string              `json:"region"`
	Set       int                 `json:"set"`
	Scores    map[string]float64  `json:"scores"`
	Regionals *regionalsResultDTO `json:"regionals,omitempty"`
}

type lineupDTO struct {
	ChallengeID  string   `json:"challengeId"`
	UserID       string   `json:"userId"`
	UserName     string   `json:"userName"`
	Captains     []string `json:"captains"`
	NASlots      []string `json:"naSlots"`
	BRLatamSlots []string `json:"brLatamSlots"`
	FlexSlots    []string `json:"flexSlots"`
	Locked       bool     `json:"locked"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
	CachedScore  *float64 `json:"cachedScore,omitempty"`
}

type playerContributionDTO struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Region     string  `json:"region"`
	Category   string  `json:"category"`
	IsCaptain  bool    `json:"isCaptain"`
	BasePoints float64 `json:"basePoints"`
	Points     float64 `json:"points"`
}

type lineupScoreDTO struct {
	ChallengeID   string                  `json:"challengeId"`
	UserID        string                  `json:"userId"`
	UserName      string                  `json:"userName"`
	Total         float64                 `json:"total"`
	Contributions []playerContributionDTO `json:"contributions"`
}

type standingDTO struct {
	Rank     int     `json:"rank"`
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	Score    float64 `json:"score"`
}

type leaderboardDTO struct {
	ChallengeID   string        `json:"challengeId"`
	EntryCount    int           `json:"entryCount"`
	Standings     []standingDTO `json:"standings"`
	PositionLabel string        `json:"positionLabel,omitempty"`
}

type scoredSlotPlayerDTO struct {
	PlayerID      string  `json:"playerId"`
	PlayerName    string  `json:"playerName"`
	Region        string  `json:"region"`
	BasePoints    float64 `json:"basePoints"`
	CountedPoints float64 `json:"countedPoints"`
}

type perfectRosterDTO struct {
	ChallengeID    string                `json:"challengeId"`
	Captains       []scoredSlotPlayerDTO `json:"captains"`
	NAPlayers      []scoredSlotPlayerDTO `json:"naPlayers"`
	BRLatamPlayers []scoredSlotPlayerDTO `json:"brLatamPlayers"`
	FlexPlayers    []scoredSlotPlayerDTO `json:"flexPlayers"`
	TotalScore     float64               `json:"totalScore"`
}

type popularSlotPlayerDTO struct {
	PlayerID     string  `json:"playerId"`
	PlayerName   string  `json:"playerName"`
	Region       string  `json:"region"`
	PickCount    int     `json:"pickCount"`
	CaptainCount int     `json:"captainCount"`
	PickPct      float64 `json:"pickPct"`
	CaptainPct   float64 `json:"captainPct"`
}

type popularRosterDTO struct {
	ChallengeID    string                 `json:"challengeId"`
	EntryCount     int                    `json:"entryCount"`
	Captains       []popularSlotPlayerDTO `json:"captains"`
	NAPlayers      []popularSlotPlayerDTO `json:"naPlayers"`
	BRLatamPlayers []popularSlotPlayerDTO `json:"brLatamPlayers"`
	FlexPlayers    []popularSlotPlayerDTO `json:"flexPlayers"`
}

type challengeSyncReportDTO struct {
	RunID             string `json:"runId"`
	Revision          string `json:"revision"`
	Challenges        int    `json:"challenges"`
	Players           int    `json:"players"`
	InvalidChallenges int    `json:"invalidChallenges"`
	InvalidPlayers    int    `json:"invalidPlayers"`
	FailedUpserts     int    `json:"failedUpserts"`
	DurationMs        int64  `json:"durationMs"`
}

type recomputeRowDTO struct {
	ChallengeID string `json:"challengeId"`
	EntryCount  int    `json:"entryCount"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	DurationMs  int64  `json:"durationMs"`
}

type recomputeReportDTO struct {
	Challenges int               `json:"challenges"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Rows       []recomputeRowDTO `json:"rows"`
}

type readinessComponentDTO struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type readinessDTO struct {
	Status     string                  `json:"status"`
	Components []readinessComponentDTO `json:"components,omitempty"`
}

func challengeToDTO(ctx context.Context, v challenge.Challenge) challengeDTO {
	ctx, span := startSpan(ctx, "httpapi.challengeToDTO")
	defer span.End()

	return challengeDTO{
		ID:         v.ID,
		Name:       v.Name,
		Season:     v.Season,
		Type:       string(v.Type),
		Set:        v.Set,
		CurrentCup: string(v.CurrentCup),
		EndDate:    v.EndDate.UTC().Format(time.RFC3339),
		Settings: slotSettingsDTO{
			CaptainSlots: v.Settings.CaptainSlots,
			NASlots:      v.Settings.NASlots,
			BRLatamSlots: v.Settings.BRLatamSlots,
			FlexSlots:    v.Settings.FlexSlots,
		},
	}
}

func challengeToDetailDTO(ctx context.Context, v challenge.Challenge, now time.Time) challengeDetailDTO {
	ctx, span := startSpan(ctx, "httpapi.challengeToDetailDTO")
	defer span.End()

	remaining := v.EndDate.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return challengeDetailDTO{
		Challenge:        challengeToDTO(ctx, v),
		SecondsRemaining: int64(remaining / time.Second),
		Ended:            !now.Before(v.EndDate),
	}
}

func playerToDTO(ctx context.Context, v player.Player) playerDTO {
	ctx, span := startSpan(ctx, "httpapi.playerToDTO")
	defer span.End()

	scores := make(map[string]float64, len(v.Scores))
	for cup, points := range v.Scores {
		scores[string(cup)] = points
	}

	dto := playerDTO{
		ID:     v.ID,
		Name:   v.Name,
		Region: string(v.Region),
		Set:    v.Set,
		Scores: scores,
	}
	if v.Regionals != nil {
		dto.Regionals = &regionalsResultDTO{
			Qualified: v.Regionals.Qualified,
			Placement: v.Regionals.Placement,
		}
	}
	return dto
}

func lineupToDTO(ctx context.Context, item lineup.Lineup) lineupDTO {
	ctx, span := startSpan(ctx, "httpapi.lineupToDTO")
	defer span.End()

	dto := lineupDTO{
		ChallengeID:  item.ChallengeID,
		UserID:       item.UserID,
		UserName:     item.UserName,
		Captains:     append([]string(nil), item.Captains...),
		NASlots:      append([]string(nil), item.NASlots...),
		BRLatamSlots: append([]string(nil), item.BRLatamSlots...),
		FlexSlots:    append([]string(nil), item.FlexSlots...),
		Locked:       item.Locked,
		CachedScore:  item.CachedScore,
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func lineupScoreToDTO(ctx context.Context, v usecase.LineupScore) lineupScoreDTO {
	ctx, span := startSpan(ctx, "httpapi.lineupScoreToDTO")
	defer span.End()

	contributions := make([]playerContributionDTO, 0, len(v.Contributions))
	for _, c := range v.Contributions {
		contributions = append(contributions, playerContributionDTO{
			PlayerID:   c.PlayerID,
			PlayerName: c.PlayerName,
			Region:     string(c.Region),
			Category:   string(c.Category),
			IsCaptain:  c.IsCaptain,
			BasePoints: c.BasePoints,
			Points:     c.Points,
		})
	}

	return lineupScoreDTO{
		ChallengeID:   v.ChallengeID,
		UserID:        v.UserID,
		UserName:      v.UserName,
		Total:         v.Total,
		Contributions: contributions,
	}
}

func leaderboardToDTO(ctx context.Context, v usecase.Leaderboard) leaderboardDTO {
	ctx, span := startSpan(ctx, "httpapi.leaderboardToDTO")
	defer span.End()

	standings := make([]standingDTO, 0, len(v.Standings))
	for _, s := range v.Standings {
		standings = append(standings, standingDTO{
			Rank:     s.Rank,
			UserID:   s.UserID,
			UserName: s.UserName,
			Score:    s.Score,
		})
	}

	return leaderboardDTO{
		ChallengeID:   v.ChallengeID,
		EntryCount:    v.EntryCount,
		Standings:     standings,
		PositionLabel: v.PositionLabel,
	}
}

func perfectRosterToDTO(ctx context.Context, challengeID string, v usecase.OptimalLineup) perfectRosterDTO {
	ctx, span := startSpan(ctx, "httpapi.perfectRosterToDTO")
	defer span.End()

	return perfectRosterDTO{
		ChallengeID:    challengeID,
		Captains:       scoredSlotPlayersToDTO(ctx, v.Captains),
		NAPlayers:      scoredSlotPlayersToDTO(ctx, v.NAPlayers),
		BRLatamPlayers: scoredSlotPlayersToDTO(ctx, v.BRLatamPlayers),
		FlexPlayers:    scoredSlotPlayersToDTO(ctx, v.FlexPlayers),
		TotalScore:     v.TotalScore,
	}
}

func scoredSlotPlayersToDTO(ctx context.Context, items []usecase.ScoredSlotPlayer) []scoredSlotPlayerDTO {
	ctx, span := startSpan(ctx, "httpapi.scoredSlotPlayersToDTO")
	defer span.End()

	out := make([]scoredSlotPlayerDTO, 0, len(items))
	for _, item := range items {
		out = append(out, scoredSlotPlayerDTO{
			PlayerID:      item.PlayerID,
			PlayerName:    item.PlayerName,
			Region:        string(item.Region),
			BasePoints:    item.BasePoints,
			CountedPoints: item.CountedPoints,
		})
	}
	return out
}

func popularRosterToDTO(ctx context.Context, challengeID string, v usecase.PopularLineup) popularRosterDTO {
	ctx, span := startSpan(ctx, "httpapi.popularRosterToDTO")
	defer span.End()

	return popularRosterDTO{
		ChallengeID:    challengeID,
		EntryCount:     v.EntryCount,
		Captains:       popularSlotPlayersToDTO(ctx, v.Captains),
		NAPlayers:      popularSlotPlayersToDTO(ctx, v.NAPlayers),
		BRLatamPlayers: popularSlotPlayersToDTO(ctx, v.BRLatamPlayers),
		FlexPlayers:    popularSlotPlayersToDTO(ctx, v.FlexPlayers),
	}
}

func popularSlotPlayersToDTO(ctx context.Context, items []usecase.PopularSlotPlayer) []popularSlotPlayerDTO {
	ctx, span := startSpan(ctx, "httpapi.popularSlotPlayersToDTO")
	defer span.End()

	out := make([]popularSlotPlayerDTO, 0, len(items))
	for _, item := range items {
		out = append(out, popularSlotPlayerDTO{
			PlayerID:     item.PlayerID,
			PlayerName:   item.PlayerName,
			Region:       string(item.Region),
			PickCount:    item.PickCount,
			CaptainCount: item.CaptainCount,
			PickPct:      item.PickPct,
			CaptainPct:   item.CaptainPct,
		})
	}
	return out
}

func syncReportToDTO(ctx context.Context, v usecase.ChallengeSyncReport) challengeSyncReportDTO {
	ctx, span := startSpan(ctx, "httpapi.syncReportToDTO")
	defer span.End()

	return challengeSyncReportDTO{
		RunID:             v.RunID,
		Revision:          v.Revision,
		Challenges:        v.Challenges,
		Players:           v.Players,
		InvalidChallenges: v.InvalidChallenges,
		InvalidPlayers:    v.InvalidPlayers,
		FailedUpserts:     v.FailedUpserts,
		DurationMs:        v.DurationMs,
	}
}

func recomputeReportToDTO(ctx context.Context, v usecase.RecomputeReport) recomputeReportDTO {
	ctx, span := startSpan(ctx, "httpapi.recomputeReportToDTO")
	defer span.End()

	rows := make([]recomputeRowDTO, 0, len(v.Rows))
	for _, row := range v.Rows {
		rows = append(rows, recomputeRowDTO{
			ChallengeID: row.ChallengeID,
			EntryCount:  row.EntryCount,
			Status:      row.Status,
			Message:     row.Message,
			DurationMs:  row.DurationMs,
		})
	}

	return recomputeReportDTO{
		Challenges: v.Challenges,
		Succeeded:  v.Succeeded,
		Failed:     v.Failed,
		Rows:       rows,
	}
}
