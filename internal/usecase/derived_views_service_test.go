package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/memory"
)

func newDerivedViewsServiceForTest() (*DerivedViewsService, *memory.LineupRepository) {
	challengeRepo := memory.NewChallengeRepository(memory.SeedChallenges())
	playerRepo := memory.NewPlayerRepository(memory.SeedPlayers())
	lineupRepo := memory.NewLineupRepository()

	svc := NewDerivedViewsService(challengeRepo, playerRepo, lineupRepo, nil)
	svc.now = func() time.Time {
		return time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc, lineupRepo
}

func TestNewSnapshot_RejectsMisconfiguredChallenge(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	item.CurrentCup = "cup9"

	_, err := NewSnapshot(item, memory.SeedPlayers(), nil)
	if !errors.Is(err, challenge.ErrUnknownCup) {
		t.Fatalf("expected ErrUnknownCup, got %v", err)
	}
}

func TestRecompute_BuildsAllViews(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	entries := []lineup.Lineup{
		{UserID: "u1", UserName: "Talon", Captains: []string{"emea-nightowl"}, NASlots: []string{"na-quickcast", ""}, BRLatamSlots: []string{"", ""}, FlexSlots: []string{"", ""}},
		{UserID: "u2", UserName: "Vapor", Captains: []string{"na-overdrive"}, NASlots: []string{"", ""}, BRLatamSlots: []string{"", ""}, FlexSlots: []string{"", ""}},
	}

	snap, err := NewSnapshot(item, memory.SeedPlayers(), entries)
	if err != nil {
		t.Fatalf("new snapshot failed: %v", err)
	}

	views := Recompute(snap)

	if views.ChallengeID != item.ID || views.EntryCount != 2 {
		t.Fatalf("unexpected view header: %+v", views)
	}
	if !views.ComputedAt.IsZero() {
		t.Fatalf("pure recompute must not stamp a time: %v", views.ComputedAt)
	}
	if len(views.Standings) != 2 || views.Standings[0].UserID != "u1" || views.Standings[0].Rank != 1 {
		t.Fatalf("unexpected standings: %+v", views.Standings)
	}
	// 187.5 + 110
	if views.Standings[0].Score != 297.5 {
		t.Fatalf("unexpected leader score: %v", views.Standings[0].Score)
	}
	if views.Perfect.TotalScore != 772.0 {
		t.Fatalf("unexpected perfect total: %v", views.Perfect.TotalScore)
	}
	if views.Popular.EntryCount != 2 {
		t.Fatalf("unexpected popular entry count: %d", views.Popular.EntryCount)
	}
}

func TestRecompute_SameSnapshotSameViews(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	entries := []lineup.Lineup{
		{UserID: "u1", Captains: []string{"kr-dawnbreak"}, NASlots: []string{"na-frostbyte", ""}, BRLatamSlots: []string{"br-jaguara", ""}, FlexSlots: []string{"", ""}},
	}

	snap, err := NewSnapshot(item, memory.SeedPlayers(), entries)
	if err != nil {
		t.Fatalf("new snapshot failed: %v", err)
	}

	first := Recompute(snap)
	second := Recompute(snap)

	if first.Standings[0] != second.Standings[0] {
		t.Fatalf("recompute is not deterministic: %+v vs %+v", first.Standings, second.Standings)
	}
	if first.Perfect.TotalScore != second.Perfect.TotalScore {
		t.Fatalf("perfect roster drifted between recomputes")
	}
}

func TestScoreSnapshotEntries_ParallelMatchesSequential(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	players := memory.SeedPlayers()
	pool := playersByID(players)

	captains := []string{"emea-nightowl", "kr-dawnbreak", "na-quickcast", "na-overdrive", "br-jaguara", ""}
	entries := make([]lineup.Lineup, 0, derivedParallelThreshold+16)
	for idx := 0; idx < derivedParallelThreshold+16; idx++ {
		entries = append(entries, lineup.Lineup{
			UserID:       fmt.Sprintf("u%03d", idx),
			Captains:     []string{captains[idx%len(captains)]},
			NASlots:      []string{"na-frostbyte", ""},
			BRLatamSlots: []string{"", ""},
			FlexSlots:    []string{"", ""},
		})
	}

	snap, err := NewSnapshot(item, players, entries)
	if err != nil {
		t.Fatalf("new snapshot failed: %v", err)
	}

	got := scoreSnapshotEntries(snap, pool)
	if len(got) != len(entries) {
		t.Fatalf("unexpected score count: got=%d want=%d", len(got), len(entries))
	}
	for idx, entry := range entries {
		want := scoreLineup(entry, pool, item.Type, item.CurrentCup).Total
		if got[idx] != want {
			t.Fatalf("parallel score differs at %d: got=%v want=%v", idx, got[idx], want)
		}
	}
}

func TestDerivedViewsService_Leaderboard_TieRanksAndLabel(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	// u1 and u2 field the same roster and must tie at rank 1.
	for _, userID := range []string{"u1", "u2"} {
		seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, userID, "gamer "+userID,
			[]string{"emea-nightowl"},
			[]string{"na-quickcast", ""},
			[]string{"", ""},
			[]string{"", ""},
		)
	}
	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u3", "gamer u3",
		[]string{"na-overdrive"},
		[]string{"", ""},
		[]string{"", ""},
		[]string{"", ""},
	)

	board, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "u3")
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}

	if board.EntryCount != 3 {
		t.Fatalf("unexpected entry count: %d", board.EntryCount)
	}
	wantRanks := []int{1, 1, 3}
	for idx, standing := range board.Standings {
		if standing.Rank != wantRanks[idx] {
			t.Fatalf("unexpected rank at %d: %+v", idx, board.Standings)
		}
	}
	if board.Standings[0].UserID != "u1" || board.Standings[1].UserID != "u2" {
		t.Fatalf("tie block lost first-write order: %+v", board.Standings)
	}
	if board.PositionLabel != "3 of 3" {
		t.Fatalf("unexpected position label: %q", board.PositionLabel)
	}

	// A caller without an entry gets standings but no label.
	board, err = svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "spectator")
	if err != nil {
		t.Fatalf("leaderboard for spectator failed: %v", err)
	}
	if board.PositionLabel != "" {
		t.Fatalf("spectator must have no position label: %q", board.PositionLabel)
	}
}

func TestDerivedViewsService_ServesCachedViewsInsideEnsureInterval(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u1", "Talon",
		[]string{"emea-nightowl"}, []string{"", ""}, []string{"", ""}, []string{"", ""})

	first, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "")
	if err != nil {
		t.Fatalf("first leaderboard failed: %v", err)
	}
	if first.EntryCount != 1 {
		t.Fatalf("unexpected first entry count: %d", first.EntryCount)
	}

	// A new entry lands but the clock has not moved past the ensure window.
	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u2", "Vapor",
		[]string{"kr-dawnbreak"}, []string{"", ""}, []string{"", ""}, []string{"", ""})

	cached, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "")
	if err != nil {
		t.Fatalf("cached leaderboard failed: %v", err)
	}
	if cached.EntryCount != 1 {
		t.Fatalf("expected cached views inside ensure interval, got count=%d", cached.EntryCount)
	}

	if err := svc.EnsureChallengeUpToDate(ctx, memory.ChallengeIDChampionsCircuit, true); err != nil {
		t.Fatalf("forced ensure failed: %v", err)
	}
	fresh, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "")
	if err != nil {
		t.Fatalf("fresh leaderboard failed: %v", err)
	}
	if fresh.EntryCount != 2 {
		t.Fatalf("forced ensure did not refresh views: count=%d", fresh.EntryCount)
	}
}

func TestDerivedViewsService_InvalidateForcesNextReadToRecompute(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	if _, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, ""); err != nil {
		t.Fatalf("warmup leaderboard failed: %v", err)
	}

	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u1", "Talon",
		[]string{"emea-nightowl"}, []string{"", ""}, []string{"", ""}, []string{"", ""})
	svc.InvalidateChallenge(ctx, memory.ChallengeIDChampionsCircuit)

	board, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "")
	if err != nil {
		t.Fatalf("leaderboard after invalidate failed: %v", err)
	}
	if board.EntryCount != 1 {
		t.Fatalf("invalidate did not drop cached views: count=%d", board.EntryCount)
	}
}

func TestDerivedViewsService_PerfectAndPopularRosters(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u1", "Talon",
		[]string{"emea-nightowl"},
		[]string{"na-quickcast", "na-frostbyte"},
		[]string{"br-jaguara", "latam-azteca"},
		[]string{"kr-dawnbreak", "las-cordillera"},
	)

	perfect, err := svc.PerfectRoster(ctx, memory.ChallengeIDChampionsCircuit)
	if err != nil {
		t.Fatalf("perfect roster failed: %v", err)
	}
	if perfect.TotalScore != 772.0 {
		t.Fatalf("unexpected perfect total: %v", perfect.TotalScore)
	}

	popular, err := svc.PopularRoster(ctx, memory.ChallengeIDChampionsCircuit)
	if err != nil {
		t.Fatalf("popular roster failed: %v", err)
	}
	if popular.EntryCount != 1 {
		t.Fatalf("unexpected popular entry count: %d", popular.EntryCount)
	}
	if len(popular.Captains) != 1 || popular.Captains[0].PickPct != 100 {
		t.Fatalf("unexpected popular captains: %+v", popular.Captains)
	}
}

func TestDerivedViewsService_MisconfiguredChallengeSurfacesError(t *testing.T) {
	challengeRepo := memory.NewChallengeRepository(nil)
	broken := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	broken.CurrentCup = "finals"
	if err := challengeRepo.Upsert(t.Context(), broken); err != nil {
		t.Fatalf("seed broken challenge: %v", err)
	}

	svc := NewDerivedViewsService(challengeRepo, memory.NewPlayerRepository(memory.SeedPlayers()), memory.NewLineupRepository(), nil)

	_, err := svc.Leaderboard(t.Context(), broken.ID, "")
	if !errors.Is(err, challenge.ErrUnknownCup) {
		t.Fatalf("expected ErrUnknownCup from misconfigured challenge, got %v", err)
	}
}

func TestDerivedViewsService_RecomputeAll(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u1", "Talon",
		[]string{"emea-nightowl"}, []string{"", ""}, []string{"", ""}, []string{"", ""})

	report, err := svc.RecomputeAll(ctx)
	if err != nil {
		t.Fatalf("recompute all failed: %v", err)
	}

	if report.Challenges != 2 || report.Succeeded != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("unexpected row count: %+v", report.Rows)
	}
	if report.Rows[0].ChallengeID != memory.ChallengeIDChampionsCircuit || report.Rows[1].ChallengeID != memory.ChallengeIDRegionalsGauntlet {
		t.Fatalf("rows not sorted by challenge id: %+v", report.Rows)
	}
	if report.Rows[0].EntryCount != 1 {
		t.Fatalf("unexpected entry count in row: %+v", report.Rows[0])
	}
}

type stubEntryFeed struct {
	changes chan EntryChange
	err     error
}

func (f stubEntryFeed) Changes(context.Context) (<-chan EntryChange, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.changes, nil
}

func TestDerivedViewsService_RunEntryFeed_RefreshesOnChange(t *testing.T) {
	svc, lineupRepo := newDerivedViewsServiceForTest()
	ctx := t.Context()

	seedEntry(t, lineupRepo, memory.ChallengeIDChampionsCircuit, "u1", "Talon",
		[]string{"emea-nightowl"}, []string{"", ""}, []string{"", ""}, []string{"", ""})

	feed := stubEntryFeed{changes: make(chan EntryChange, 2)}
	feed.changes <- EntryChange{ChallengeID: memory.ChallengeIDChampionsCircuit}
	feed.changes <- EntryChange{ChallengeID: "   "}
	close(feed.changes)

	if err := svc.RunEntryFeed(ctx, feed); err != nil {
		t.Fatalf("entry feed run failed: %v", err)
	}

	// The feed refresh already cached the views; a read inside the ensure
	// window must be served from that refresh.
	board, err := svc.Leaderboard(ctx, memory.ChallengeIDChampionsCircuit, "")
	if err != nil {
		t.Fatalf("leaderboard after feed failed: %v", err)
	}
	if board.EntryCount != 1 {
		t.Fatalf("feed did not refresh views: %+v", board)
	}
}

func TestDerivedViewsService_RunEntryFeed_SubscribeError(t *testing.T) {
	svc, _ := newDerivedViewsServiceForTest()

	wantErr := fmt.Errorf("upstream unavailable")
	err := svc.RunEntryFeed(t.Context(), stubEntryFeed{err: wantErr})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected subscribe error, got %v", err)
	}
}

func TestDerivedViewsService_RunEntryFeed_StopsOnContextCancel(t *testing.T) {
	svc, _ := newDerivedViewsServiceForTest()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := svc.RunEntryFeed(ctx, stubEntryFeed{changes: make(chan EntryChange)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
