package usecase

import (
	"testing"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/infrastructure/repository/memory"
)

func seedChallengeByID(t *testing.T, challengeID string) challenge.Challenge {
	t.Helper()

	for _, item := range memory.SeedChallenges() {
		if item.ID == challengeID {
			return item
		}
	}
	t.Fatalf("unknown seed challenge %s", challengeID)
	return challenge.Challenge{}
}

func optimalPlayerIDs(optimal OptimalLineup) []string {
	ids := make([]string, 0)
	for _, group := range [][]ScoredSlotPlayer{optimal.Captains, optimal.NAPlayers, optimal.BRLatamPlayers, optimal.FlexPlayers} {
		for _, slot := range group {
			ids = append(ids, slot.PlayerID)
		}
	}
	return ids
}

func TestDeriveOptimalLineup_StandardChallenge(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	players := memory.SeedPlayers()

	optimal := deriveOptimalLineup(players, item.Settings, item.Type, item.CurrentCup)

	if len(optimal.Captains) != 1 || optimal.Captains[0].PlayerID != "emea-nightowl" {
		t.Fatalf("captain slot must take the global top scorer: %+v", optimal.Captains)
	}
	if optimal.Captains[0].CountedPoints != 187.5 {
		t.Fatalf("captain counted points must carry the multiplier: %+v", optimal.Captains[0])
	}
	if optimal.TotalScore != 772.0 {
		t.Fatalf("unexpected optimal total: got=%v want=772", optimal.TotalScore)
	}

	seen := make(map[string]struct{})
	for _, id := range optimalPlayerIDs(optimal) {
		if _, dup := seen[id]; dup {
			t.Fatalf("player %s appears in two groups: %+v", id, optimal)
		}
		seen[id] = struct{}{}
	}
}

func TestDeriveOptimalLineup_BRLatamGroupUsesNarrowPool(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	players := memory.SeedPlayers()

	optimal := deriveOptimalLineup(players, item.Settings, item.Type, item.CurrentCup)

	// Cordillera (LAS) passes the editor gate for the BR/LATAM slot but the
	// derived views draw from {BR, LATAM} only.
	for _, slot := range optimal.BRLatamPlayers {
		if slot.PlayerID == "las-cordillera" || slot.Region == "LAS" || slot.Region == "LAN" {
			t.Fatalf("derived BR/LATAM group must not contain LAS/LAN players: %+v", optimal.BRLatamPlayers)
		}
	}

	inFlex := false
	for _, slot := range optimal.FlexPlayers {
		if slot.PlayerID == "las-cordillera" {
			inFlex = true
		}
	}
	if !inFlex {
		t.Fatalf("cordillera should still land in flex: %+v", optimal.FlexPlayers)
	}
}

func TestDeriveOptimalLineup_RegionalsUsesPlacementPoints(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDRegionalsGauntlet)
	players := memory.SeedPlayers()

	optimal := deriveOptimalLineup(players, item.Settings, item.Type, item.CurrentCup)

	if optimal.TotalScore != 730.0 {
		t.Fatalf("unexpected regionals optimal total: got=%v want=730", optimal.TotalScore)
	}
	// Quickcast qualified without a placement and scores zero, so it can
	// never take a slot in a regionals optimal roster.
	for _, id := range optimalPlayerIDs(optimal) {
		if id == "na-quickcast" {
			t.Fatalf("zero-point player placed in optimal roster: %+v", optimal)
		}
	}
}

func TestDeriveOptimalLineup_BeatsEveryRealEntry(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	players := memory.SeedPlayers()
	pool := playersByID(players)

	entries := []lineup.Lineup{
		{
			UserID: "u1", Captains: []string{"na-overdrive"},
			NASlots: []string{"na-quickcast", "na-frostbyte"}, BRLatamSlots: []string{"br-tempesta", "latam-azteca"},
			FlexSlots: []string{"lan-cumbre", "apac-monsoon"},
		},
		{
			UserID: "u2", Captains: []string{"emea-nightowl"},
			NASlots: []string{"na-overdrive", ""}, BRLatamSlots: []string{"br-jaguara", ""},
			FlexSlots: []string{"kr-dawnbreak", ""},
		},
	}

	optimal := deriveOptimalLineup(players, item.Settings, item.Type, item.CurrentCup)
	for _, entry := range entries {
		entryTotal := scoreLineup(entry, pool, item.Type, item.CurrentCup).Total
		if optimal.TotalScore < entryTotal {
			t.Fatalf("optimal %v scored below real entry %s with %v", optimal.TotalScore, entry.UserID, entryTotal)
		}
	}
}

func TestAggregatePopularity_CountsAndGroups(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	pool := playersByID(memory.SeedPlayers())

	entries := []lineup.Lineup{
		{
			UserID: "u1", Captains: []string{"emea-nightowl"},
			NASlots: []string{"na-quickcast", "na-frostbyte"}, BRLatamSlots: []string{"br-jaguara", "latam-azteca"},
			FlexSlots: []string{"kr-dawnbreak", "las-cordillera"},
		},
		{
			UserID: "u2", Captains: []string{"kr-dawnbreak"},
			NASlots: []string{"na-quickcast", "na-overdrive"}, BRLatamSlots: []string{"br-jaguara", "br-tempesta"},
			FlexSlots: []string{"emea-nightowl", "lan-cumbre"},
		},
		{
			UserID: "u3", Captains: []string{"emea-nightowl"},
			NASlots: []string{"na-quickcast", "na-frostbyte"}, BRLatamSlots: []string{"latam-azteca", "br-tempesta"},
			FlexSlots: []string{"kr-dawnbreak", "apac-monsoon"},
		},
	}

	popular := aggregatePopularity(entries, pool, item.Settings)

	if popular.EntryCount != 3 {
		t.Fatalf("unexpected entry count: %d", popular.EntryCount)
	}
	if len(popular.Captains) != 1 || popular.Captains[0].PlayerID != "emea-nightowl" {
		t.Fatalf("unexpected captain group: %+v", popular.Captains)
	}

	captain := popular.Captains[0]
	if captain.PickCount != 3 || captain.CaptainCount != 2 {
		t.Fatalf("unexpected captain counts: %+v", captain)
	}
	if captain.PickPct != 100 {
		t.Fatalf("unexpected captain pick pct: %v", captain.PickPct)
	}
	if want := 200.0 / 3.0; captain.CaptainPct != want {
		t.Fatalf("unexpected captain pct: got=%v want=%v", captain.CaptainPct, want)
	}

	if len(popular.NAPlayers) != 2 || popular.NAPlayers[0].PlayerID != "na-quickcast" {
		t.Fatalf("unexpected NA group: %+v", popular.NAPlayers)
	}

	seen := make(map[string]struct{})
	groups := [][]PopularSlotPlayer{popular.Captains, popular.NAPlayers, popular.BRLatamPlayers, popular.FlexPlayers}
	for _, group := range groups {
		for _, slot := range group {
			if _, dup := seen[slot.PlayerID]; dup {
				t.Fatalf("player %s appears in two popular groups", slot.PlayerID)
			}
			seen[slot.PlayerID] = struct{}{}
			if slot.PickPct > 100 || slot.CaptainPct > 100 {
				t.Fatalf("percentage above 100: %+v", slot)
			}
		}
	}
}

func TestAggregatePopularity_NoEntries(t *testing.T) {
	item := seedChallengeByID(t, memory.ChallengeIDChampionsCircuit)
	pool := playersByID(memory.SeedPlayers())

	popular := aggregatePopularity(nil, pool, item.Settings)
	if popular.EntryCount != 0 {
		t.Fatalf("expected zero entry count, got %d", popular.EntryCount)
	}
	if popular.Captains != nil || popular.NAPlayers != nil || popular.BRLatamPlayers != nil || popular.FlexPlayers != nil {
		t.Fatalf("expected zero-value groups, got %+v", popular)
	}
}
