package usecase

import (
	"sort"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/lineup"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
	"github.com/rosterlab/perfect-roster/internal/domain/scoring"
)

// ScoredSlotPlayer is one player inside a derived optimal roster.
// CountedPoints carries the captain multiplier for captain-group players.
type ScoredSlotPlayer struct {
	PlayerID      string
	PlayerName    string
	Region        player.Region
	BasePoints    float64
	CountedPoints float64
}

// OptimalLineup is the highest-scoring feasible roster in hindsight, built
// by greedy slot filling. It is not any entrant's submission.
type OptimalLineup struct {
	Captains       []ScoredSlotPlayer
	NAPlayers      []ScoredSlotPlayer
	BRLatamPlayers []ScoredSlotPlayer
	FlexPlayers    []ScoredSlotPlayer
	TotalScore     float64
}

// PopularSlotPlayer is one player inside the popular roster with its pick
// rates as percentages of the challenge entry count.
type PopularSlotPlayer struct {
	PlayerID     string
	PlayerName   string
	Region       player.Region
	PickCount    int
	CaptainCount int
	PickPct      float64
	CaptainPct   float64
}

// PopularLineup groups the most-picked players by slot category. The four
// groups never share a player. A challenge with no entries yields the zero
// value.
type PopularLineup struct {
	EntryCount     int
	Captains       []PopularSlotPlayer
	NAPlayers      []PopularSlotPlayer
	BRLatamPlayers []PopularSlotPlayer
	FlexPlayers    []PopularSlotPlayer
}

// deriveOptimalLineup greedily fills slot groups from a single candidate
// list sorted by point value. Captains take the global top scorers first
// so the multiplier always lands on the highest raw scores, region groups
// draw from the derived pools, and flex absorbs the best of whatever
// remains.
func deriveOptimalLineup(players []player.Player, settings challenge.SlotSettings, challengeType challenge.Type, cup challenge.CupKey) OptimalLineup {
	type candidate struct {
		p      player.Player
		points float64
	}

	candidates := make([]candidate, 0, len(players))
	for _, p := range players {
		points := scoring.PointValue(p, challengeType, cup)
		if points <= 0 {
			continue
		}
		candidates = append(candidates, candidate{p: p, points: points})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].points != candidates[j].points {
			return candidates[i].points > candidates[j].points
		}
		return candidates[i].p.ID < candidates[j].p.ID
	})

	placed := make(map[string]struct{}, len(candidates))
	take := func(capacity int, allow func(player.Player) bool) []ScoredSlotPlayer {
		if capacity <= 0 {
			return nil
		}
		group := make([]ScoredSlotPlayer, 0, capacity)
		for _, c := range candidates {
			if len(group) == capacity {
				break
			}
			if _, used := placed[c.p.ID]; used {
				continue
			}
			if !allow(c.p) {
				continue
			}
			placed[c.p.ID] = struct{}{}
			group = append(group, ScoredSlotPlayer{
				PlayerID:      c.p.ID,
				PlayerName:    c.p.Name,
				Region:        c.p.Region,
				BasePoints:    c.points,
				CountedPoints: c.points,
			})
		}
		return group
	}

	result := OptimalLineup{}
	result.Captains = take(settings.CaptainSlots, func(player.Player) bool { return true })
	for idx := range result.Captains {
		result.Captains[idx].CountedPoints = scoring.ApplyCaptainMultiplier(result.Captains[idx].BasePoints)
	}
	result.NAPlayers = take(settings.NASlots, func(p player.Player) bool {
		return lineup.InDerivedPool(lineup.CategoryNA, p.Region)
	})
	result.BRLatamPlayers = take(settings.BRLatamSlots, func(p player.Player) bool {
		return lineup.InDerivedPool(lineup.CategoryBRLatam, p.Region)
	})
	result.FlexPlayers = take(settings.FlexSlots, func(player.Player) bool { return true })

	for _, group := range [][]ScoredSlotPlayer{result.Captains, result.NAPlayers, result.BRLatamPlayers, result.FlexPlayers} {
		for _, slot := range group {
			result.TotalScore += slot.CountedPoints
		}
	}

	return result
}

// aggregatePopularity counts slot appearances and captain appearances per
// player across every entry, then picks disjoint groups in priority order
// captain, NA, BR/LATAM, flex. Dangling ids are skipped; they cannot be
// rendered. Percentages are shares of the total entry count.
func aggregatePopularity(entries []lineup.Lineup, pool map[string]player.Player, settings challenge.SlotSettings) PopularLineup {
	if len(entries) == 0 {
		return PopularLineup{}
	}

	pickCount := make(map[string]int)
	captainCount := make(map[string]int)
	for _, entry := range entries {
		for _, category := range lineup.Categories {
			for _, playerID := range entry.Slots(category) {
				if playerID == "" {
					continue
				}
				if _, known := pool[playerID]; !known {
					continue
				}
				pickCount[playerID]++
				if category == lineup.CategoryCaptain {
					captainCount[playerID]++
				}
			}
		}
	}

	picked := make([]string, 0, len(pickCount))
	for playerID := range pickCount {
		picked = append(picked, playerID)
	}
	sort.Strings(picked)

	entryCount := len(entries)
	selected := make(map[string]struct{}, len(picked))
	take := func(capacity int, counts map[string]int, allow func(player.Player) bool) []PopularSlotPlayer {
		if capacity <= 0 {
			return nil
		}
		ranked := make([]string, 0, len(picked))
		for _, playerID := range picked {
			if counts[playerID] == 0 {
				continue
			}
			if _, used := selected[playerID]; used {
				continue
			}
			if !allow(pool[playerID]) {
				continue
			}
			ranked = append(ranked, playerID)
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			return counts[ranked[i]] > counts[ranked[j]]
		})
		if len(ranked) > capacity {
			ranked = ranked[:capacity]
		}

		group := make([]PopularSlotPlayer, 0, len(ranked))
		for _, playerID := range ranked {
			selected[playerID] = struct{}{}
			p := pool[playerID]
			group = append(group, PopularSlotPlayer{
				PlayerID:     p.ID,
				PlayerName:   p.Name,
				Region:       p.Region,
				PickCount:    pickCount[playerID],
				CaptainCount: captainCount[playerID],
				PickPct:      percentage(pickCount[playerID], entryCount),
				CaptainPct:   percentage(captainCount[playerID], entryCount),
			})
		}
		return group
	}

	result := PopularLineup{EntryCount: entryCount}
	result.Captains = take(settings.CaptainSlots, captainCount, func(player.Player) bool { return true })
	result.NAPlayers = take(settings.NASlots, pickCount, func(p player.Player) bool {
		return lineup.InDerivedPool(lineup.CategoryNA, p.Region)
	})
	result.BRLatamPlayers = take(settings.BRLatamSlots, pickCount, func(p player.Player) bool {
		return lineup.InDerivedPool(lineup.CategoryBRLatam, p.Region)
	})
	result.FlexPlayers = take(settings.FlexSlots, pickCount, func(player.Player) bool { return true })

	return result
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}
