package memory

import (
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

const (
	ChallengeIDChampionsCircuit  = "set14-champions-circuit"
	ChallengeIDRegionalsGauntlet = "set14-regionals-gauntlet"

	SeedSet = 14
)

func SeedChallenges() []challenge.Challenge {
	return []challenge.Challenge{
		{
			ID:         ChallengeIDChampionsCircuit,
			Name:       "Set 14 Champions Circuit",
			Season:     "2026",
			Type:       challenge.TypeStandard,
			Set:        SeedSet,
			CurrentCup: challenge.Cup2,
			EndDate:    time.Date(2027, time.January, 15, 23, 59, 0, 0, time.UTC),
			Settings: challenge.SlotSettings{
				CaptainSlots: 1,
				NASlots:      2,
				BRLatamSlots: 2,
				FlexSlots:    2,
			},
		},
		{
			ID:         ChallengeIDRegionalsGauntlet,
			Name:       "Set 14 Regionals Gauntlet",
			Season:     "2026",
			Type:       challenge.TypeRegionals,
			Set:        SeedSet,
			CurrentCup: challenge.Cup4,
			EndDate:    time.Date(2027, time.February, 28, 23, 59, 0, 0, time.UTC),
			Settings: challenge.SlotSettings{
				CaptainSlots: 1,
				NASlots:      1,
				BRLatamSlots: 1,
				FlexSlots:    2,
			},
		},
	}
}

func SeedPlayers() []player.Player {
	placement := func(p int) *int { return &p }

	return []player.Player{
		{
			ID: "na-frostbyte", Name: "Frostbyte", Region: player.RegionNA, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup1: 120, challenge.Cup2: 84.5},
			Regionals: &player.RegionalsResult{Qualified: true, Placement: placement(3)},
		},
		{
			ID: "na-quickcast", Name: "Quickcast", Region: player.RegionNA, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup1: 95, challenge.Cup2: 110},
			Regionals: &player.RegionalsResult{Qualified: true},
		},
		{
			ID: "na-overdrive", Name: "Overdrive", Region: player.RegionNA, Set: SeedSet,
			Scores: map[challenge.CupKey]float64{challenge.Cup2: 71},
		},
		{
			ID: "br-jaguara", Name: "Jaguara", Region: player.RegionBR, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup1: 88, challenge.Cup2: 102},
			Regionals: &player.RegionalsResult{Qualified: true, Placement: placement(8)},
		},
		{
			ID: "br-tempesta", Name: "Tempesta", Region: player.RegionBR, Set: SeedSet,
			Scores: map[challenge.CupKey]float64{challenge.Cup2: 64},
		},
		{
			ID: "lan-cumbre", Name: "Cumbre", Region: player.RegionLAN, Set: SeedSet,
			Scores: map[challenge.CupKey]float64{challenge.Cup2: 59},
		},
		{
			ID: "las-cordillera", Name: "Cordillera", Region: player.RegionLAS, Set: SeedSet,
			Scores: map[challenge.CupKey]float64{challenge.Cup1: 40, challenge.Cup2: 77},
		},
		{
			ID: "latam-azteca", Name: "Azteca", Region: player.RegionLATAM, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup2: 93},
			Regionals: &player.RegionalsResult{Qualified: true, Placement: placement(14)},
		},
		{
			ID: "emea-nightowl", Name: "Nightowl", Region: player.RegionEMEA, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup1: 130, challenge.Cup2: 125},
			Regionals: &player.RegionalsResult{Qualified: true, Placement: placement(1)},
		},
		{
			ID: "kr-dawnbreak", Name: "Dawnbreak", Region: player.RegionKR, Set: SeedSet,
			Scores:    map[challenge.CupKey]float64{challenge.Cup2: 118},
			Regionals: &player.RegionalsResult{Qualified: true, Placement: placement(2)},
		},
		{
			ID: "apac-monsoon", Name: "Monsoon", Region: player.RegionAPAC, Set: SeedSet,
			Scores: map[challenge.CupKey]float64{challenge.Cup2: 42},
		},
	}
}
