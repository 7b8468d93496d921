package scoring

import (
	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

// CaptainMultiplier is applied to every captain-slot score and nowhere else.
const CaptainMultiplier = 1.5

// PlacementPoints maps a final regionals placement to its point value.
// Values never increase as placement worsens. Placements outside the table
// score zero.
var PlacementPoints = map[int]float64{
	1:  200,
	2:  170,
	3:  145,
	4:  125,
	5:  110,
	6:  95,
	7:  85,
	8:  75,
	9:  65,
	10: 60,
	11: 55,
	12: 50,
	13: 45,
	14: 40,
	15: 38,
	16: 35,
	17: 30,
	18: 28,
	19: 26,
	20: 24,
	21: 22,
	22: 20,
	23: 18,
	24: 16,
	25: 14,
	26: 12,
	27: 10,
	28: 8,
	29: 6,
	30: 4,
	31: 2,
	32: 1,
}

// PointValue resolves one player's raw score under a challenge's scoring
// context. Regionals challenges score by final placement; standard
// challenges score by the current cup. Missing data yields zero, never an
// error, so leaderboards always render.
func PointValue(p player.Player, challengeType challenge.Type, cup challenge.CupKey) float64 {
	if challengeType == challenge.TypeRegionals {
		if p.Regionals == nil || p.Regionals.Placement == nil {
			return 0
		}
		return PlacementPoints[*p.Regionals.Placement]
	}
	return p.CupScore(cup)
}

// ApplyCaptainMultiplier boosts a captain slot's raw score.
func ApplyCaptainMultiplier(value float64) float64 {
	return value * CaptainMultiplier
}
