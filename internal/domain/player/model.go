package player

import (
	"fmt"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
)

// Region is the competitive region a player represents.
type Region string

const (
	RegionNA    Region = "NA"
	RegionBR    Region = "BR"
	RegionLAN   Region = "LAN"
	RegionLAS   Region = "LAS"
	RegionLATAM Region = "LATAM"
	RegionEMEA  Region = "EMEA"
	RegionAPAC  Region = "APAC"
	RegionKR    Region = "KR"
)

var AllRegions = map[Region]struct{}{
	RegionNA:    {},
	RegionBR:    {},
	RegionLAN:   {},
	RegionLAS:   {},
	RegionLATAM: {},
	RegionEMEA:  {},
	RegionAPAC:  {},
	RegionKR:    {},
}

// ErrUnknownRegion rejects region values outside the closed set above.
var ErrUnknownRegion = fmt.Errorf("unknown region")

// ParseRegion validates a raw region string against the closed region set.
func ParseRegion(raw string) (Region, error) {
	region := Region(raw)
	if _, ok := AllRegions[region]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, raw)
	}
	return region, nil
}

// RegionalsResult records a player's regional finals outcome. Placement is
// absent until the bracket resolves.
type RegionalsResult struct {
	Qualified bool
	Placement *int
}

// Player is a competitor in the challenge player pool. Scores holds the
// accumulated points per cup; a missing cup key means the player has not
// been scored for that cup yet and counts as zero.
type Player struct {
	ID        string
	Name      string
	Region    Region
	Set       int
	Scores    map[challenge.CupKey]float64
	Regionals *RegionalsResult
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllRegions[p.Region]; !ok {
		return fmt.Errorf("%w: %q on player %s", ErrUnknownRegion, p.Region, p.ID)
	}
	if p.Set <= 0 {
		return fmt.Errorf("player set must be greater than zero")
	}
	for cup, score := range p.Scores {
		if _, ok := challenge.AllCups[cup]; !ok {
			return fmt.Errorf("%w: %q on player %s", challenge.ErrUnknownCup, cup, p.ID)
		}
		if score < 0 {
			return fmt.Errorf("player %s has negative score for %s", p.ID, cup)
		}
	}
	if p.Regionals != nil && p.Regionals.Placement != nil && *p.Regionals.Placement <= 0 {
		return fmt.Errorf("player %s has invalid regionals placement", p.ID)
	}

	return nil
}

// CupScore returns the player's accumulated points for one cup, zero when
// the cup has not been scored.
func (p Player) CupScore(cup challenge.CupKey) float64 {
	if p.Scores == nil {
		return 0
	}
	return p.Scores[cup]
}
