package lineup

import (
	"errors"
	"fmt"

	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

var (
	ErrIneligiblePlayer = errors.New("player not eligible for slot")
	ErrIneligibleSwap   = errors.New("displaced player not eligible for vacated slot")
	ErrLockedLineup     = errors.New("lineup is locked")
	ErrMissingReference = errors.New("player not found in pool")
	ErrSlotOccupied     = errors.New("slot already occupied")
	ErrDuplicatePlayer  = errors.New("player already placed in lineup")
	ErrSlotIndex        = errors.New("slot index out of range")
)

// editorRegions is the region gate enforced on every manual placement and
// move. Captain and flex slots take any region.
var editorRegions = map[Category]map[player.Region]struct{}{
	CategoryNA: {
		player.RegionNA: {},
	},
	CategoryBRLatam: {
		player.RegionBR:    {},
		player.RegionLAN:   {},
		player.RegionLAS:   {},
		player.RegionLATAM: {},
	},
}

// derivedRegions is the candidate pool used by the perfect-roster and
// popular-roster views. The BR/LATAM group draws from BR and LATAM only,
// narrower than the editor gate above, matching the behavior those views
// have always shipped with.
var derivedRegions = map[Category]map[player.Region]struct{}{
	CategoryNA: {
		player.RegionNA: {},
	},
	CategoryBRLatam: {
		player.RegionBR:    {},
		player.RegionLATAM: {},
	},
}

// CanOccupy reports whether a player from the given region may be placed
// into the given slot category. It gates placements and moves only; the
// browsing pool is never filtered with it.
func CanOccupy(category Category, region player.Region) bool {
	allowed, restricted := editorRegions[category]
	if !restricted {
		return true
	}
	_, ok := allowed[region]
	return ok
}

// InDerivedPool reports whether a player from the given region is a
// candidate for the given category when deriving analysis rosters.
func InDerivedPool(category Category, region player.Region) bool {
	allowed, restricted := derivedRegions[category]
	if !restricted {
		return true
	}
	_, ok := allowed[region]
	return ok
}

// Place writes a player into an open slot and returns the updated lineup.
// The input lineup is never modified.
func Place(l Lineup, category Category, index int, p player.Player) (Lineup, error) {
	if l.Locked {
		return Lineup{}, fmt.Errorf("%w: user=%s challenge=%s", ErrLockedLineup, l.UserID, l.ChallengeID)
	}
	if err := checkSlotRef(l, category, index); err != nil {
		return Lineup{}, err
	}
	if !CanOccupy(category, p.Region) {
		return Lineup{}, fmt.Errorf("%w: player=%s region=%s category=%s", ErrIneligiblePlayer, p.ID, p.Region, category)
	}
	if occupant := l.Slots(category)[index]; occupant != "" {
		return Lineup{}, fmt.Errorf("%w: category=%s index=%d occupant=%s", ErrSlotOccupied, category, index, occupant)
	}
	if ref, exists := l.Find(p.ID); exists {
		return Lineup{}, fmt.Errorf("%w: player=%s already at %s[%d]", ErrDuplicatePlayer, p.ID, ref.Category, ref.Index)
	}

	updated := l.Clone()
	updated.Slots(category)[index] = p.ID
	updated.CachedScore = nil
	return updated, nil
}

// Remove clears a slot unconditionally and returns the updated lineup.
// Clearing an already-open slot succeeds.
func Remove(l Lineup, category Category, index int) (Lineup, error) {
	if l.Locked {
		return Lineup{}, fmt.Errorf("%w: user=%s challenge=%s", ErrLockedLineup, l.UserID, l.ChallengeID)
	}
	if err := checkSlotRef(l, category, index); err != nil {
		return Lineup{}, err
	}

	updated := l.Clone()
	updated.Slots(category)[index] = ""
	updated.CachedScore = nil
	return updated, nil
}

// Move relocates a player into the target slot and returns the updated
// lineup. When the target slot holds a different player this is a swap:
// the occupant takes the moved player's vacated slot and must be eligible
// for it. A moved player with no current slot drops the occupant from the
// lineup instead. Eligibility failures leave the lineup untouched; no
// partial writes happen.
func Move(l Lineup, p player.Player, target Category, targetIndex int, pool map[string]player.Player) (Lineup, error) {
	if l.Locked {
		return Lineup{}, fmt.Errorf("%w: user=%s challenge=%s", ErrLockedLineup, l.UserID, l.ChallengeID)
	}
	if err := checkSlotRef(l, target, targetIndex); err != nil {
		return Lineup{}, err
	}
	if !CanOccupy(target, p.Region) {
		return Lineup{}, fmt.Errorf("%w: player=%s region=%s category=%s", ErrIneligiblePlayer, p.ID, p.Region, target)
	}

	occupantID := l.Slots(target)[targetIndex]
	if occupantID == p.ID {
		return l.Clone(), nil
	}

	source, hasSource := l.Find(p.ID)

	updated := l.Clone()
	updated.CachedScore = nil

	if occupantID == "" {
		updated.Slots(target)[targetIndex] = p.ID
		if hasSource {
			updated.Slots(source.Category)[source.Index] = ""
		}
		return updated, nil
	}

	if !hasSource {
		// The occupant loses its slot and is not retained anywhere.
		updated.Slots(target)[targetIndex] = p.ID
		return updated, nil
	}

	occupant, known := pool[occupantID]
	if !known {
		return Lineup{}, fmt.Errorf("%w: occupant=%s", ErrMissingReference, occupantID)
	}
	if !CanOccupy(source.Category, occupant.Region) {
		return Lineup{}, fmt.Errorf("%w: occupant=%s region=%s category=%s", ErrIneligibleSwap, occupant.ID, occupant.Region, source.Category)
	}

	updated.Slots(target)[targetIndex] = p.ID
	updated.Slots(source.Category)[source.Index] = occupantID
	return updated, nil
}

func checkSlotRef(l Lineup, category Category, index int) error {
	if _, err := ParseCategory(string(category)); err != nil {
		return err
	}
	slots := l.Slots(category)
	if index < 0 || index >= len(slots) {
		return fmt.Errorf("%w: category=%s index=%d size=%d", ErrSlotIndex, category, index, len(slots))
	}
	return nil
}
