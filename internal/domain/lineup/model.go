package lineup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
)

var ErrUnknownCategory = errors.New("unknown slot category")

// Category names one of the four slot groups of a lineup.
type Category string

const (
	CategoryCaptain Category = "captain"
	CategoryNA      Category = "na"
	CategoryBRLatam Category = "br_latam"
	CategoryFlex    Category = "flex"
)

// Categories lists the slot groups in scoring and display order.
var Categories = []Category{CategoryCaptain, CategoryNA, CategoryBRLatam, CategoryFlex}

func ParseCategory(raw string) (Category, error) {
	cat := Category(strings.TrimSpace(strings.ToLower(raw)))
	switch cat {
	case CategoryCaptain, CategoryNA, CategoryBRLatam, CategoryFlex:
		return cat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// SlotRef addresses one slot inside a lineup.
type SlotRef struct {
	Category Category
	Index    int
}

// Lineup stores one user's entry for a challenge. Each slot sequence has a
// fixed length equal to the challenge's capacity for that category; the
// empty string marks an open slot. Lineup values are treated as immutable:
// every mutation in rules.go returns a fresh value and leaves its input
// untouched.
type Lineup struct {
	UserID       string
	UserName     string
	ChallengeID  string
	Captains     []string
	NASlots      []string
	BRLatamSlots []string
	FlexSlots    []string
	Locked       bool
	UpdatedAt    time.Time
	CachedScore  *float64
}

// NewEmpty builds an unlocked lineup with all slots open, sized to the
// challenge settings. Users get one of these the first time they view a
// challenge they have not entered.
func NewEmpty(userID, userName, challengeID string, settings challenge.SlotSettings) Lineup {
	return Lineup{
		UserID:       userID,
		UserName:     userName,
		ChallengeID:  challengeID,
		Captains:     make([]string, settings.CaptainSlots),
		NASlots:      make([]string, settings.NASlots),
		BRLatamSlots: make([]string, settings.BRLatamSlots),
		FlexSlots:    make([]string, settings.FlexSlots),
	}
}

// Clone deep-copies the lineup so callers can hold the result without
// aliasing the source's slot sequences.
func (l Lineup) Clone() Lineup {
	copied := l
	copied.Captains = append([]string(nil), l.Captains...)
	copied.NASlots = append([]string(nil), l.NASlots...)
	copied.BRLatamSlots = append([]string(nil), l.BRLatamSlots...)
	copied.FlexSlots = append([]string(nil), l.FlexSlots...)
	if l.CachedScore != nil {
		score := *l.CachedScore
		copied.CachedScore = &score
	}
	return copied
}

// Slots returns the slot sequence for one category. The returned slice is
// the lineup's own backing array; mutating callers must Clone first.
func (l Lineup) Slots(category Category) []string {
	switch category {
	case CategoryCaptain:
		return l.Captains
	case CategoryNA:
		return l.NASlots
	case CategoryBRLatam:
		return l.BRLatamSlots
	case CategoryFlex:
		return l.FlexSlots
	}
	return nil
}

// Find locates the slot currently holding the given player id.
func (l Lineup) Find(playerID string) (SlotRef, bool) {
	if playerID == "" {
		return SlotRef{}, false
	}
	for _, category := range Categories {
		for idx, id := range l.Slots(category) {
			if id == playerID {
				return SlotRef{Category: category, Index: idx}, true
			}
		}
	}
	return SlotRef{}, false
}

// PlayerIDs returns the occupied slot ids in canonical category order.
func (l Lineup) PlayerIDs() []string {
	ids := make([]string, 0, len(l.Captains)+len(l.NASlots)+len(l.BRLatamSlots)+len(l.FlexSlots))
	for _, category := range Categories {
		for _, id := range l.Slots(category) {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
