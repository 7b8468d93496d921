package challenge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownType = errors.New("unknown challenge type")
	ErrUnknownCup  = errors.New("unknown cup")
)

// Type selects how player point values are resolved for a challenge.
type Type string

const (
	// TypeStandard scores players by their accumulated points for the
	// challenge's current cup.
	TypeStandard Type = "standard"
	// TypeRegionals scores players by final regional tournament placement.
	TypeRegionals Type = "regionals"
)

var AllTypes = map[Type]struct{}{
	TypeStandard:  {},
	TypeRegionals: {},
}

// ParseType rejects anything outside the closed challenge type set.
func ParseType(raw string) (Type, error) {
	t := Type(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := AllTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
	return t, nil
}

// CupKey identifies one scoring period within a season.
type CupKey string

const (
	Cup1 CupKey = "cup1"
	Cup2 CupKey = "cup2"
	Cup3 CupKey = "cup3"
	Cup4 CupKey = "cup4"
)

var AllCups = map[CupKey]struct{}{
	Cup1: {},
	Cup2: {},
	Cup3: {},
	Cup4: {},
}

// ParseCup rejects anything outside the closed cup set. Callers must
// surface the error; scoring never falls back to a default cup.
func ParseCup(raw string) (CupKey, error) {
	cup := CupKey(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := AllCups[cup]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCup, raw)
	}
	return cup, nil
}

// SlotSettings fixes the slot capacities of a challenge for its lifetime.
type SlotSettings struct {
	CaptainSlots int
	NASlots      int
	BRLatamSlots int
	FlexSlots    int
}

func (s SlotSettings) Validate() error {
	if s.CaptainSlots < 0 || s.NASlots < 0 || s.BRLatamSlots < 0 || s.FlexSlots < 0 {
		return fmt.Errorf("slot capacities must be >= 0")
	}
	if s.CaptainSlots+s.NASlots+s.BRLatamSlots+s.FlexSlots == 0 {
		return fmt.Errorf("challenge must have at least one slot")
	}
	return nil
}

// Challenge is one roster contest configuration. Player and challenge
// records are owned by the upstream document store; this service reads
// synced snapshots.
type Challenge struct {
	ID         string
	Name       string
	Season     string
	Type       Type
	Set        int
	CurrentCup CupKey
	EndDate    time.Time
	Settings   SlotSettings
}

func (c Challenge) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("challenge id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("challenge name is required")
	}
	if c.Season == "" {
		return fmt.Errorf("challenge season is required")
	}
	if _, ok := AllTypes[c.Type]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
	if _, ok := AllCups[c.CurrentCup]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCup, c.CurrentCup)
	}
	if c.Set <= 0 {
		return fmt.Errorf("challenge set must be greater than zero")
	}
	if c.EndDate.IsZero() {
		return fmt.Errorf("challenge end date is required")
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}

	return nil
}

// OpenAt reports whether entries may still be edited at the given instant.
func (c Challenge) OpenAt(t time.Time) bool {
	return t.Before(c.EndDate)
}
