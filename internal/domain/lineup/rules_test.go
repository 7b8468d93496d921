package lineup

import (
	"errors"
	"testing"

	"github.com/rosterlab/perfect-roster/internal/domain/challenge"
	"github.com/rosterlab/perfect-roster/internal/domain/player"
)

func testPool() map[string]player.Player {
	return map[string]player.Player{
		"p-na-1":  {ID: "p-na-1", Name: "Frostbyte", Region: player.RegionNA, Set: 14},
		"p-na-2":  {ID: "p-na-2", Name: "Quickcast", Region: player.RegionNA, Set: 14},
		"p-br":    {ID: "p-br", Name: "Jaguara", Region: player.RegionBR, Set: 14},
		"p-las":   {ID: "p-las", Name: "Cordillera", Region: player.RegionLAS, Set: 14},
		"p-latam": {ID: "p-latam", Name: "Azteca", Region: player.RegionLATAM, Set: 14},
		"p-kr":    {ID: "p-kr", Name: "Dawnbreak", Region: player.RegionKR, Set: 14},
	}
}

func emptyTestLineup() Lineup {
	settings := challenge.SlotSettings{CaptainSlots: 1, NASlots: 1, BRLatamSlots: 1, FlexSlots: 1}
	return NewEmpty("user-1", "Talon", "chal-1", settings)
}

func slotsEqual(t *testing.T, got, want Lineup) {
	t.Helper()

	for _, category := range Categories {
		gotSlots := got.Slots(category)
		wantSlots := want.Slots(category)
		if len(gotSlots) != len(wantSlots) {
			t.Fatalf("unexpected %s slot count: got=%d want=%d", category, len(gotSlots), len(wantSlots))
		}
		for idx := range wantSlots {
			if gotSlots[idx] != wantSlots[idx] {
				t.Fatalf("unexpected %s[%d]: got=%q want=%q", category, idx, gotSlots[idx], wantSlots[idx])
			}
		}
	}
}

func TestCanOccupy(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		region   player.Region
		want     bool
	}{
		{name: "na slot accepts na", category: CategoryNA, region: player.RegionNA, want: true},
		{name: "na slot rejects br", category: CategoryNA, region: player.RegionBR, want: false},
		{name: "na slot rejects latam", category: CategoryNA, region: player.RegionLATAM, want: false},
		{name: "br latam slot accepts br", category: CategoryBRLatam, region: player.RegionBR, want: true},
		{name: "br latam slot accepts lan", category: CategoryBRLatam, region: player.RegionLAN, want: true},
		{name: "br latam slot accepts las", category: CategoryBRLatam, region: player.RegionLAS, want: true},
		{name: "br latam slot accepts latam", category: CategoryBRLatam, region: player.RegionLATAM, want: true},
		{name: "br latam slot rejects na", category: CategoryBRLatam, region: player.RegionNA, want: false},
		{name: "br latam slot rejects kr", category: CategoryBRLatam, region: player.RegionKR, want: false},
		{name: "captain accepts any region", category: CategoryCaptain, region: player.RegionKR, want: true},
		{name: "flex accepts any region", category: CategoryFlex, region: player.RegionEMEA, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanOccupy(tt.category, tt.region); got != tt.want {
				t.Fatalf("unexpected eligibility: got=%t want=%t", got, tt.want)
			}
		})
	}
}

func TestInDerivedPoolNarrowerThanEditor(t *testing.T) {
	for _, region := range []player.Region{player.RegionBR, player.RegionLATAM} {
		if !InDerivedPool(CategoryBRLatam, region) {
			t.Fatalf("expected %s in derived br/latam pool", region)
		}
	}
	// LAN and LAS pass the editor gate but are excluded from derived views.
	for _, region := range []player.Region{player.RegionLAN, player.RegionLAS} {
		if !CanOccupy(CategoryBRLatam, region) {
			t.Fatalf("expected %s to pass the editor gate", region)
		}
		if InDerivedPool(CategoryBRLatam, region) {
			t.Fatalf("expected %s excluded from derived br/latam pool", region)
		}
	}
	if !InDerivedPool(CategoryNA, player.RegionNA) || InDerivedPool(CategoryNA, player.RegionBR) {
		t.Fatalf("unexpected derived na pool membership")
	}
	if !InDerivedPool(CategoryFlex, player.RegionKR) {
		t.Fatalf("expected flex derived pool to accept any region")
	}
}

func TestPlaceWritesOpenSlot(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()

	updated, err := Place(original, CategoryNA, 0, pool["p-na-1"])
	if err != nil {
		t.Fatalf("place na player: %v", err)
	}
	if updated.NASlots[0] != "p-na-1" {
		t.Fatalf("unexpected na slot occupant: got=%q want=%q", updated.NASlots[0], "p-na-1")
	}
	if original.NASlots[0] != "" {
		t.Fatalf("place mutated the input lineup")
	}
}

func TestPlaceErrors(t *testing.T) {
	pool := testPool()

	occupied := emptyTestLineup()
	occupied.NASlots[0] = "p-na-1"

	locked := emptyTestLineup()
	locked.Locked = true

	duplicated := emptyTestLineup()
	duplicated.FlexSlots[0] = "p-na-2"

	tests := []struct {
		name      string
		lineup    Lineup
		category  Category
		index     int
		playerID  string
		targetErr error
	}{
		{name: "br player into na slot", lineup: emptyTestLineup(), category: CategoryNA, index: 0, playerID: "p-br", targetErr: ErrIneligiblePlayer},
		{name: "na player into br latam slot", lineup: emptyTestLineup(), category: CategoryBRLatam, index: 0, playerID: "p-na-1", targetErr: ErrIneligiblePlayer},
		{name: "occupied slot", lineup: occupied, category: CategoryNA, index: 0, playerID: "p-na-2", targetErr: ErrSlotOccupied},
		{name: "player already placed", lineup: duplicated, category: CategoryCaptain, index: 0, playerID: "p-na-2", targetErr: ErrDuplicatePlayer},
		{name: "locked lineup", lineup: locked, category: CategoryFlex, index: 0, playerID: "p-kr", targetErr: ErrLockedLineup},
		{name: "index out of range", lineup: emptyTestLineup(), category: CategoryFlex, index: 3, playerID: "p-kr", targetErr: ErrSlotIndex},
		{name: "unknown category", lineup: emptyTestLineup(), category: Category("bench"), index: 0, playerID: "p-kr", targetErr: ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.lineup.Clone()
			_, err := Place(tt.lineup, tt.category, tt.index, pool[tt.playerID])
			if !errors.Is(err, tt.targetErr) {
				t.Fatalf("unexpected error: got=%v want=%v", err, tt.targetErr)
			}
			slotsEqual(t, tt.lineup, before)
		})
	}
}

func TestRemoveClearsSlot(t *testing.T) {
	original := emptyTestLineup()
	original.Captains[0] = "p-kr"

	updated, err := Remove(original, CategoryCaptain, 0)
	if err != nil {
		t.Fatalf("remove captain: %v", err)
	}
	if updated.Captains[0] != "" {
		t.Fatalf("expected captain slot cleared, got %q", updated.Captains[0])
	}
	if original.Captains[0] != "p-kr" {
		t.Fatalf("remove mutated the input lineup")
	}

	// Clearing an already-open slot is a no-op success.
	again, err := Remove(updated, CategoryCaptain, 0)
	if err != nil {
		t.Fatalf("remove open slot: %v", err)
	}
	if again.Captains[0] != "" {
		t.Fatalf("expected captain slot to stay open")
	}
}

func TestRemoveLockedLineup(t *testing.T) {
	locked := emptyTestLineup()
	locked.Captains[0] = "p-kr"
	locked.Locked = true

	if _, err := Remove(locked, CategoryCaptain, 0); !errors.Is(err, ErrLockedLineup) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrLockedLineup)
	}
}

func TestMoveIntoOpenSlotClearsSource(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.FlexSlots[0] = "p-na-1"

	updated, err := Move(original, pool["p-na-1"], CategoryNA, 0, pool)
	if err != nil {
		t.Fatalf("move into open slot: %v", err)
	}
	if updated.NASlots[0] != "p-na-1" {
		t.Fatalf("unexpected na occupant: got=%q want=%q", updated.NASlots[0], "p-na-1")
	}
	if updated.FlexSlots[0] != "" {
		t.Fatalf("expected source flex slot cleared, got %q", updated.FlexSlots[0])
	}
}

func TestMoveSwapsOccupantIntoSource(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.Captains[0] = "p-na-1"
	original.FlexSlots[0] = "p-br"

	updated, err := Move(original, pool["p-na-1"], CategoryFlex, 0, pool)
	if err != nil {
		t.Fatalf("swap captain with flex: %v", err)
	}
	if updated.FlexSlots[0] != "p-na-1" {
		t.Fatalf("unexpected flex occupant: got=%q want=%q", updated.FlexSlots[0], "p-na-1")
	}
	if updated.Captains[0] != "p-br" {
		t.Fatalf("unexpected captain occupant: got=%q want=%q", updated.Captains[0], "p-br")
	}
}

func TestMoveSwapRoundTripRestoresLineup(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.Captains[0] = "p-na-1"
	original.FlexSlots[0] = "p-kr"

	swapped, err := Move(original, pool["p-na-1"], CategoryFlex, 0, pool)
	if err != nil {
		t.Fatalf("first swap: %v", err)
	}
	restored, err := Move(swapped, pool["p-na-1"], CategoryCaptain, 0, pool)
	if err != nil {
		t.Fatalf("swap back: %v", err)
	}
	slotsEqual(t, restored, original)
}

func TestMoveRejectsIneligibleTarget(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.FlexSlots[0] = "p-br"

	_, err := Move(original, pool["p-br"], CategoryNA, 0, pool)
	if !errors.Is(err, ErrIneligiblePlayer) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrIneligiblePlayer)
	}
	if original.FlexSlots[0] != "p-br" || original.NASlots[0] != "" {
		t.Fatalf("failed move left a partial write")
	}
}

func TestMoveRejectsIneligibleSwap(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.NASlots[0] = "p-na-1"
	original.BRLatamSlots[0] = "p-br"

	// Moving the NA player onto the BR occupant would push the BR player
	// into the NA slot, which the BR player cannot hold.
	_, err := Move(original, pool["p-na-1"], CategoryBRLatam, 0, pool)
	if !errors.Is(err, ErrIneligibleSwap) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrIneligibleSwap)
	}
	if original.NASlots[0] != "p-na-1" || original.BRLatamSlots[0] != "p-br" {
		t.Fatalf("failed swap left a partial write")
	}
}

func TestMoveWithoutSourceDropsOccupant(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.FlexSlots[0] = "p-kr"

	updated, err := Move(original, pool["p-latam"], CategoryFlex, 0, pool)
	if err != nil {
		t.Fatalf("move without source: %v", err)
	}
	if updated.FlexSlots[0] != "p-latam" {
		t.Fatalf("unexpected flex occupant: got=%q want=%q", updated.FlexSlots[0], "p-latam")
	}
	if _, exists := updated.Find("p-kr"); exists {
		t.Fatalf("expected displaced occupant to be dropped")
	}
}

func TestMoveUnknownOccupantFailsSwap(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.NASlots[0] = "p-na-1"
	original.FlexSlots[0] = "p-ghost"

	_, err := Move(original, pool["p-na-1"], CategoryFlex, 0, pool)
	if !errors.Is(err, ErrMissingReference) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrMissingReference)
	}
}

func TestMoveOntoOwnSlotIsNoop(t *testing.T) {
	pool := testPool()
	original := emptyTestLineup()
	original.Captains[0] = "p-kr"

	updated, err := Move(original, pool["p-kr"], CategoryCaptain, 0, pool)
	if err != nil {
		t.Fatalf("move onto own slot: %v", err)
	}
	slotsEqual(t, updated, original)
}

func TestMoveLockedLineup(t *testing.T) {
	pool := testPool()
	locked := emptyTestLineup()
	locked.FlexSlots[0] = "p-kr"
	locked.Locked = true

	if _, err := Move(locked, pool["p-kr"], CategoryCaptain, 0, pool); !errors.Is(err, ErrLockedLineup) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrLockedLineup)
	}
}

func TestFindScansAllCategories(t *testing.T) {
	l := emptyTestLineup()
	l.BRLatamSlots[0] = "p-br"

	ref, ok := l.Find("p-br")
	if !ok {
		t.Fatalf("expected to find placed player")
	}
	if ref.Category != CategoryBRLatam || ref.Index != 0 {
		t.Fatalf("unexpected slot ref: got=%s[%d]", ref.Category, ref.Index)
	}
	if _, ok := l.Find("p-missing"); ok {
		t.Fatalf("expected missing player to stay missing")
	}
	if _, ok := l.Find(""); ok {
		t.Fatalf("empty id must never match an open slot")
	}
}
