package fortune

import (
	"reflect"
	"testing"
)

func drawnSlots(t *testing.T, numbers ...int) []Slot {
	t.Helper()
	cat := DefaultCatalog()
	out := make([]Slot, len(numbers))
	for i, n := range numbers {
		out[i] = Slot{Index: i, Revealed: true, Drawn: &DrawnValue{Symbol: cat[i], Number: n}}
	}
	return out
}

func TestComputeResultsTotal(t *testing.T) {
	res, ok := ComputeResults(drawnSlots(t, 3, 9, 8, 10, 6))
	if !ok {
		t.Fatalf("expected results")
	}
	if res.TotalScore != 36 {
		t.Fatalf("total = %d, want 36", res.TotalScore)
	}
	if len(res.Draws) != SlotCount {
		t.Fatalf("draws = %d", len(res.Draws))
	}
}

func TestComputeResultsUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		slots func() []Slot
	}{
		{"four slots", func() []Slot { return drawnSlots(t, 3, 9, 8, 10) }},
		{"unrevealed", func() []Slot {
			s := drawnSlots(t, 3, 9, 8, 10, 6)
			s[4] = Slot{Index: 4}
			return s
		}},
		{"missing number", func() []Slot { return drawnSlots(t, 3, 0, 8, 10, 6) }},
		{"out of range", func() []Slot { return drawnSlots(t, 3, 9, 8, 11, 6) }},
		{"unknown symbol", func() []Slot {
			s := drawnSlots(t, 3, 9, 8, 10, 6)
			s[2].Drawn.Symbol = SymbolDefinition{}
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ComputeResults(tt.slots()); ok {
				t.Fatalf("expected no results")
			}
		})
	}
}

func TestComputeResultsIsPure(t *testing.T) {
	slots := drawnSlots(t, 8, 9, 5, 4, 6)
	first, _ := ComputeResults(slots)
	second, _ := ComputeResults(slots)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between calls")
	}
	if slots[0].Drawn.Number != 8 {
		t.Fatalf("input mutated")
	}
}

func TestDominantElement(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"A", "B", "A", "B", "C"}, "A"},
		{[]string{"B", "A", "A", "B", "C"}, "A"},
		{[]string{"earth", "metal", "fire", "wood", "water"}, "earth"},
		{[]string{"x", "y", "y"}, "y"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := DominantElement(tt.in); got != tt.want {
			t.Errorf("DominantElement(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapshotPhase(t *testing.T) {
	snap := Snapshot{Slots: make([]SlotSnapshot, SlotCount)}
	if snap.Phase() != PhaseIdle {
		t.Fatalf("expected idle")
	}
	snap.GameActive = true
	if snap.Phase() != PhaseInProgress {
		t.Fatalf("expected in_progress")
	}
	for i := range snap.Slots {
		snap.Slots[i].Revealed = true
	}
	if snap.Phase() != PhaseAllRevealed {
		t.Fatalf("expected all_revealed")
	}
	snap.ResultsVisible = true
	if snap.Phase() != PhaseShowingResults {
		t.Fatalf("expected showing_results")
	}
}
