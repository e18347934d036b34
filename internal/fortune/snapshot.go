package fortune

import (
	"errors"
	"fmt"
)

var ErrSnapshotShape = errors.New("fortune snapshot must hold five slots")

// Phase is the coarse session state derived from the controller flags.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseInProgress     Phase = "in_progress"
	PhaseAllRevealed    Phase = "all_revealed"
	PhaseShowingResults Phase = "showing_results"
)

// SlotSnapshot stores a slot by symbol id so snapshots stay small.
type SlotSnapshot struct {
	Index    int  `json:"index"`
	Revealed bool `json:"revealed"`
	SymbolID int  `json:"symbol_id,omitempty"`
	Number   int  `json:"number,omitempty"`
}

// Snapshot is a serializable copy of one session's state.
type Snapshot struct {
	Generation     uint64         `json:"generation"`
	GameActive     bool           `json:"game_active"`
	EverStarted    bool           `json:"ever_started"`
	ResultsVisible bool           `json:"results_visible"`
	Locale         Locale         `json:"locale"`
	Slots          []SlotSnapshot `json:"slots"`
}

func (s Snapshot) Phase() Phase {
	if !s.GameActive {
		return PhaseIdle
	}
	if s.ResultsVisible {
		return PhaseShowingResults
	}
	if s.RevealedCount() == SlotCount {
		return PhaseAllRevealed
	}
	return PhaseInProgress
}

func (s Snapshot) RevealedCount() int {
	n := 0
	for _, sl := range s.Slots {
		if sl.Revealed {
			n++
		}
	}
	return n
}

// SlotsOf resolves a snapshot against the catalog. An unknown symbol id on a
// revealed slot yields a malformed draw rather than an error.
func (c Catalog) SlotsOf(snap Snapshot) ([]Slot, error) {
	if len(snap.Slots) != SlotCount {
		return nil, fmt.Errorf("%w: got %d", ErrSnapshotShape, len(snap.Slots))
	}
	out := make([]Slot, SlotCount)
	for i, ss := range snap.Slots {
		out[i] = Slot{Index: i, Revealed: ss.Revealed}
		if !ss.Revealed {
			continue
		}
		drawn := &DrawnValue{Number: ss.Number}
		if sym, err := c.ByID(ss.SymbolID); err == nil {
			drawn.Symbol = sym
		}
		out[i].Drawn = drawn
	}
	return out, nil
}

func snapshotSlots(slots []Slot) []SlotSnapshot {
	out := make([]SlotSnapshot, len(slots))
	for i, s := range slots {
		out[i] = SlotSnapshot{Index: i, Revealed: s.Revealed}
		if s.Revealed && s.Drawn != nil {
			out[i].SymbolID = s.Drawn.Symbol.ID
			out[i].Number = s.Drawn.Number
		}
	}
	return out
}
