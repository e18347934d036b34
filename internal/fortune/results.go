package fortune

// DrawnValue binds a slot to a symbol and the number sampled at reveal time.
type DrawnValue struct {
	Symbol SymbolDefinition
	Number int
}

// WellFormed reports whether the number lies inside the symbol's range.
// A zero Number on a symbol whose range starts above zero is "missing".
func (d DrawnValue) WellFormed() bool {
	return d.Symbol.ID != 0 && d.Symbol.NumberSpec.Contains(d.Number)
}

// Slot is one of the five card positions. Drawn is non-nil iff Revealed.
type Slot struct {
	Index    int
	Revealed bool
	Drawn    *DrawnValue
}

func (s Slot) wellFormed() bool {
	return s.Revealed && s.Drawn != nil && s.Drawn.WellFormed()
}

// FortuneResult is derived from a completed session, never stored on the controller.
type FortuneResult struct {
	TotalScore      int
	DominantElement string
	Draws           []DrawnValue
}

// ComputeResults is pure: it returns a result only when exactly SlotCount
// well-formed draws exist.
func ComputeResults(slots []Slot) (FortuneResult, bool) {
	if len(slots) != SlotCount {
		return FortuneResult{}, false
	}
	draws := make([]DrawnValue, 0, SlotCount)
	total := 0
	for _, s := range slots {
		if !s.wellFormed() {
			return FortuneResult{}, false
		}
		draws = append(draws, *s.Drawn)
		total += s.Drawn.Number
	}
	elements := make([]string, len(draws))
	for i, d := range draws {
		elements[i] = d.Symbol.Element
	}
	return FortuneResult{
		TotalScore:      total,
		DominantElement: DominantElement(elements),
		Draws:           draws,
	}, true
}

// DominantElement returns the most frequent tag; on a tie the tag that
// reached the winning count first while scanning left to right wins.
func DominantElement(elements []string) string {
	counts := make(map[string]int, len(elements))
	best, dominant := 0, ""
	for _, e := range elements {
		counts[e]++
		if counts[e] > best {
			best = counts[e]
			dominant = e
		}
	}
	return dominant
}

func allWellFormed(slots []Slot) bool {
	for _, s := range slots {
		if !s.wellFormed() {
			return false
		}
	}
	return len(slots) == SlotCount
}
