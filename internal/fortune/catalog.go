package fortune

import (
	"errors"
	"fmt"
	"strings"
)

// SlotCount is the number of card positions in a session.
const SlotCount = 5

var (
	ErrCatalogSize      = errors.New("fortune catalog must hold exactly five symbols")
	ErrDuplicateSymbol  = errors.New("duplicate fortune symbol id")
	ErrInvalidSymbol    = errors.New("invalid fortune symbol")
	ErrSymbolNotFound   = errors.New("fortune symbol not found")
	ErrInvalidDirection = errors.New("invalid fortune direction")
)

// Icon is an opaque handle to the glyph drawn for a symbol.
type Icon string

const (
	IconTriangle Icon = "triangle"
	IconCircle   Icon = "circle"
	IconStar     Icon = "star"
	IconCross    Icon = "cross"
)

type Direction string

const (
	North  Direction = "north"
	South  Direction = "south"
	East   Direction = "east"
	West   Direction = "west"
	Center Direction = "center"
)

func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West, Center:
		return true
	default:
		return false
	}
}

// Bilingual holds the English and Chinese rendering of a text.
type Bilingual struct {
	EN string `json:"en"`
	ZH string `json:"zh"`
}

// Get returns the text for loc, falling back to English.
func (b Bilingual) Get(loc Locale) string {
	if loc == LocaleZH && strings.TrimSpace(b.ZH) != "" {
		return b.ZH
	}
	return b.EN
}

// NumberSpec is an inclusive [Min, Max] range; Min == Max is a fixed value.
type NumberSpec struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func Fixed(n int) NumberSpec { return NumberSpec{Min: n, Max: n} }

func Range(min, max int) NumberSpec { return NumberSpec{Min: min, Max: max} }

func (s NumberSpec) IsFixed() bool { return s.Min == s.Max }

func (s NumberSpec) Contains(n int) bool { return n >= s.Min && n <= s.Max }

// Draw samples uniformly from the range. A fixed range never consults rng.
func (s NumberSpec) Draw(rng RNG) int {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rng.IntN(s.Max-s.Min+1)
}

func (s NumberSpec) String() string {
	if s.IsFixed() {
		return fmt.Sprintf("%d", s.Min)
	}
	return fmt.Sprintf("%d-%d", s.Min, s.Max)
}

// SymbolDefinition is immutable once the catalog is built.
type SymbolDefinition struct {
	ID         int
	Icon       Icon
	Name       Bilingual
	NumberSpec NumberSpec
	Meaning    Bilingual
	Element    string
	Direction  Direction
}

// Catalog is the ordered symbol list; position i is the fixed symbol of slot i.
type Catalog []SymbolDefinition

func (c Catalog) Validate() error {
	if len(c) != SlotCount {
		return ErrCatalogSize
	}
	seen := make(map[int]struct{}, len(c))
	for i, sym := range c {
		if _, dup := seen[sym.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateSymbol, sym.ID)
		}
		seen[sym.ID] = struct{}{}
		if strings.TrimSpace(sym.Name.EN) == "" || strings.TrimSpace(sym.Element) == "" {
			return fmt.Errorf("%w: slot %d missing name or element", ErrInvalidSymbol, i)
		}
		if sym.NumberSpec.Max < sym.NumberSpec.Min {
			return fmt.Errorf("%w: slot %d number range %d>%d", ErrInvalidSymbol, i, sym.NumberSpec.Min, sym.NumberSpec.Max)
		}
		if !sym.Direction.Valid() {
			return fmt.Errorf("%w: slot %d %q", ErrInvalidDirection, i, sym.Direction)
		}
	}
	return nil
}

func (c Catalog) ByID(id int) (SymbolDefinition, error) {
	for _, sym := range c {
		if sym.ID == id {
			return sym, nil
		}
	}
	return SymbolDefinition{}, fmt.Errorf("%w: %d", ErrSymbolNotFound, id)
}

// DefaultCatalog returns a fresh copy of the five cultural symbols.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			ID:         1,
			Icon:       IconTriangle,
			Name:       Bilingual{EN: "Mountain", ZH: "山"},
			NumberSpec: Range(3, 8),
			Meaning: Bilingual{
				EN: "Strength and stability await you. Like the eternal mountain, your foundation is solid.",
				ZH: "力量与稳定等待着你。如永恒的山峰，你的根基坚实。",
			},
			Element:   "earth",
			Direction: Center,
		},
		{
			ID:         2,
			Icon:       IconCircle,
			Name:       Bilingual{EN: "Unity", ZH: "圆"},
			NumberSpec: Fixed(9),
			Meaning: Bilingual{
				EN: "Harmony and completeness surround you. The circle brings endless possibilities.",
				ZH: "和谐与完整围绕着你。圆满带来无限可能。",
			},
			Element:   "metal",
			Direction: West,
		},
		{
			ID:         3,
			Icon:       IconStar,
			Name:       Bilingual{EN: "Guidance", ZH: "星"},
			NumberSpec: Range(5, 9),
			Meaning: Bilingual{
				EN: "Your path is illuminated by wisdom. Follow the star to your destiny.",
				ZH: "智慧照亮你的道路。跟随星光走向命运。",
			},
			Element:   "fire",
			Direction: South,
		},
		{
			ID:         4,
			Icon:       IconCross,
			Name:       Bilingual{EN: "Crossroads", ZH: "十"},
			NumberSpec: Range(4, 10),
			Meaning: Bilingual{
				EN: "Important decisions await. Choose with your heart and mind united.",
				ZH: "重要的决定在等待。用心灵与理智的结合来选择。",
			},
			Element:   "wood",
			Direction: East,
		},
		{
			ID:         5,
			Icon:       IconCircle,
			Name:       Bilingual{EN: "Fortune", ZH: "福"},
			NumberSpec: Fixed(6),
			Meaning: Bilingual{
				EN: "Good fortune flows toward you like a gentle river. Embrace the blessings.",
				ZH: "好运如温柔的河流向你涌来。拥抱祝福。",
			},
			Element:   "water",
			Direction: North,
		},
	}
}
