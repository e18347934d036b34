package fortunedto

import "time"

// Card is one slot; Slot is 1-based for display.
type Card struct {
	Slot      int
	Revealed  bool
	SymbolID  int
	NameEN    string
	NameZH    string
	MeaningEN string
	MeaningZH string
	Number    int
	Element   string
	Direction string
}

type Result struct {
	TotalScore      int
	DominantElement string
	Draws           []Card
}

type SpreadState struct {
	ReadingUUID    string
	PlayerName     string
	Phase          string
	Locale         string
	Cards          []Card
	Revealed       int
	EverStarted    bool
	Restarted      bool
	ResultsVisible bool
	Result         *Result
	Image          []byte
	StartedAt      time.Time
}

type RevealSummary struct {
	Outcome string
	Slot    int
	Card    *Card
	State   *SpreadState
}

type Notification struct {
	Kind     string
	Title    string
	Body     string
	Duration time.Duration
	Slot     int
}
