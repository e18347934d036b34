package fortunedto

import "time"

type Reading struct {
	ID              int64
	ReadingUUID     string
	Locale          string
	Assignment      string
	TotalScore      int
	DominantElement string
	Draws           []ReadingDraw
	StartedAt       time.Time
	CompletedAt     time.Time
}

type ReadingDraw struct {
	Slot     int
	SymbolID int
	Symbol   string
	Number   int
	Element  string
}
