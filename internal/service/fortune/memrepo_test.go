package fortune

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepositoryDuplicateAndOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := repo.InsertReading(ctx, &Reading{
			ReadingUUID: id,
			PlayerHash:  "p1",
			TotalScore:  30 + i,
			Draws:       []ReadingDraw{{Slot: 0, SymbolID: 1, Number: 3}},
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := repo.InsertReading(ctx, &Reading{ReadingUUID: "b", PlayerHash: "p1"}); !errors.Is(err, ErrDuplicateReading) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := repo.InsertReading(ctx, &Reading{ReadingUUID: "z", PlayerHash: "p2", CompletedAt: base}); err != nil {
		t.Fatalf("insert other player: %v", err)
	}

	got, err := repo.RecentReadings(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ReadingUUID != "c" || got[1].ReadingUUID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}

	got[0].Draws[0].Number = 99
	again, _ := repo.RecentReadings(ctx, "p1", 1)
	if again[0].Draws[0].Number == 99 {
		t.Fatalf("repository leaked internal slice")
	}
}
