package fortune

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

func sampleRecord() *SessionRecord {
	slots := make([]core.SlotSnapshot, core.SlotCount)
	for i := range slots {
		slots[i] = core.SlotSnapshot{Index: i}
	}
	slots[0] = core.SlotSnapshot{Index: 0, Revealed: true, SymbolID: 1, Number: 5}
	return &SessionRecord{
		ReadingUUID: "5f1c7a4e-3d55-4b8e-9f6a-1c2d3e4f5a6b",
		Room:        "room-1",
		PlayerHash:  "p",
		RoomHash:    "r",
		StartedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		State: core.Snapshot{
			Generation:  3,
			GameActive:  true,
			EverStarted: true,
			Locale:      core.LocaleZH,
			Slots:       slots,
		},
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	got, err := store.Load(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("missing key: got %v, %v", got, err)
	}

	rec := sampleRecord()
	if err := store.Save(ctx, "k1", rec, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists(sessionKeyPrefix + "k1") {
		t.Fatalf("expected namespaced key in redis")
	}

	got, err = store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ReadingUUID != rec.ReadingUUID || got.State.Generation != 3 || got.State.Locale != core.LocaleZH {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.State.Slots[0].Revealed || got.State.Slots[0].Number != 5 {
		t.Fatalf("slot not preserved: %+v", got.State.Slots[0])
	}

	mr.FastForward(2 * time.Minute)
	got, err = store.Load(ctx, "k1")
	if err != nil || got != nil {
		t.Fatalf("expected expiry, got %v, %v", got, err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.Save(ctx, "k", sampleRecord(), 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Fatalf("expected deleted record")
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "http://nope"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Save(ctx, "k", sampleRecord(), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := store.Load(ctx, "k"); got == nil {
		t.Fatalf("expected record before expiry")
	}
	now = now.Add(time.Minute)
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Fatalf("expected record to expire")
	}
	if err := store.Save(ctx, "k", nil, 0); err == nil {
		t.Fatalf("expected nil record error")
	}
}
