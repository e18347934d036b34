package main

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Fortune-bot/internal/adapter/fortunepresenter"
	"github.com/park285/Cheese-Fortune-bot/internal/fortune"
	"github.com/park285/Cheese-Fortune-bot/internal/irisfast"
	"github.com/park285/Cheese-Fortune-bot/internal/msgcat"
	svcfortune "github.com/park285/Cheese-Fortune-bot/internal/service/fortune"
)

type heldTask struct{}

func (heldTask) Stop() bool { return true }

// heldScheduler never fires; replies here are the synchronous ones.
type heldScheduler struct{}

func (heldScheduler) AfterFunc(time.Duration, func()) fortune.Task { return heldTask{} }

type prefix string

func (p prefix) Prefix() string { return string(p) }

type outbox struct {
	mu     sync.Mutex
	texts  []string
	images int
}

func (o *outbox) text(_ string, msg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts = append(o.texts, msg)
	return nil
}

func (o *outbox) image(string, string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.images++
	return nil
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.texts) == 0 {
		return ""
	}
	return o.texts[len(o.texts)-1]
}

func newTestHandler(t *testing.T, allowedRooms ...string) (*handler, *outbox) {
	t.Helper()
	cat, err := msgcat.New("", "en")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	box := &outbox{}
	presenter := fortunepresenter.NewPresenter(fortunepresenter.NewFormatter(cat, prefix("!")), box.text, box.image)
	svc, err := svcfortune.NewService(svcfortune.Deps{
		Catalog:   fortune.DefaultCatalog(),
		Store:     svcfortune.NewMemoryStore(),
		Repo:      svcfortune.NewMemoryRepository(),
		Renderer:  svcfortune.NewSpreadRenderer(nil),
		Localizer: cat,
		Scheduler: heldScheduler{},
		Sink:      presenter,
	}, svcfortune.Config{SessionTTL: time.Hour, AllowedRooms: allowedRooms}, zap.NewNop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(svc.Close)
	return &handler{prefix: "!", svc: svc, presenter: presenter, logger: zap.NewNop()}, box
}

func chat(text string) *irisfast.Message {
	sender := "Mina"
	return &irisfast.Message{Msg: text, Room: "room-7", Sender: &sender, JSON: &irisfast.MessageJSON{UserID: "u-7"}}
}

func TestHandlerFlow(t *testing.T) {
	h, box := newTestHandler(t)

	h.handle(chat("!fortune start"))
	if got := box.last(); !strings.Contains(got, "Start!") || !strings.Contains(got, "!fortune flip <1-5>") {
		t.Fatalf("unexpected start reply: %q", got)
	}
	if box.images != 1 {
		t.Fatalf("start should send the spread image, got %d", box.images)
	}

	h.handle(chat("!fortune flip 1"))
	if got := box.last(); got != "Card 1 is turning over..." {
		t.Fatalf("unexpected flip reply: %q", got)
	}
	h.handle(chat("!운세 1"))
	if got := box.last(); got != "Card 1 is already revealed." {
		t.Fatalf("unexpected repeat flip reply: %q", got)
	}
	h.handle(chat("!fortune flip 9"))
	if got := box.last(); got != "Pick a card between 1 and 5." {
		t.Fatalf("unexpected invalid flip reply: %q", got)
	}

	h.handle(chat("!fortune status"))
	if got := box.last(); !strings.Contains(got, "1. Mountain") || !strings.Contains(got, "1/5 revealed") {
		t.Fatalf("unexpected status: %q", got)
	}

	h.handle(chat("!fortune lang zh"))
	if got := box.last(); got != "🌐 语言: 中文" {
		t.Fatalf("unexpected language reply: %q", got)
	}
	h.handle(chat("!运势 结果"))
	if got := box.last(); !strings.Contains(got, "五张") {
		t.Fatalf("expected zh pending results, got %q", got)
	}

	h.handle(chat("!fortune start"))
	if got := box.last(); !strings.Contains(got, "新游戏") {
		t.Fatalf("second start should read as a new game: %q", got)
	}
}

func TestHandlerIgnoresOtherCommands(t *testing.T) {
	h, box := newTestHandler(t)
	if h.accepts(chat("hello")) {
		t.Fatalf("message without prefix accepted")
	}
	h.handle(chat("!체스 시작"))
	if len(box.texts) != 0 {
		t.Fatalf("non-fortune command produced a reply: %v", box.texts)
	}
	h.handle(chat("!fortune dance"))
	if got := box.last(); !strings.Contains(got, "Unknown command") {
		t.Fatalf("unexpected unknown reply: %q", got)
	}
}

func TestHandlerNotStartedFlipOnlyNotifies(t *testing.T) {
	h, box := newTestHandler(t)
	h.handle(chat("!fortune flip 2"))
	if len(box.texts) != 1 || !strings.HasPrefix(box.texts[0], "Not started") {
		t.Fatalf("expected only the not-started notice, got %q", box.texts)
	}
	if box.images != 0 {
		t.Fatalf("no image expected before start")
	}
}

func TestHandlerRepliesInDisallowedRoom(t *testing.T) {
	h, box := newTestHandler(t, " Room-9 ")

	h.handle(chat("!fortune start"))
	if got := box.last(); !strings.Contains(got, "not enabled in this room") {
		t.Fatalf("expected room denial reply, got %q", got)
	}
	if box.images != 0 {
		t.Fatalf("no spread expected in a disallowed room")
	}
}
