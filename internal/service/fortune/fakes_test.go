package fortune

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

type manualTask struct {
	s  *manualScheduler
	id int
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	_, ok := t.s.tasks[t.id]
	delete(t.s.tasks, t.id)
	return ok
}

type scheduled struct {
	at time.Duration
	fn func()
}

// manualScheduler fires tasks only when Advance moves its clock past them.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	next  int
	tasks map[int]scheduled
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[int]scheduled)}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) core.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.tasks[s.next] = scheduled{at: s.now + d, fn: f}
	return &manualTask{s: s, id: s.next}
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []int
	for id, t := range s.tasks {
		if t.at <= s.now {
			due = append(due, id)
		}
	}
	sort.Ints(due)
	fns := make([]func(), 0, len(due))
	for _, id := range due {
		fns = append(fns, s.tasks[id].fn)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

type sequenceRNG struct {
	mu     sync.Mutex
	values []int
	idx    int
}

func (r *sequenceRNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.idx%len(r.values)]
	r.idx++
	return v % n
}

type recordingSink struct {
	mu            sync.Mutex
	notifications []core.Notification
	results       []*SpreadState
	rooms         []string
}

func (s *recordingSink) Notify(_ context.Context, room string, n core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	s.rooms = append(s.rooms, room)
	return nil
}

func (s *recordingSink) Results(_ context.Context, room string, state *SpreadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, state)
	s.rooms = append(s.rooms, room)
	return nil
}

func (s *recordingSink) kinds() []core.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.NotificationKind, len(s.notifications))
	for i, n := range s.notifications {
		out[i] = n.Kind
	}
	return out
}

func (s *recordingSink) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type stubRenderer struct {
	mu    sync.Mutex
	calls int
	last  SpreadView
}

func (r *stubRenderer) RenderPNG(_ context.Context, view SpreadView) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = view
	return []byte("png"), nil
}

type keyLocalizer struct{}

func (keyLocalizer) Localize(locale, key string, _ map[string]any) string { return locale + ":" + key }

type serviceHarness struct {
	svc      *Service
	sched    *manualScheduler
	sink     *recordingSink
	store    *MemoryStore
	repo     Repository
	renderer *stubRenderer
}

func newHarness(t *testing.T, cfg Config, rng core.RNG) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		sched:    newManualScheduler(),
		sink:     &recordingSink{},
		store:    NewMemoryStore(),
		repo:     NewMemoryRepository(),
		renderer: &stubRenderer{},
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	if rng == nil {
		rng = &sequenceRNG{values: []int{0}}
	}
	svc, err := NewService(Deps{
		Catalog:   core.DefaultCatalog(),
		Store:     h.store,
		Repo:      h.repo,
		Renderer:  h.renderer,
		Localizer: keyLocalizer{},
		Scheduler: h.sched,
		Sink:      h.sink,
		RNG:       rng,
	}, cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	h.svc = svc
	return h
}

func testMeta(user string) SessionMeta {
	return SessionMeta{SessionID: "room-1:" + user, Room: "room-1", Sender: user}
}
