package fortune

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// manualScheduler fires tasks only when the test advances its clock.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
	// leaky makes Stop a no-op so stale callbacks still run.
	leaky bool
}

type manualTask struct {
	s       *manualScheduler
	at      time.Duration
	seq     int
	f       func()
	fired   bool
	stopped bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.leaky || t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, at: s.now + d, seq: len(s.tasks), f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTask
	for _, t := range s.tasks {
		if !t.fired && !t.stopped && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.f()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type fixedRNG struct{ val int }

func (r fixedRNG) IntN(n int) int { return r.val % n }

// sequenceRNG returns values from a pre-set sequence.
type sequenceRNG struct {
	values []int
	idx    int
}

func (r *sequenceRNG) IntN(n int) int {
	v := r.values[r.idx%len(r.values)] % n
	r.idx++
	return v
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) Kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationKind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

func (r *recordingNotifier) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return Notification{}, false
	}
	return r.got[len(r.got)-1], true
}

func (r *recordingNotifier) Count(kind NotificationKind) int {
	n := 0
	for _, k := range r.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// testLocalizer renders keys the way the YAML tables would, minus templates.
type testLocalizer struct{}

func (testLocalizer) Localize(locale, key string, data map[string]any) string {
	switch key {
	case "notify.revealed.title":
		return fmt.Sprintf("%v (%v)", data["name"], data["number"])
	case "notify.revealed.body":
		return fmt.Sprintf("[%v] %v", data["element"], data["meaning"])
	case "element.earth":
		if locale == "zh" {
			return "土"
		}
		return "Earth"
	default:
		return locale + ":" + key
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []EventKind
	last   Snapshot
}

func (l *eventLog) observe(kind EventKind, snap Snapshot) {
	l.mu.Lock()
	l.events = append(l.events, kind)
	l.last = snap
	l.mu.Unlock()
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, k := range l.events {
		if k == kind {
			n++
		}
	}
	return n
}
