package fortune

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrSlotOutOfRange    = errors.New("fortune slot out of range")
	ErrInvalidAssignment = errors.New("invalid fortune assignment mode")
)

const (
	DefaultRevealDelay  = 600 * time.Millisecond
	DefaultResultsDelay = time.Second

	startedDuration    = 3000 * time.Millisecond
	notStartedDuration = 3000 * time.Millisecond
	revealedDuration   = 5000 * time.Millisecond
	settingsDuration   = 3000 * time.Millisecond
	creditsDuration    = 4000 * time.Millisecond
)

// Assignment selects how a revealed slot picks its symbol.
type Assignment string

const (
	// AssignFixed binds slot i to catalog[i]; only the number is random.
	AssignFixed Assignment = "fixed"
	// AssignRandom draws a uniformly random symbol from the catalog per reveal.
	AssignRandom Assignment = "random"
)

func ParseAssignment(s string) (Assignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed", "positional":
		return AssignFixed, nil
	case "random", "catalog":
		return AssignRandom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAssignment, s)
	}
}

// RevealOutcome tells the caller what RevealSlot did.
type RevealOutcome int

const (
	RevealAccepted RevealOutcome = iota
	RevealAlreadyRevealed
	RevealNotStarted
	RevealInvalid
)

func (o RevealOutcome) String() string {
	switch o {
	case RevealAccepted:
		return "accepted"
	case RevealAlreadyRevealed:
		return "already_revealed"
	case RevealNotStarted:
		return "not_started"
	case RevealInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

type Option func(*Controller)

func WithAssignment(a Assignment) Option { return func(c *Controller) { c.assignment = a } }

func WithRNG(r RNG) Option { return func(c *Controller) { c.rng = r } }

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.sched = s } }

func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

func WithLocalizer(l Localizer) Option { return func(c *Controller) { c.localizer = l } }

func WithObserver(o Observer) Option { return func(c *Controller) { c.observer = o } }

func WithLocale(l Locale) Option { return func(c *Controller) { c.locale = l } }

// WithDelays overrides the reveal-notification and results delays. Non-positive values keep the default.
func WithDelays(reveal, results time.Duration) Option {
	return func(c *Controller) {
		if reveal > 0 {
			c.revealDelay = reveal
		}
		if results > 0 {
			c.resultsDelay = results
		}
	}
}

// Controller owns one session's reveal/results state. All transitions are
// serialized by mu; notifier and observer calls happen after it is released.
type Controller struct {
	mu sync.Mutex

	catalog      Catalog
	assignment   Assignment
	rng          RNG
	sched        Scheduler
	notifier     Notifier
	localizer    Localizer
	observer     Observer
	revealDelay  time.Duration
	resultsDelay time.Duration

	locale          Locale
	generation      uint64
	gameActive      bool
	everStarted     bool
	resultsVisible  bool
	completionArmed bool
	slots           [SlotCount]Slot

	// pending tasks belong to the current generation only
	pending  map[uint64]Task
	nextTask uint64
}

func NewController(catalog Catalog, opts ...Option) (*Controller, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		catalog:      append(Catalog(nil), catalog...),
		assignment:   AssignFixed,
		rng:          DefaultRNG(),
		sched:        timeScheduler{},
		notifier:     nopNotifier{},
		localizer:    keyLocalizer{},
		revealDelay:  DefaultRevealDelay,
		resultsDelay: DefaultResultsDelay,
		locale:       LocaleEN,
		pending:      make(map[uint64]Task),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.assignment != AssignFixed && c.assignment != AssignRandom {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssignment, c.assignment)
	}
	if c.locale != LocaleEN && c.locale != LocaleZH {
		c.locale = LocaleEN
	}
	c.resetSlotsLocked()
	return c, nil
}

// effects are callbacks collected under the lock and run after it is released.
type effects []func()

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

// StartGame resets every slot, clears results and invalidates anything
// scheduled by the previous game.
func (c *Controller) StartGame() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.generation++
	c.gameActive = true
	c.everStarted = true
	c.resultsVisible = false
	c.completionArmed = false
	c.resetSlotsLocked()
	n := c.notificationLocked(NotifyStarted, "notify.started", nil, startedDuration, -1)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notifier.Notify(n)
	c.observe(EventStarted, snap)
}

// RevealSlot flips slot index. Revealing twice is a no-op and revealing
// before StartGame only produces a notification.
func (c *Controller) RevealSlot(index int) (RevealOutcome, error) {
	if index < 0 || index >= SlotCount {
		return RevealInvalid, fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}

	c.mu.Lock()
	if c.slots[index].Revealed {
		c.mu.Unlock()
		return RevealAlreadyRevealed, nil
	}
	if !c.gameActive {
		n := c.notificationLocked(NotifyNotStarted, "notify.not_started", nil, notStartedDuration, -1)
		c.mu.Unlock()
		c.notifier.Notify(n)
		return RevealNotStarted, nil
	}

	sym := c.assignLocked(index)
	drawn := DrawnValue{Symbol: sym, Number: sym.NumberSpec.Draw(c.rng)}
	c.slots[index].Revealed = true
	c.slots[index].Drawn = &drawn

	c.scheduleLocked(c.revealDelay, func() effects {
		n := c.revealNotificationLocked(index, drawn)
		return effects{func() { c.notifier.Notify(n) }}
	})
	c.evaluateCompletionLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observe(EventRevealed, snap)
	return RevealAccepted, nil
}

// EvaluateCompletion arms the delayed results transition when all slots
// hold well-formed draws. It reports whether a transition was armed.
func (c *Controller) EvaluateCompletion() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluateCompletionLocked()
}

func (c *Controller) evaluateCompletionLocked() bool {
	if !c.gameActive || c.resultsVisible || c.completionArmed {
		return false
	}
	if !allWellFormed(c.slots[:]) {
		return false
	}
	c.completionArmed = true
	c.scheduleLocked(c.resultsDelay, func() effects {
		c.completionArmed = false
		if !c.gameActive || !allWellFormed(c.slots[:]) {
			return nil
		}
		c.resultsVisible = true
		snap := c.snapshotLocked()
		return effects{func() { c.observe(EventResultsShown, snap) }}
	})
	return true
}

// Results computes the aggregate for the current slots.
func (c *Controller) Results() (FortuneResult, bool) {
	c.mu.Lock()
	slots := c.copySlotsLocked()
	c.mu.Unlock()
	return ComputeResults(slots)
}

// DismissResults hides the results; slots and the active game are kept.
func (c *Controller) DismissResults() {
	c.mu.Lock()
	changed := c.resultsVisible
	c.resultsVisible = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if changed {
		c.observe(EventResultsHidden, snap)
	}
}

// ToggleLanguage flips the locale and returns the new one.
func (c *Controller) ToggleLanguage() Locale {
	c.mu.Lock()
	c.locale = c.locale.Toggle()
	loc := c.locale
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.observe(EventLocaleChanged, snap)
	return loc
}

// ShowSettings emits the localized settings notice.
func (c *Controller) ShowSettings() {
	c.mu.Lock()
	n := c.notificationLocked(NotifySettings, "notify.settings", nil, settingsDuration, -1)
	c.mu.Unlock()
	c.notifier.Notify(n)
}

// ShowCredits emits the localized credits notice.
func (c *Controller) ShowCredits() {
	c.mu.Lock()
	n := c.notificationLocked(NotifyCredits, "notify.credits", nil, creditsDuration, -1)
	c.mu.Unlock()
	c.notifier.Notify(n)
}

func (c *Controller) Locale() Locale {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locale
}

func (c *Controller) Phase() Phase {
	return c.Snapshot().Phase()
}

func (c *Controller) Slots() []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copySlotsLocked()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Restore replaces the state with snap. Pending tasks are dropped; a
// complete snapshot that is not yet showing results re-arms completion.
func (c *Controller) Restore(snap Snapshot) error {
	slots, err := c.catalog.SlotsOf(snap)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cancelPendingLocked()
	c.generation = snap.Generation
	c.gameActive = snap.GameActive
	c.everStarted = snap.EverStarted || snap.GameActive
	c.resultsVisible = snap.ResultsVisible && snap.GameActive && allWellFormed(slots)
	c.completionArmed = false
	if snap.Locale == LocaleEN || snap.Locale == LocaleZH {
		c.locale = snap.Locale
	}
	copy(c.slots[:], slots)
	c.evaluateCompletionLocked()
	out := c.snapshotLocked()
	c.mu.Unlock()

	c.observe(EventStateRestored, out)
	return nil
}

// Close stops every pending task. The controller stays usable.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.completionArmed = false
	c.mu.Unlock()
}

func (c *Controller) assignLocked(index int) SymbolDefinition {
	if c.assignment == AssignRandom {
		return c.catalog[c.rng.IntN(len(c.catalog))]
	}
	return c.catalog[index]
}

// scheduleLocked runs fn after d unless a newer generation started first.
// fn runs with mu held; its effects run after mu is released.
func (c *Controller) scheduleLocked(d time.Duration, fn func() effects) {
	gen := c.generation
	c.nextTask++
	id := c.nextTask
	c.pending[id] = c.sched.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.pending, id)
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		fx := fn()
		c.mu.Unlock()
		fx.run()
	})
}

func (c *Controller) cancelPendingLocked() {
	for id, t := range c.pending {
		if t != nil {
			t.Stop()
		}
		delete(c.pending, id)
	}
}

func (c *Controller) resetSlotsLocked() {
	for i := range c.slots {
		c.slots[i] = Slot{Index: i}
	}
}

func (c *Controller) copySlotsLocked() []Slot {
	out := make([]Slot, SlotCount)
	for i, s := range c.slots {
		out[i] = s
		if s.Drawn != nil {
			d := *s.Drawn
			out[i].Drawn = &d
		}
	}
	return out
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Generation:     c.generation,
		GameActive:     c.gameActive,
		EverStarted:    c.everStarted,
		ResultsVisible: c.resultsVisible,
		Locale:         c.locale,
		Slots:          snapshotSlots(c.slots[:]),
	}
}

func (c *Controller) notificationLocked(kind NotificationKind, key string, data map[string]any, d time.Duration, slot int) Notification {
	loc := string(c.locale)
	return Notification{
		Kind:     kind,
		Title:    c.localizer.Localize(loc, key+".title", data),
		Body:     c.localizer.Localize(loc, key+".body", data),
		Duration: d,
		Slot:     slot,
	}
}

func (c *Controller) revealNotificationLocked(index int, drawn DrawnValue) Notification {
	data := map[string]any{
		"slot":    index + 1,
		"name":    drawn.Symbol.Name.Get(c.locale),
		"number":  strconv.Itoa(drawn.Number),
		"meaning": drawn.Symbol.Meaning.Get(c.locale),
		"element": c.elementLabelLocked(drawn.Symbol.Element),
	}
	return c.notificationLocked(NotifyRevealed, "notify.revealed", data, revealedDuration, index)
}

func (c *Controller) elementLabelLocked(tag string) string {
	key := "element." + tag
	label := c.localizer.Localize(string(c.locale), key, nil)
	if label == "" || label == key {
		return tag
	}
	return label
}

func (c *Controller) observe(kind EventKind, snap Snapshot) {
	if c.observer != nil {
		c.observer(kind, snap)
	}
}

// timeScheduler is the fallback when no scheduler is injected.
type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Task { return time.AfterFunc(d, f) }
