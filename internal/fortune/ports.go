package fortune

import "time"

// NotificationKind tags a notification so presenters can style it.
type NotificationKind string

const (
	NotifyStarted    NotificationKind = "started"
	NotifyNotStarted NotificationKind = "not_started"
	NotifyRevealed   NotificationKind = "revealed"
	NotifySettings   NotificationKind = "settings"
	NotifyCredits    NotificationKind = "credits"
)

// Notification is the title+body+duration triple handed to the notifier.
type Notification struct {
	Kind     NotificationKind
	Title    string
	Body     string
	Duration time.Duration
	// Slot is the revealed slot for NotifyRevealed, -1 otherwise.
	Slot int
}

// Notifier is fire-and-forget; it must not call back into the controller synchronously
// expecting a state older than the one that produced the notification.
type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Localizer renders a message key for a locale. Unknown keys should return
// something printable rather than fail.
type Localizer interface {
	Localize(locale, key string, data map[string]any) string
}

// Task is a scheduled callback that can be cancelled.
type Task interface {
	Stop() bool
}

// Scheduler runs f once after d on some goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// EventKind names a controller transition reported to observers.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventRevealed      EventKind = "revealed"
	EventResultsShown  EventKind = "results_shown"
	EventResultsHidden EventKind = "results_hidden"
	EventLocaleChanged EventKind = "locale_changed"
	EventStateRestored EventKind = "restored"
)

// Observer receives a snapshot after every state transition.
type Observer func(kind EventKind, snap Snapshot)

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type keyLocalizer struct{}

func (keyLocalizer) Localize(_, key string, _ map[string]any) string { return key }
