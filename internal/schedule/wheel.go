package schedule

import (
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"

	"github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

const (
	DefaultTick      = 10 * time.Millisecond
	DefaultWheelSize = 512
)

// Wheel is a fortune.Scheduler backed by a hierarchical timing wheel.
// One wheel is shared by every session in the process.
type Wheel struct {
	tw      *timingwheel.TimingWheel
	once    sync.Once
	stopped chan struct{}
}

var _ fortune.Scheduler = (*Wheel)(nil)

// NewWheel starts a wheel. tick below one millisecond falls back to DefaultTick.
func NewWheel(tick time.Duration) *Wheel {
	if tick < time.Millisecond {
		tick = DefaultTick
	}
	w := &Wheel{
		tw:      timingwheel.NewTimingWheel(tick, DefaultWheelSize),
		stopped: make(chan struct{}),
	}
	w.tw.Start()
	return w
}

func (w *Wheel) AfterFunc(d time.Duration, f func()) fortune.Task {
	select {
	case <-w.stopped:
		return stoppedTask{}
	default:
	}
	if d < 0 {
		d = 0
	}
	return w.tw.AfterFunc(d, f)
}

// Stop halts the wheel; pending tasks never fire.
func (w *Wheel) Stop() {
	w.once.Do(func() {
		close(w.stopped)
		w.tw.Stop()
	})
}

type stoppedTask struct{}

func (stoppedTask) Stop() bool { return false }
