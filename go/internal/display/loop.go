package display

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Cancel stops a scheduled callback. It must be called from the loop goroutine.
type Cancel func()

// Scheduler defers work onto the display's single execution context. Callbacks never
// run concurrently with each other.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Cancel
	Every(d time.Duration, fn func()) Cancel
}

const loopQueueSize = 256

// Loop is a cooperative single-goroutine executor. Timers fire on clockwork goroutines
// and only post closures; all display state is read and written inside Run.
type Loop struct {
	clock clockwork.Clock
	tasks chan func()
	done  chan struct{}

	// Track every live timer so teardown can stop them all
	activeTimers   map[uuid.UUID]func()
	activeTimersMu sync.Mutex
}

// NewLoop creates a loop driven by clock.
func NewLoop(clock clockwork.Clock) *Loop {
	return &Loop{
		clock:        clock,
		tasks:        make(chan func(), loopQueueSize),
		done:         make(chan struct{}),
		activeTimers: make(map[uuid.UUID]func()),
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn for execution on the loop. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted callbacks in order until ctx is cancelled, then stops every timer.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		close(l.done)
		l.stopAll()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("display loop stopping")
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// After implements Scheduler with a one-shot clockwork timer.
func (l *Loop) After(d time.Duration, fn func()) Cancel {
	id := uuid.New()
	cancelled := false

	timer := l.clock.AfterFunc(d, func() {
		l.removeTimer(id)
		l.Post(func() {
			if !cancelled {
				fn()
			}
		})
	})
	l.addTimer(id, func() { stopAndDrainTimer(timer) })

	return func() {
		cancelled = true
		l.cancelTimer(id)
	}
}

// Every implements Scheduler with a clockwork ticker. Ticks that arrive while the loop
// is busy queue up rather than being coalesced.
func (l *Loop) Every(d time.Duration, fn func()) Cancel {
	id := uuid.New()
	cancelled := false
	ticker := l.clock.NewTicker(d)
	stop := make(chan struct{})
	var once sync.Once

	l.addTimer(id, func() {
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				l.Post(func() {
					if !cancelled {
						fn()
					}
				})
			case <-stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	return func() {
		cancelled = true
		l.cancelTimer(id)
	}
}

func (l *Loop) addTimer(id uuid.UUID, stop func()) {
	l.activeTimersMu.Lock()
	defer l.activeTimersMu.Unlock()
	l.activeTimers[id] = stop
}

// removeTimer forgets a timer that already fired
func (l *Loop) removeTimer(id uuid.UUID) {
	l.activeTimersMu.Lock()
	defer l.activeTimersMu.Unlock()
	delete(l.activeTimers, id)
}

// cancelTimer stops and forgets a live timer
func (l *Loop) cancelTimer(id uuid.UUID) {
	l.activeTimersMu.Lock()
	defer l.activeTimersMu.Unlock()
	if stop, exists := l.activeTimers[id]; exists {
		stop()
		delete(l.activeTimers, id)
	}
}

func (l *Loop) stopAll() {
	l.activeTimersMu.Lock()
	defer l.activeTimersMu.Unlock()
	for id, stop := range l.activeTimers {
		stop()
		log.Debug().Str("timer_id", id.String()).Msg("cancelled timer on shutdown")
	}
	l.activeTimers = make(map[uuid.UUID]func())
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
