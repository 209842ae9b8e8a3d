package display

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type fakeTask struct {
	seq       int
	due       time.Time
	every     time.Duration
	fn        func()
	cancelled bool
}

// fakeScheduler runs deferred callbacks synchronously, in due order, when advanced.
type fakeScheduler struct {
	clock *clockwork.FakeClock
	tasks []*fakeTask
	seq   int
}

func newFakeScheduler(start time.Time) *fakeScheduler {
	return &fakeScheduler{clock: clockwork.NewFakeClockAt(start)}
}

func (f *fakeScheduler) Now() time.Time {
	return f.clock.Now()
}

func (f *fakeScheduler) After(d time.Duration, fn func()) Cancel {
	return f.add(d, 0, fn)
}

func (f *fakeScheduler) Every(d time.Duration, fn func()) Cancel {
	return f.add(d, d, fn)
}

func (f *fakeScheduler) add(d, every time.Duration, fn func()) Cancel {
	f.seq++
	t := &fakeTask{seq: f.seq, due: f.clock.Now().Add(d), every: every, fn: fn}
	f.tasks = append(f.tasks, t)
	return func() { t.cancelled = true }
}

// Advance moves the clock forward by d, firing everything that falls due on the way.
func (f *fakeScheduler) Advance(d time.Duration) {
	target := f.clock.Now().Add(d)
	for {
		t := f.next(target)
		if t == nil {
			break
		}
		if wait := t.due.Sub(f.clock.Now()); wait > 0 {
			f.clock.Advance(wait)
		}
		if t.every > 0 {
			t.due = t.due.Add(t.every)
		} else {
			t.cancelled = true
		}
		t.fn()
	}
	if rest := target.Sub(f.clock.Now()); rest > 0 {
		f.clock.Advance(rest)
	}
}

// RunUntil advances in small increments until cond holds or limit passes.
func (f *fakeScheduler) RunUntil(limit time.Duration, cond func() bool) bool {
	const step = 10 * time.Millisecond
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += step {
		if cond() {
			return true
		}
		f.Advance(step)
	}
	return cond()
}

func (f *fakeScheduler) pending() int {
	n := 0
	for _, t := range f.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (f *fakeScheduler) next(target time.Time) *fakeTask {
	var best *fakeTask
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if t.due.After(target) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			best = t
		}
	}
	f.tasks = live
	return best
}
