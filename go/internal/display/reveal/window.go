// Package reveal decides when a draw's outcome may be shown, purely from the draw's
// scheduled time of day and the current wall clock.
package reveal

import (
	"time"

	"github.com/mcdev12/animalitos/go/internal/models"
)

const (
	// WindowLength is how long after its scheduled time a result stays on screen.
	WindowLength = 900 * time.Second

	// ScheduleBuffer hides today's schedule outcomes until this long after the draw,
	// leaving the main display time to spin before the list gives the winner away.
	ScheduleBuffer = 60 * time.Second

	// midnightSlack separates "clock slightly behind the server" from "yesterday's draw".
	midnightSlack = 12 * time.Hour
)

// Window is the reveal decision for one result at one instant.
type Window struct {
	ElapsedSeconds   int  `json:"elapsed_sec"`
	WithinWindow     bool `json:"within_window"`
	RemainingSeconds int  `json:"remaining_sec"`
}

// Expired is the negation of WithinWindow.
func (w Window) Expired() bool {
	return !w.WithinWindow
}

// Compute reconstructs the elapsed time since "today at scheduled" rather than since the
// moment the result was first observed, so late page loads land in the right place.
func Compute(scheduled models.ClockTime, now time.Time) Window {
	elapsed := ElapsedSeconds(scheduled, now)
	limit := int(WindowLength / time.Second)
	if elapsed >= limit {
		return Window{ElapsedSeconds: elapsed}
	}
	return Window{
		ElapsedSeconds:   elapsed,
		WithinWindow:     true,
		RemainingSeconds: limit - elapsed,
	}
}

// ElapsedSeconds is the whole seconds since scheduled on now's calendar day.
// A draw more than 12h in the future is taken to be yesterday's; a smaller negative
// difference is clock skew and reads as 0.
func ElapsedSeconds(scheduled models.ClockTime, now time.Time) int {
	d := now.Sub(scheduled.On(now))
	if d < -midnightSlack {
		d += 24 * time.Hour
	}
	if d < 0 {
		d = 0
	}
	return int(d / time.Second)
}

// EntryVisible applies the schedule-list rule: past dates always show their outcomes,
// future dates never do, and today's entries show once ScheduleBuffer has passed.
func EntryVisible(entry models.ScheduleEntry, date time.Time, now time.Time) bool {
	if !entry.HasOutcome() {
		return false
	}
	switch compareDates(date, now) {
	case -1:
		return true
	case 1:
		return false
	}
	return now.Sub(entry.ScheduledTime.On(now)) >= ScheduleBuffer
}

func compareDates(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return sign(ay - by)
	case am != bm:
		return sign(int(am) - int(bm))
	default:
		return sign(ad - bd)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
