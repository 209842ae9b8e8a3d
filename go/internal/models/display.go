package models

import "time"

// DisplayState is the result panel the public screen is showing. Counting is only the
// startup state and the state after a no-draws day ends; once a poll has landed, the
// panel belongs to the latest result (winner, placeholder or spin) while the countdown
// keeps running beside it. Screens decide whether to show the countdown from NoDraws
// and Countdown, never from State.
type DisplayState string

const (
	DisplayStateNoUpcomingDraw     DisplayState = "NO_UPCOMING_DRAW"
	DisplayStateCounting           DisplayState = "COUNTING"
	DisplayStateSpinning           DisplayState = "SPINNING"
	DisplayStateShowingWinner      DisplayState = "SHOWING_WINNER"
	DisplayStateShowingPlaceholder DisplayState = "SHOWING_PLACEHOLDER"
)

// View is an immutable snapshot of everything a screen renders.
type View struct {
	// State drives the result panel only; see DisplayState.
	State DisplayState `json:"state"`

	NoDraws       bool          `json:"no_draws"`
	NoDrawsReason string        `json:"no_draws_reason,omitempty"`
	Upcoming      *UpcomingDraw `json:"upcoming,omitempty"`
	Countdown     int           `json:"countdown_sec"`
	CountdownText string        `json:"countdown"`

	// Frame is the outcome under the wheel pointer while spinning or settling.
	Frame *Outcome `json:"frame,omitempty"`
	Trial bool     `json:"trial,omitempty"`

	Result          *DrawResult `json:"result,omitempty"`
	WindowRemaining int         `json:"window_remaining_sec,omitempty"`

	ScheduleDate    string        `json:"schedule_date"`
	ScheduleNoDraws bool          `json:"schedule_no_draws"`
	ScheduleReason  string        `json:"schedule_reason,omitempty"`
	Schedule        []ScheduleRow `json:"schedule"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleRow is a schedule entry with its outcome hidden unless Visible.
type ScheduleRow struct {
	ScheduleEntry
	Visible bool `json:"visible"`
}

// FormatCountdown renders seconds as HH:MM:SS.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return ClockTime{Hour: seconds / 3600, Minute: seconds % 3600 / 60, Second: seconds % 60}.String()
}
