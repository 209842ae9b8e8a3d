package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the draw API (fecha=YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ClockTime is a wall-clock time of day with no date attached, as the back office
// reports draw hours ("14:00:00").
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}

// ParseClockTime accepts HH:MM:SS or HH:MM, in 24h or 12h ("02:00 PM") form.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
}

// MustParseClockTime is ParseClockTime for literals.
func MustParseClockTime(s string) ClockTime {
	ct, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return ct
}

// On returns the instant at this time of day on the calendar date of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, day.Location())
}

func (c ClockTime) IsZero() bool {
	return c == ClockTime{}
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = ClockTime{}
		return nil
	}
	ct, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// UpcomingDraw is the back office's snapshot of the next scheduled draw.
type UpcomingDraw struct {
	Code             string    `json:"code"`
	Description      string    `json:"description"`
	ScheduledTime    ClockTime `json:"scheduled_time"`
	SecondsRemaining int       `json:"seconds_remaining"`
	IsNextDay        bool      `json:"is_next_day"`
}

// DrawResult is a decided draw. Results are never mutated; a newer one replaces the
// active one only through a completed spin.
type DrawResult struct {
	OutcomeCode   string    `json:"outcome_code"`
	OutcomeName   string    `json:"outcome_name"`
	ScheduleLabel string    `json:"schedule_label"`
	ScheduledTime ClockTime `json:"scheduled_time"`
	Color         string    `json:"color,omitempty"`
}

// HasWinner reports whether the draw produced an outcome. A closed draw with no winner
// still has an identity and is shown as the "no winner" placeholder.
func (r DrawResult) HasWinner() bool {
	return strings.TrimSpace(r.OutcomeName) != ""
}

// IdentityKey identifies a result for "have we already shown this" checks.
func (r DrawResult) IdentityKey() string {
	return r.OutcomeName + "-" + r.ScheduledTime.String()
}

// EntryState is the lifecycle position of a draw hour within its day.
type EntryState string

const (
	EntryStatePlayed  EntryState = "PLAYED"
	EntryStatePending EntryState = "PENDING"
	EntryStateNext    EntryState = "NEXT"
)

// ScheduleEntry is one configured draw hour for a calendar date.
type ScheduleEntry struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	ScheduledTime ClockTime  `json:"scheduled_time"`
	OutcomeCode   string     `json:"outcome_code,omitempty"`
	OutcomeName   string     `json:"outcome_name,omitempty"`
	Color         string     `json:"color,omitempty"`
	State         EntryState `json:"state"`
}

// HasOutcome reports whether the back office has recorded a winner for the entry.
func (e ScheduleEntry) HasOutcome() bool {
	return e.OutcomeName != "" || e.OutcomeCode != ""
}

// NextDraw is the decoded answer of the next-draw endpoint.
type NextDraw struct {
	NoDraws  bool
	Reason   string
	Upcoming *UpcomingDraw
	Latest   *DrawResult
}

// DaySchedule is the decoded answer of the schedule endpoint for one date.
type DaySchedule struct {
	Date    time.Time
	NoDraws bool
	Reason  string
	Entries []ScheduleEntry
}
