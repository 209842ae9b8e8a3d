// Package events holds the display lifecycle events shared by the controller and its
// consumers (screen gateway, JetStream publisher, announcer).
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/models"
)

// EventType names a display lifecycle event.
type EventType string

const (
	EventTypeViewUpdated    EventType = "ViewUpdated"
	EventTypeSpinStarted    EventType = "SpinStarted"
	EventTypeSpinCompleted  EventType = "SpinCompleted"
	EventTypeWinnerRevealed EventType = "WinnerRevealed"
	EventTypeRevealExpired  EventType = "RevealExpired"
	EventTypeNoDraws        EventType = "NoDraws"
	EventTypeDrawsResumed   EventType = "DrawsResumed"
)

// Event is the envelope sent to every consumer.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps payload in an envelope stamped at at.
func New(eventType EventType, at time.Time, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event payload")
		data = json.RawMessage("null")
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}
}

// SpinStartedPayload is sent when a wheel run begins.
type SpinStartedPayload struct {
	RunID       string             `json:"run_id"`
	Trial       bool               `json:"trial"`
	Target      *models.DrawResult `json:"target,omitempty"`
	TotalSteps  int                `json:"total_steps"`
	WinnerIndex int                `json:"winner_index"`
	StartedAt   time.Time          `json:"started_at"`
}

// ScreenSpinStartedPayload is what screens see of a starting run. The target and
// everything it can be derived from stay out until the wheel has landed.
type ScreenSpinStartedPayload struct {
	RunID     string    `json:"run_id"`
	Trial     bool      `json:"trial"`
	StartedAt time.Time `json:"started_at"`
}

// ForScreens returns ev as public screens may receive it. SpinStarted loses its target,
// winner index and step count; every other event passes through unchanged.
func ForScreens(ev Event) Event {
	if ev.Type != EventTypeSpinStarted {
		return ev
	}
	var full SpinStartedPayload
	if err := json.Unmarshal(ev.Data, &full); err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to decode spin started payload for screens")
		ev.Data = json.RawMessage("null")
		return ev
	}
	data, err := json.Marshal(ScreenSpinStartedPayload{RunID: full.RunID, Trial: full.Trial, StartedAt: full.StartedAt})
	if err != nil {
		ev.Data = json.RawMessage("null")
		return ev
	}
	ev.Data = data
	return ev
}

// SpinCompletedPayload is sent after the settle delay of a run.
type SpinCompletedPayload struct {
	RunID       string             `json:"run_id"`
	Trial       bool               `json:"trial"`
	Target      *models.DrawResult `json:"target,omitempty"`
	Steps       int                `json:"steps"`
	CompletedAt time.Time          `json:"completed_at"`
	Duration    string             `json:"duration"`
}

// WinnerRevealedPayload is sent when a freshly spun result enters its reveal window.
type WinnerRevealedPayload struct {
	Result       models.DrawResult `json:"result"`
	ElapsedSec   int               `json:"elapsed_sec"`
	RemainingSec int               `json:"remaining_sec"`
	RevealedAt   time.Time         `json:"revealed_at"`
}

// RevealExpiredPayload is sent when the reveal window closes.
type RevealExpiredPayload struct {
	Result    models.DrawResult `json:"result"`
	ExpiredAt time.Time         `json:"expired_at"`
}

// NoDrawsPayload is sent when the back office reports no draws today.
type NoDrawsPayload struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// DrawsResumedPayload is sent when an upcoming draw reappears.
type DrawsResumedPayload struct {
	Upcoming *models.UpcomingDraw `json:"upcoming,omitempty"`
	At       time.Time            `json:"at"`
}

// ParsePayload decodes event data into the payload struct for its type.
func ParsePayload(event Event) (interface{}, error) {
	var target interface{}
	switch event.Type {
	case EventTypeViewUpdated:
		target = &models.View{}
	case EventTypeSpinStarted:
		target = &SpinStartedPayload{}
	case EventTypeSpinCompleted:
		target = &SpinCompletedPayload{}
	case EventTypeWinnerRevealed:
		target = &WinnerRevealedPayload{}
	case EventTypeRevealExpired:
		target = &RevealExpiredPayload{}
	case EventTypeNoDraws:
		target = &NoDrawsPayload{}
	case EventTypeDrawsResumed:
		target = &DrawsResumedPayload{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(event.Data, target); err != nil {
		return nil, err
	}
	return target, nil
}
