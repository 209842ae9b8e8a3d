package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/display"
	"github.com/mcdev12/animalitos/go/internal/display/events"
	"github.com/mcdev12/animalitos/go/internal/models"
)

// DisplayProvider is the display surface the gateway serves
type DisplayProvider interface {
	Snapshot() models.View
	TrialSpin(ctx context.Context) error
	SetScheduleDate(ctx context.Context, date time.Time) error
}

// ScheduleDateRequest is the body of PUT /api/display/schedule-date
type ScheduleDateRequest struct {
	Date string `json:"date"`
}

// StateHandler handles HTTP requests for display state
type StateHandler struct {
	display DisplayProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(display DisplayProvider) *StateHandler {
	return &StateHandler{display: display}
}

// HandleGetState handles GET /api/display/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.display.Snapshot())
}

// HandleSetScheduleDate handles PUT /api/display/schedule-date
func (h *StateHandler) HandleSetScheduleDate(w http.ResponseWriter, r *http.Request) {
	var req ScheduleDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An empty date goes back to following today
	var date time.Time
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	if err := h.display.SetScheduleDate(r.Context(), date); err != nil {
		h.writeDisplayError(w, err)
		return
	}

	log.Info().Str("date", req.Date).Msg("schedule date changed by operator")
	writeJSON(w, http.StatusOK, h.display.Snapshot())
}

// HandleTrialSpin handles POST /api/display/trial-spin
func (h *StateHandler) HandleTrialSpin(w http.ResponseWriter, r *http.Request) {
	if err := h.display.TrialSpin(r.Context()); err != nil {
		h.writeDisplayError(w, err)
		return
	}

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("trial spin started by operator")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *StateHandler) writeDisplayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, display.ErrSpinInProgress), errors.Is(err, display.ErrNoUpcomingDraw):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, display.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request cancelled")
	default:
		log.Error().Err(err).Msg("display operation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func snapshotEvent(d DisplayProvider) events.Event {
	return events.New(events.EventTypeViewUpdated, time.Now(), d.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
