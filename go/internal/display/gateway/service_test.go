package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/animalitos/go/internal/display"
	"github.com/mcdev12/animalitos/go/internal/display/events"
	"github.com/mcdev12/animalitos/go/internal/models"
)

type fakeDisplay struct {
	mu        sync.Mutex
	view      models.View
	trialErr  error
	trials    int
	dates     []time.Time
	connected bool
}

func (f *fakeDisplay) Snapshot() models.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeDisplay) TrialSpin(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trials++
	return f.trialErr
}

func (f *fakeDisplay) SetScheduleDate(_ context.Context, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	f.view.ScheduleDate = date.Format(models.DateLayout)
	return nil
}

func (f *fakeDisplay) IsConnected() bool { return f.connected }

func (f *fakeDisplay) setTrialErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trialErr = err
}

func (f *fakeDisplay) trialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trials
}

func (f *fakeDisplay) scheduleDates() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.dates...)
}

type gatewayFixture struct {
	display *fakeDisplay
	metrics *display.CounterMetrics
	cm      *ConnectionManager
	server  *httptest.Server
}

func newGateway(t *testing.T, token string) *gatewayFixture {
	t.Helper()
	fd := &fakeDisplay{
		view:      models.View{State: models.DisplayStateCounting, Countdown: 90, CountdownText: "00:01:30", ScheduleDate: "2026-03-14"},
		connected: true,
	}
	metrics := display.NewCounterMetrics(time.Now)
	cfg := DefaultConfig()
	cfg.OperatorToken = token
	cm := NewConnectionManager(cfg.ConnectionConfig)
	svc := NewService(cfg, cm, fd, metrics, fd)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()

	srv := httptest.NewServer(svc.Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &gatewayFixture{display: fd, metrics: metrics, cm: cm, server: srv}
}

func (g *gatewayFixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, g.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetState(t *testing.T) {
	g := newGateway(t, "op")

	resp := g.do(t, http.MethodGet, "/api/display/state", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, models.DisplayStateCounting, v.State)
	assert.Equal(t, "00:01:30", v.CountdownText)
}

func TestTrialSpin_Auth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{name: "missing header", configured: "op", sent: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", configured: "op", sent: "nope", wantStatus: http.StatusUnauthorized},
		{name: "not configured", configured: "", sent: "anything", wantStatus: http.StatusForbidden},
		{name: "valid", configured: "op", sent: "op", wantStatus: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, tt.configured)
			resp := g.do(t, http.MethodPost, "/api/display/trial-spin", tt.sent, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusAccepted {
				assert.Equal(t, 1, g.display.trialCount())
			} else {
				assert.Equal(t, 0, g.display.trialCount())
			}
		})
	}
}

func TestTrialSpin_Conflict(t *testing.T) {
	g := newGateway(t, "op")

	g.display.setTrialErr(display.ErrSpinInProgress)
	assert.Equal(t, http.StatusConflict, g.do(t, http.MethodPost, "/api/display/trial-spin", "op", "").StatusCode)

	g.display.setTrialErr(display.ErrNoUpcomingDraw)
	assert.Equal(t, http.StatusConflict, g.do(t, http.MethodPost, "/api/display/trial-spin", "op", "").StatusCode)

	g.display.setTrialErr(display.ErrStopped)
	assert.Equal(t, http.StatusServiceUnavailable, g.do(t, http.MethodPost, "/api/display/trial-spin", "op", "").StatusCode)
}

func TestSetScheduleDate(t *testing.T) {
	g := newGateway(t, "op")

	resp := g.do(t, http.MethodPut, "/api/display/schedule-date", "op", `{"date":"13/03/2026"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = g.do(t, http.MethodPut, "/api/display/schedule-date", "op", `{"date":"2026-03-13"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "2026-03-13", v.ScheduleDate)
	dates := g.display.scheduleDates()
	require.Len(t, dates, 1)
	assert.Equal(t, "2026-03-13", dates[0].Format(models.DateLayout))

	resp = g.do(t, http.MethodPut, "/api/display/schedule-date", "op", `{"date":""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dates = g.display.scheduleDates()
	require.Len(t, dates, 2)
	assert.True(t, dates[1].IsZero(), "an empty date unpins the filter")
}

func TestHealth(t *testing.T) {
	g := newGateway(t, "op")

	resp := g.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	g.metrics.RecordPoll(display.EndpointSchedule, false, time.Millisecond)
	for i := 0; i < 2; i++ {
		g.metrics.RecordPoll(display.EndpointNextDraw, false, time.Millisecond)
	}
	resp = g.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "below the failure threshold")

	g.metrics.RecordPoll(display.EndpointNextDraw, false, time.Millisecond)
	resp = g.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.False(t, status.Healthy)
	assert.Equal(t, 3, status.Endpoints[display.EndpointNextDraw].ConsecutiveFailures)
	assert.Len(t, status.Errors, 2)
	require.NotNil(t, status.PublisherConnected)
	assert.True(t, *status.PublisherConnected)

	g.metrics.RecordPoll(display.EndpointNextDraw, true, time.Millisecond)
	assert.Equal(t, http.StatusOK, g.do(t, http.MethodGet, "/health", "", "").StatusCode)
}

func TestMetrics(t *testing.T) {
	g := newGateway(t, "op")
	g.metrics.RecordSpin(false, 120, 15*time.Second)

	resp := g.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "display_healthy 1")
	assert.Contains(t, string(body), "display_screens_connected 0")
	assert.Contains(t, string(body), "display_spin_steps_total 120")
}

func TestWebSocket_SnapshotThenBroadcast(t *testing.T) {
	g := newGateway(t, "op")

	wsURL := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/display?screen_id=lobby"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first events.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, events.EventTypeViewUpdated, first.Type)
	payload, err := events.ParsePayload(first)
	require.NoError(t, err)
	assert.Equal(t, 90, payload.(*models.View).Countdown)

	assert.Eventually(t, func() bool {
		return g.cm.GetConnectionStats().TotalConnections == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"lobby"}, g.cm.GetConnectionStats().Screens)

	g.cm.Notify(events.New(events.EventTypeNoDraws, time.Now(), events.NoDrawsPayload{Reason: "Feriado"}))

	var next events.Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, events.EventTypeNoDraws, next.Type)

	resp := g.do(t, http.MethodGet, "/ws/stats", "", "")
	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
}

func TestWebSocket_SpinTargetHiddenUntilCompleted(t *testing.T) {
	g := newGateway(t, "op")

	wsURL := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/display?screen_id=lobby"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot events.Event
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Eventually(t, func() bool {
		return g.cm.GetConnectionStats().TotalConnections == 1
	}, time.Second, 5*time.Millisecond)

	now := time.Now()
	tigre := &models.DrawResult{OutcomeCode: "10", OutcomeName: "Tigre", ScheduledTime: models.MustParseClockTime("14:00:00")}
	delfin := models.Outcome{Code: "0", Name: "Delfín"}

	g.cm.Notify(events.New(events.EventTypeSpinStarted, now, events.SpinStartedPayload{
		RunID: "run-1", Target: tigre, TotalSteps: 125, WinnerIndex: 11, StartedAt: now,
	}))
	g.cm.Notify(events.New(events.EventTypeViewUpdated, now, models.View{State: models.DisplayStateSpinning, Frame: &delfin}))
	g.cm.Notify(events.New(events.EventTypeSpinCompleted, now, events.SpinCompletedPayload{RunID: "run-1", Target: tigre}))

	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev events.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		if ev.Type == events.EventTypeSpinCompleted {
			assert.Contains(t, string(raw), "Tigre")
			break
		}
		assert.NotContains(t, string(raw), "Tigre", "%s broadcast before the wheel landed", ev.Type)
		assert.NotContains(t, string(raw), "winner_index")
		assert.NotContains(t, string(raw), "total_steps")
	}
}
