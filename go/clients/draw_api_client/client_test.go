package draw_api_client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/animalitos/go/clients"
	"github.com/mcdev12/animalitos/go/internal/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) *DrawApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDrawApiClient(srv.URL+"/", "secret", time.UTC)
}

func TestGetNextDraw(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, NextDrawEndpoint, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"proximo_sorteo": {"codigo": 15, "descripcion": "03:00 PM", "hora": "15:00:00", "segundos_restantes": 1800, "es_dia_siguiente": false},
				"ultimo_resultado": {"codigo_animal": "5", "nombre_animal": " León ", "sorteo": "02:00 PM", "hora": "14:00:00", "color": "red"}
			}
		}`))
	})

	nd, err := client.GetNextDraw(context.Background())
	require.NoError(t, err)
	assert.False(t, nd.NoDraws)
	require.NotNil(t, nd.Upcoming)
	assert.Equal(t, "15", nd.Upcoming.Code)
	assert.Equal(t, 1800, nd.Upcoming.SecondsRemaining)
	assert.Equal(t, models.MustParseClockTime("15:00:00"), nd.Upcoming.ScheduledTime)
	require.NotNil(t, nd.Latest)
	assert.Equal(t, "León", nd.Latest.OutcomeName)
	assert.Equal(t, "León-14:00:00", nd.Latest.IdentityKey())
}

func TestGetNextDraw_NoResultYet(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "data": {"proximo_sorteo": {"codigo": "8", "hora": "08:00 AM", "segundos_restantes": -4}, "ultimo_resultado": null}}`))
	})

	nd, err := client.GetNextDraw(context.Background())
	require.NoError(t, err)
	require.NotNil(t, nd.Upcoming)
	assert.Equal(t, 0, nd.Upcoming.SecondsRemaining, "negative countdowns are clamped")
	assert.Equal(t, models.MustParseClockTime("08:00"), nd.Upcoming.ScheduledTime)
	assert.Nil(t, nd.Latest)
}

func TestGetNextDraw_SinSorteos(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "sin_sorteos": true, "motivo": "Día feriado"}`))
	})

	nd, err := client.GetNextDraw(context.Background())
	require.NoError(t, err)
	assert.True(t, nd.NoDraws)
	assert.Equal(t, "Día feriado", nd.Reason)
	assert.Nil(t, nd.Upcoming)
}

func TestGetNextDraw_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "success false",
			status: http.StatusOK,
			body:   `{"success": false, "message": "token expirado"}`,
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsuccessful)
				assert.Contains(t, err.Error(), "token expirado")
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `upstream down`,
			checkFn: func(t *testing.T, err error) {
				var statusErr *clients.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"success": tru`,
			checkFn: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to unmarshal response")
			},
		},
		{
			name:   "bad hour",
			status: http.StatusOK,
			body:   `{"success": true, "data": {"proximo_sorteo": {"hora": "noon"}}}`,
			checkFn: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "proximo_sorteo")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.GetNextDraw(context.Background())
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestGetSchedule(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ScheduleEndpoint, r.URL.Path)
		assert.Equal(t, "2026-03-14", r.URL.Query().Get(DateParam))
		_, _ = w.Write([]byte(`{"success": true, "data": [
			{"id": 1, "sorteo": "09:00 AM", "hora": "09:00:00", "codigo_animal": "12", "nombre_animal": "Caballo", "estado": "JUGADO"},
			{"id": "2", "sorteo": "10:00 AM", "hora": "10:00:00", "codigo_animal": null, "nombre_animal": "", "estado": "PRÓXIMO"},
			{"id": 3, "sorteo": "??", "hora": "", "estado": "PENDIENTE"},
			{"id": 4, "sorteo": "11:00 AM", "hora": "11:00", "estado": "PENDIENTE"}
		]}`))
	})

	ds, err := client.GetSchedule(context.Background(), time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", ds.Date.Format(models.DateLayout))
	require.Len(t, ds.Entries, 3, "malformed entries are skipped")

	assert.Equal(t, "1", ds.Entries[0].ID)
	assert.Equal(t, models.EntryStatePlayed, ds.Entries[0].State)
	assert.True(t, ds.Entries[0].HasOutcome())

	assert.Equal(t, "2", ds.Entries[1].ID)
	assert.Equal(t, models.EntryStateNext, ds.Entries[1].State)
	assert.False(t, ds.Entries[1].HasOutcome())

	assert.Equal(t, models.EntryStatePending, ds.Entries[2].State)
}

func TestGetSchedule_SinSorteos(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "sin_sorteos": true, "motivo": "No hay sorteos para esta fecha", "data": []}`))
	})

	ds, err := client.GetSchedule(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ds.NoDraws)
	assert.Equal(t, "No hay sorteos para esta fecha", ds.Reason)
	assert.Empty(t, ds.Entries)
}

func TestGetSchedule_ContextCancelled(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetSchedule(ctx, time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetNextDraw_ClosedWithoutWinner(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "data": {"proximo_sorteo": {"codigo": "15", "hora": "15:00:00", "segundos_restantes": 3500}, "ultimo_resultado": {"codigo_animal": null, "nombre_animal": "", "sorteo": "02:00 PM", "hora": "14:00:00"}}}`))
	})

	nd, err := client.GetNextDraw(context.Background())
	require.NoError(t, err)
	require.NotNil(t, nd.Latest)
	assert.False(t, nd.Latest.HasWinner())
	assert.Equal(t, "-14:00:00", nd.Latest.IdentityKey())
}
