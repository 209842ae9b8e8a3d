package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "14:00:00", want: ClockTime{Hour: 14}},
		{in: " 09:30 ", want: ClockTime{Hour: 9, Minute: 30}},
		{in: "02:00 PM", want: ClockTime{Hour: 14}},
		{in: "8:15 am", want: ClockTime{Hour: 8, Minute: 15}},
		{in: "12:00:05 AM", want: ClockTime{Second: 5}},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTime_On(t *testing.T) {
	loc := time.FixedZone("VET", -4*60*60)
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, loc)

	got := MustParseClockTime("14:00:00").On(day)
	assert.Equal(t, time.Date(2026, 3, 14, 14, 0, 0, 0, loc), got)
}

func TestClockTime_JSON(t *testing.T) {
	var r DrawResult
	require.NoError(t, json.Unmarshal([]byte(`{"outcome_name":"León","scheduled_time":"14:00:00"}`), &r))
	assert.Equal(t, "León-14:00:00", r.IdentityKey())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scheduled_time":"14:00:00"`)
}

func TestIdentityKey_DistinguishesHours(t *testing.T) {
	a := DrawResult{OutcomeName: "León", ScheduledTime: MustParseClockTime("14:00")}
	b := DrawResult{OutcomeName: "León", ScheduledTime: MustParseClockTime("15:00")}
	assert.NotEqual(t, a.IdentityKey(), b.IdentityKey())
}

func TestIndexOfOutcome(t *testing.T) {
	outcomes := DefaultOutcomes()
	require.Len(t, outcomes, 38)

	assert.Equal(t, 0, IndexOfOutcome(outcomes, "Delfín"))
	assert.Equal(t, 1, IndexOfOutcome(outcomes, "ballena"))
	assert.Equal(t, 6, IndexOfOutcome(outcomes, " León "))
	assert.Equal(t, "36", outcomes[37].Code)
	assert.Equal(t, -1, IndexOfOutcome(outcomes, "Unicornio"))
	assert.Equal(t, -1, IndexOfOutcome(outcomes, ""))
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatCountdown(0))
	assert.Equal(t, "00:00:00", FormatCountdown(-5))
	assert.Equal(t, "00:09:55", FormatCountdown(595))
	assert.Equal(t, "01:00:01", FormatCountdown(3601))
}
