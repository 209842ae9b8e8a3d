package display

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/animalitos/go/internal/models"
)

type fakeDrawAPI struct {
	nextDraw    func(ctx context.Context) (*models.NextDraw, error)
	schedule    func(ctx context.Context, date time.Time) (*models.DaySchedule, error)
	nextCalls   atomic.Int32
	schedCalls  atomic.Int32
	lastSchedOn atomic.Value
}

func (f *fakeDrawAPI) GetNextDraw(ctx context.Context) (*models.NextDraw, error) {
	f.nextCalls.Add(1)
	if f.nextDraw == nil {
		return &models.NextDraw{}, nil
	}
	return f.nextDraw(ctx)
}

func (f *fakeDrawAPI) GetSchedule(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	f.schedCalls.Add(1)
	f.lastSchedOn.Store(date)
	if f.schedule == nil {
		return &models.DaySchedule{Date: date}, nil
	}
	return f.schedule(ctx, date)
}

func TestSynchronizer_FetchBoth(t *testing.T) {
	clock := clockwork.NewFakeClock()
	metrics := NewCounterMetrics(clock.Now)
	api := &fakeDrawAPI{
		nextDraw: func(context.Context) (*models.NextDraw, error) {
			return nextDraw(120, nil), nil
		},
	}
	s := NewSynchronizer(api, clock, metrics, time.Second)
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	res, err := s.Fetch(context.Background(), date)
	require.NoError(t, err)

	require.NoError(t, res.NextDrawErr)
	require.NoError(t, res.ScheduleErr)
	require.NotNil(t, res.NextDraw)
	assert.Equal(t, 120, res.NextDraw.Upcoming.SecondsRemaining)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, date, res.ScheduleDate)
	assert.Equal(t, date, api.lastSchedOn.Load())
	assert.Equal(t, uint64(1), metrics.Endpoint(EndpointNextDraw).Successes)
	assert.Equal(t, uint64(1), metrics.Endpoint(EndpointSchedule).Successes)
}

func TestSynchronizer_OneEndpointFailingDoesNotBlockTheOther(t *testing.T) {
	clock := clockwork.NewFakeClock()
	metrics := NewCounterMetrics(clock.Now)
	boom := errors.New("connection refused")
	api := &fakeDrawAPI{
		nextDraw: func(context.Context) (*models.NextDraw, error) { return nil, boom },
	}
	s := NewSynchronizer(api, clock, metrics, 0)

	res, err := s.Fetch(context.Background(), time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, res.NextDrawErr, boom)
	assert.Nil(t, res.NextDraw)
	assert.NoError(t, res.ScheduleErr)
	assert.NotNil(t, res.Schedule)
	assert.Equal(t, 1, metrics.Endpoint(EndpointNextDraw).ConsecutiveFailures)
	assert.Equal(t, 0, metrics.Endpoint(EndpointSchedule).ConsecutiveFailures)
}

func TestSynchronizer_AppliesRequestTimeout(t *testing.T) {
	clock := clockwork.NewRealClock()
	api := &fakeDrawAPI{
		schedule: func(ctx context.Context, _ time.Time) (*models.DaySchedule, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewSynchronizer(api, clock, nil, 20*time.Millisecond)

	_, err := s.FetchSchedule(context.Background(), time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), api.schedCalls.Load())
}

func TestSynchronizer_CancelledRunIsReported(t *testing.T) {
	clock := clockwork.NewRealClock()
	api := &fakeDrawAPI{
		nextDraw: func(ctx context.Context) (*models.NextDraw, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewSynchronizer(api, clock, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res, err := s.Fetch(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, res.NextDrawErr, context.Canceled)
}
