package display

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/animalitos/go/internal/models"
)

// DrawAPI is the read side of the lottery back office.
type DrawAPI interface {
	GetNextDraw(ctx context.Context) (*models.NextDraw, error)
	GetSchedule(ctx context.Context, date time.Time) (*models.DaySchedule, error)
}

// PollResult carries both endpoints' outcomes of one tick. Each half is applied on its own.
type PollResult struct {
	NextDraw    *models.NextDraw
	NextDrawErr error

	ScheduleDate time.Time
	Schedule     *models.DaySchedule
	ScheduleErr  error
}

// Synchronizer fetches the server's view of the draw day.
type Synchronizer struct {
	api     DrawAPI
	clock   clockwork.Clock
	metrics MetricsCollector
	timeout time.Duration
}

// NewSynchronizer creates a synchronizer. A zero timeout leaves request deadlines to ctx.
func NewSynchronizer(api DrawAPI, clock clockwork.Clock, metrics MetricsCollector, timeout time.Duration) *Synchronizer {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	return &Synchronizer{api: api, clock: clock, metrics: metrics, timeout: timeout}
}

// Fetch issues the next-draw and schedule requests in parallel. One endpoint failing
// never cancels the other; each failure lands in its half of the result. The returned
// error is set only when ctx itself ended, and the result should then be discarded.
func (s *Synchronizer) Fetch(ctx context.Context, scheduleDate time.Time) (PollResult, error) {
	res := PollResult{ScheduleDate: scheduleDate}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.NextDraw, res.NextDrawErr = s.fetchNextDraw(gctx)
		return ctx.Err()
	})
	g.Go(func() error {
		res.Schedule, res.ScheduleErr = s.FetchSchedule(gctx, scheduleDate)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("poll abandoned: %w", err)
	}
	return res, nil
}

// FetchSchedule fetches only the schedule list for date.
func (s *Synchronizer) FetchSchedule(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.clock.Now()
	ds, err := s.api.GetSchedule(ctx, date)
	s.metrics.RecordPoll(EndpointSchedule, err == nil, s.clock.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("date", date.Format(models.DateLayout)).Msg("schedule fetch failed")
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", date.Format(models.DateLayout), err)
	}
	return ds, nil
}

func (s *Synchronizer) fetchNextDraw(ctx context.Context) (*models.NextDraw, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.clock.Now()
	nd, err := s.api.GetNextDraw(ctx)
	s.metrics.RecordPoll(EndpointNextDraw, err == nil, s.clock.Since(start))
	if err != nil {
		log.Warn().Err(err).Msg("next-draw fetch failed")
		return nil, fmt.Errorf("failed to fetch next draw: %w", err)
	}
	return nd, nil
}

func (s *Synchronizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
