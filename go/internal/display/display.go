package display

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/models"
)

// ErrStopped is returned by operator calls once the display loop has exited.
var ErrStopped = errors.New("display is not running")

// Config tunes the display service.
type Config struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Spin           SpinTiming
	Outcomes       []models.Outcome
	Location       *time.Location
}

// DefaultConfig returns the production timings with the built-in catalog.
func DefaultConfig() Config {
	return Config{
		PollInterval:   10 * time.Second,
		RequestTimeout: 15 * time.Second,
		Spin:           DefaultSpinTiming(),
		Outcomes:       models.DefaultOutcomes(),
		Location:       time.Local,
	}
}

// Display is the long-running reveal service: it polls the back office and drives the
// controller on a single loop goroutine.
type Display struct {
	cfg   Config
	loop  *Loop
	sync  *Synchronizer
	ctrl  *Controller
	clock clockwork.Clock

	// polling is only touched on the loop
	polling bool
	ctx     context.Context
}

// New wires a display. notifier receives every controller event on the loop goroutine.
func New(api DrawAPI, notifier Notifier, metrics MetricsCollector, clock clockwork.Clock, cfg Config) *Display {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if len(cfg.Outcomes) == 0 {
		cfg.Outcomes = models.DefaultOutcomes()
	}
	loop := NewLoop(clock)
	return &Display{
		cfg:   cfg,
		loop:  loop,
		sync:  NewSynchronizer(api, clock, metrics, cfg.RequestTimeout),
		ctrl:  NewController(loop, ControllerConfig{Outcomes: cfg.Outcomes, Spin: cfg.Spin, Location: cfg.Location}, notifier, metrics),
		clock: clock,
	}
}

// Run starts polling and blocks until ctx is cancelled.
func (d *Display) Run(ctx context.Context) {
	d.ctx = ctx
	d.loop.Post(func() {
		d.ctrl.Start()
		d.poll()
		d.loop.Every(d.cfg.PollInterval, d.poll)
	})

	log.Info().
		Dur("poll_interval", d.cfg.PollInterval).
		Int("outcomes", len(d.cfg.Outcomes)).
		Msg("display started")

	d.loop.Run(ctx)
	d.ctrl.Stop()
	log.Info().Msg("display stopped")
}

// poll fetches off the loop and posts the results back. A tick is skipped while the
// previous fetch is still in flight.
func (d *Display) poll() {
	if d.polling {
		log.Debug().Msg("previous poll still in flight, skipping tick")
		return
	}
	d.polling = true
	date := d.ctrl.RollScheduleDate()

	go func() {
		res, err := d.sync.Fetch(d.ctx, date)
		if err != nil {
			log.Debug().Err(err).Msg("poll abandoned")
			d.loop.Post(func() { d.polling = false })
			return
		}
		d.loop.Post(func() {
			d.polling = false
			d.ctrl.ApplyNextDraw(res.NextDraw, res.NextDrawErr)
			d.ctrl.ApplySchedule(res.Schedule, res.ScheduleErr)
		})
	}()
}

// Snapshot returns the latest view. Safe from any goroutine.
func (d *Display) Snapshot() models.View {
	return d.ctrl.Snapshot()
}

// TrialSpin asks the loop to start an operator test run.
func (d *Display) TrialSpin(ctx context.Context) error {
	return d.call(ctx, d.ctrl.TrialSpin)
}

// SetScheduleDate pins the schedule filter and refreshes the list immediately. A zero
// date returns the filter to today.
func (d *Display) SetScheduleDate(ctx context.Context, date time.Time) error {
	return d.call(ctx, func() error {
		d.ctrl.SetScheduleDate(date)
		selected := d.ctrl.ScheduleDate()
		go func() {
			ds, err := d.sync.FetchSchedule(d.ctx, selected)
			d.loop.Post(func() { d.ctrl.ApplySchedule(ds, err) })
		}()
		return nil
	})
}

// call runs fn on the loop and waits for its result.
func (d *Display) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !d.loop.Post(func() { result <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-d.loop.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
