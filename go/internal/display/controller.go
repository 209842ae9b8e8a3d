package display

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/display/events"
	"github.com/mcdev12/animalitos/go/internal/display/reveal"
	"github.com/mcdev12/animalitos/go/internal/models"
)

var (
	ErrSpinInProgress = errors.New("a spin is already in progress")
	ErrNoUpcomingDraw = errors.New("no draws are configured for today")
	ErrNoOutcomes     = errors.New("outcome catalog is empty")
)

// trialLabel marks the synthetic result of an operator trial run.
const trialLabel = "PRUEBA"

// Notifier receives lifecycle events. Notify is called on the display loop and must not block.
type Notifier interface {
	Notify(ev events.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev events.Event)

func (f NotifierFunc) Notify(ev events.Event) { f(ev) }

// MultiNotifier fans an event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ev events.Event) {
	for _, n := range m {
		n.Notify(ev)
	}
}

// ControllerConfig holds the controller's static inputs.
type ControllerConfig struct {
	Outcomes []models.Outcome
	Spin     SpinTiming
	Location *time.Location
}

// spinRun is the bookkeeping of the single active wheel run.
type spinRun struct {
	id        uuid.UUID
	spin      *Spin
	target    *models.DrawResult
	trial     bool
	frame     models.Outcome
	startedAt time.Time
	cancel    Cancel
}

// Controller is the display state machine. Every method except Snapshot must be called
// from the scheduler's execution context; Snapshot may be called from anywhere.
//
// The state tracks the result panel. A fresh countdown baseline does not move the panel
// back to Counting once a result or placeholder is showing; the countdown is ticked and
// published independently in every state except NoUpcomingDraw.
type Controller struct {
	sched    Scheduler
	outcomes []models.Outcome
	timing   SpinTiming
	loc      *time.Location
	notifier Notifier
	metrics  MetricsCollector
	pick     func(n int) int

	state         models.DisplayState
	noDraws       bool
	noDrawsReason string
	upcoming      *models.UpcomingDraw
	countdown     *Countdown

	// animating is the one-run-at-a-time guard; checked and set inside a single callback.
	animating bool
	run       *spinRun

	// lastKey is the identity of the most recent real result handed to the animator.
	lastKey      string
	active       *models.DrawResult
	window       reveal.Window
	revealCancel Cancel

	// scheduleDate follows today unless an operator pinned another date.
	scheduleDate   time.Time
	schedulePinned bool
	schedule       models.DaySchedule

	mu          sync.RWMutex
	view        models.View
	viewEntries []models.ScheduleEntry
}

// NewController creates a controller in the Counting state.
func NewController(sched Scheduler, cfg ControllerConfig, notifier Notifier, metrics MetricsCollector) *Controller {
	if notifier == nil {
		notifier = MultiNotifier(nil)
	}
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	c := &Controller{
		sched:    sched,
		outcomes: cfg.Outcomes,
		timing:   cfg.Spin,
		loc:      loc,
		notifier: notifier,
		metrics:  metrics,
		pick:     rand.Intn,
		state:    models.DisplayStateCounting,
	}
	c.countdown = NewCountdown(sched, func(int) { c.publish() })
	c.scheduleDate = c.today()
	c.schedule = models.DaySchedule{Date: c.scheduleDate}
	return c
}

// Start publishes the initial view.
func (c *Controller) Start() {
	c.state = models.DisplayStateCounting
	c.publish()
}

// Stop cancels every timer the controller owns, including an in-flight spin step.
func (c *Controller) Stop() {
	c.countdown.Stop()
	c.cancelReveal()
	if c.run != nil && c.run.cancel != nil {
		c.run.cancel()
	}
}

// State returns the current display state.
func (c *Controller) State() models.DisplayState {
	return c.state
}

// Animating reports whether a spin run is active.
func (c *Controller) Animating() bool {
	return c.animating
}

// ScheduleDate is the date the schedule list is filtered on.
func (c *Controller) ScheduleDate() time.Time {
	return c.scheduleDate
}

// RollScheduleDate moves an unpinned schedule filter onto today and returns the date to
// fetch. Crossing midnight drops the previous day's list.
func (c *Controller) RollScheduleDate() time.Time {
	if c.schedulePinned {
		return c.scheduleDate
	}
	if today := c.today(); !today.Equal(c.scheduleDate) {
		log.Info().
			Str("from", c.scheduleDate.Format(models.DateLayout)).
			Str("to", today.Format(models.DateLayout)).
			Msg("schedule date rolled over")
		c.scheduleDate = today
		c.schedule = models.DaySchedule{Date: today}
		c.publish()
	}
	return c.scheduleDate
}

// SetScheduleDate pins the schedule filter to date; a zero date unpins it so the list
// follows today again. The old list is dropped until the new date's fetch lands.
func (c *Controller) SetScheduleDate(date time.Time) {
	if date.IsZero() {
		c.schedulePinned = false
		c.scheduleDate = c.today()
	} else {
		y, m, d := date.Date()
		c.schedulePinned = true
		c.scheduleDate = time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	}
	c.schedule = models.DaySchedule{Date: c.scheduleDate}
	c.publish()
}

// ApplyNextDraw reconciles a next-draw poll with local state. Failed polls and polls that
// land while the wheel is spinning leave the screen untouched.
func (c *Controller) ApplyNextDraw(nd *models.NextDraw, err error) {
	if err != nil {
		log.Warn().Err(err).Str("state", string(c.state)).Msg("next-draw poll failed, keeping current display")
		return
	}
	if nd == nil {
		return
	}
	if c.animating {
		c.metrics.RecordWithheld()
		log.Debug().Str("run_id", c.run.id.String()).Msg("spin in progress, withholding next-draw poll")
		return
	}

	if nd.NoDraws {
		c.enterNoDraws(nd.Reason)
		return
	}

	if c.noDraws {
		c.noDraws = false
		c.noDrawsReason = ""
		c.state = models.DisplayStateCounting
		c.emit(events.EventTypeDrawsResumed, events.DrawsResumedPayload{Upcoming: nd.Upcoming, At: c.sched.Now()})
		log.Info().Msg("draws available again")
	}

	c.upcoming = nd.Upcoming
	if nd.Upcoming != nil {
		c.countdown.Reset(nd.Upcoming.SecondsRemaining)
	} else {
		c.countdown.Reset(0)
	}

	if nd.Latest == nil {
		// Nothing drawn yet today
		if c.state == models.DisplayStateCounting {
			c.showActive(false)
		}
		c.publish()
		return
	}

	key := nd.Latest.IdentityKey()
	if key == c.lastKey {
		if c.state == models.DisplayStateCounting {
			c.showActive(false)
		}
		c.publish()
		return
	}

	// A draw that closed without a winner still gets its run, landing on the placeholder
	var target *models.DrawResult
	if nd.Latest.HasWinner() {
		latest := *nd.Latest
		target = &latest
	}
	if err := c.startSpin(target, false); err != nil {
		log.Error().Err(err).Str("result", key).Msg("failed to start spin for new result")
		c.publish()
		return
	}
	c.lastKey = key
}

// ApplySchedule replaces the schedule list with the server's snapshot for the selected date.
func (c *Controller) ApplySchedule(ds *models.DaySchedule, err error) {
	if err != nil {
		log.Warn().Err(err).Str("date", c.scheduleDate.Format(models.DateLayout)).Msg("schedule poll failed, keeping current list")
		return
	}
	if ds == nil {
		return
	}
	if ds.Date.Format(models.DateLayout) != c.scheduleDate.Format(models.DateLayout) {
		log.Debug().
			Str("got", ds.Date.Format(models.DateLayout)).
			Str("want", c.scheduleDate.Format(models.DateLayout)).
			Msg("dropping schedule for a date no longer selected")
		return
	}
	c.schedule = *ds
	c.schedule.Date = c.scheduleDate
	c.publish()
}

// TrialSpin starts an operator test run landing on a random outcome. It never changes
// the active result.
func (c *Controller) TrialSpin() error {
	if c.noDraws {
		return ErrNoUpcomingDraw
	}
	if c.animating {
		return ErrSpinInProgress
	}
	if len(c.outcomes) == 0 {
		return ErrNoOutcomes
	}
	o := c.outcomes[c.pick(len(c.outcomes))]
	now := c.sched.Now().In(c.loc)
	target := &models.DrawResult{
		OutcomeCode:   o.Code,
		OutcomeName:   o.Name,
		ScheduleLabel: trialLabel,
		ScheduledTime: models.ClockTime{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()},
		Color:         o.Color,
	}
	return c.startSpin(target, true)
}

// startSpin begins a wheel run towards target; a nil target lands on the "no winner" placeholder.
func (c *Controller) startSpin(target *models.DrawResult, trial bool) error {
	if c.animating {
		return ErrSpinInProgress
	}
	if len(c.outcomes) == 0 {
		return ErrNoOutcomes
	}
	c.animating = true

	winner := 0
	if target != nil {
		winner = models.IndexOfOutcome(c.outcomes, target.OutcomeName)
		if winner < 0 {
			log.Warn().
				Str("outcome_name", target.OutcomeName).
				Str("outcome_code", target.OutcomeCode).
				Msg("winner not in outcome catalog, landing on first outcome")
			winner = 0
		}
	}

	c.cancelReveal()
	spin := NewSpin(len(c.outcomes), winner, c.timing)
	c.run = &spinRun{
		id:        uuid.New(),
		spin:      spin,
		target:    target,
		trial:     trial,
		frame:     c.outcomes[spin.Frame()],
		startedAt: c.sched.Now(),
	}
	c.state = models.DisplayStateSpinning

	log.Info().
		Str("run_id", c.run.id.String()).
		Bool("trial", trial).
		Int("total_steps", spin.TotalSteps).
		Int("winner_index", winner).
		Msg("spin started")
	c.emit(events.EventTypeSpinStarted, events.SpinStartedPayload{
		RunID:       c.run.id.String(),
		Trial:       trial,
		Target:      target,
		TotalSteps:  spin.TotalSteps,
		WinnerIndex: winner,
		StartedAt:   c.run.startedAt,
	})
	c.publish()

	c.run.cancel = c.sched.After(spin.Delay, c.stepSpin)
	return nil
}

// stepSpin shows the next frame and schedules the one after it.
func (c *Controller) stepSpin() {
	run := c.run
	if run == nil {
		return
	}
	idx, done := run.spin.Advance()
	run.frame = c.outcomes[idx]

	if !done {
		c.publish()
		run.cancel = c.sched.After(run.spin.Delay, c.stepSpin)
		return
	}

	if run.target == nil {
		c.finishSpin()
		return
	}
	run.frame = models.Outcome{Code: run.target.OutcomeCode, Name: run.target.OutcomeName, Color: run.target.Color}
	c.publish()
	run.cancel = c.sched.After(c.timing.Settle, c.finishSpin)
}

// finishSpin releases the run guard and hands the result to the reveal window.
func (c *Controller) finishSpin() {
	run := c.run
	if run == nil {
		return
	}
	c.run = nil
	c.animating = false

	now := c.sched.Now()
	duration := now.Sub(run.startedAt)
	c.metrics.RecordSpin(run.trial, run.spin.CurrentStep, duration)
	log.Info().
		Str("run_id", run.id.String()).
		Bool("trial", run.trial).
		Int("steps", run.spin.CurrentStep).
		Dur("duration", duration).
		Msg("spin completed")
	c.emit(events.EventTypeSpinCompleted, events.SpinCompletedPayload{
		RunID:       run.id.String(),
		Trial:       run.trial,
		Target:      run.target,
		Steps:       run.spin.CurrentStep,
		CompletedAt: now,
		Duration:    duration.String(),
	})

	switch {
	case run.trial:
		c.showActive(false)
	case run.target == nil:
		c.window = reveal.Window{}
		c.state = models.DisplayStateShowingPlaceholder
	default:
		c.active = run.target
		c.showActive(true)
	}
	c.publish()
}

// showActive derives the result panel from the active result's reveal window,
// reconstructing elapsed time from its scheduled hour.
func (c *Controller) showActive(fresh bool) {
	c.cancelReveal()
	if c.active == nil {
		c.window = reveal.Window{}
		c.state = models.DisplayStateShowingPlaceholder
		return
	}

	now := c.sched.Now().In(c.loc)
	c.window = reveal.Compute(c.active.ScheduledTime, now)
	if !c.window.WithinWindow {
		c.state = models.DisplayStateShowingPlaceholder
		log.Info().
			Str("result", c.active.IdentityKey()).
			Int("elapsed_sec", c.window.ElapsedSeconds).
			Msg("result outside reveal window, showing placeholder")
		return
	}

	c.state = models.DisplayStateShowingWinner
	c.revealCancel = c.sched.Every(time.Second, c.checkReveal)
	if fresh {
		c.emit(events.EventTypeWinnerRevealed, events.WinnerRevealedPayload{
			Result:       *c.active,
			ElapsedSec:   c.window.ElapsedSeconds,
			RemainingSec: c.window.RemainingSeconds,
			RevealedAt:   now,
		})
	}
}

// checkReveal runs once per second while a winner is shown and flips to the
// placeholder exactly once.
func (c *Controller) checkReveal() {
	if c.active == nil || c.state != models.DisplayStateShowingWinner {
		c.cancelReveal()
		return
	}
	now := c.sched.Now().In(c.loc)
	c.window = reveal.Compute(c.active.ScheduledTime, now)
	if !c.window.WithinWindow {
		c.cancelReveal()
		c.state = models.DisplayStateShowingPlaceholder
		log.Info().Str("result", c.active.IdentityKey()).Msg("reveal window expired")
		c.emit(events.EventTypeRevealExpired, events.RevealExpiredPayload{Result: *c.active, ExpiredAt: now})
	}
	c.publish()
}

func (c *Controller) cancelReveal() {
	if c.revealCancel != nil {
		c.revealCancel()
		c.revealCancel = nil
	}
}

func (c *Controller) enterNoDraws(reason string) {
	wasNoDraws := c.noDraws
	c.noDraws = true
	c.noDrawsReason = reason
	c.upcoming = nil
	c.countdown.Reset(0)
	c.cancelReveal()
	c.state = models.DisplayStateNoUpcomingDraw
	if !wasNoDraws {
		log.Info().Str("reason", reason).Msg("no draws configured today")
		c.emit(events.EventTypeNoDraws, events.NoDrawsPayload{Reason: reason, At: c.sched.Now()})
	}
	c.publish()
}

func (c *Controller) today() time.Time {
	y, m, d := c.sched.Now().In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

func (c *Controller) emit(eventType events.EventType, payload interface{}) {
	c.notifier.Notify(events.New(eventType, c.sched.Now(), payload))
}

// publish freezes the current state into a View and hands it to readers and notifiers.
func (c *Controller) publish() {
	now := c.sched.Now()
	v := models.View{
		State:         c.state,
		NoDraws:       c.noDraws,
		NoDrawsReason: c.noDrawsReason,
		Countdown:     c.countdown.Remaining(),
		CountdownText: models.FormatCountdown(c.countdown.Remaining()),

		ScheduleDate:    c.scheduleDate.Format(models.DateLayout),
		ScheduleNoDraws: c.schedule.NoDraws,
		ScheduleReason:  c.schedule.Reason,
		UpdatedAt:       now,
	}
	if c.upcoming != nil && !c.noDraws {
		up := *c.upcoming
		v.Upcoming = &up
	}
	if c.run != nil {
		frame := c.run.frame
		v.Frame = &frame
		v.Trial = c.run.trial
	}
	if c.state == models.DisplayStateShowingWinner && c.active != nil {
		result := *c.active
		v.Result = &result
		v.WindowRemaining = c.window.RemainingSeconds
	}

	entries := make([]models.ScheduleEntry, len(c.schedule.Entries))
	copy(entries, c.schedule.Entries)

	c.mu.Lock()
	c.view = v
	c.viewEntries = entries
	c.mu.Unlock()

	v.Schedule = scheduleRows(entries, c.scheduleDate, now.In(c.loc))
	c.notifier.Notify(events.New(events.EventTypeViewUpdated, now, v))
}

// scheduleRows pairs each entry with its visibility and strips the outcome from rows
// that may not show it yet, so hidden winners never reach a screen.
func scheduleRows(entries []models.ScheduleEntry, date, now time.Time) []models.ScheduleRow {
	rows := make([]models.ScheduleRow, len(entries))
	for i, e := range entries {
		row := models.ScheduleRow{ScheduleEntry: e, Visible: reveal.EntryVisible(e, date, now)}
		if !row.Visible {
			row.OutcomeCode = ""
			row.OutcomeName = ""
			row.Color = ""
		}
		rows[i] = row
	}
	return rows
}

// Snapshot returns the latest published view with schedule visibility evaluated now.
func (c *Controller) Snapshot() models.View {
	c.mu.RLock()
	v := c.view
	entries := c.viewEntries
	c.mu.RUnlock()

	v.Schedule = scheduleRows(entries, c.scheduleDateOf(v), c.sched.Now().In(c.loc))
	return v
}

func (c *Controller) scheduleDateOf(v models.View) time.Time {
	date, err := time.ParseInLocation(models.DateLayout, v.ScheduleDate, c.loc)
	if err != nil {
		return c.today()
	}
	return date
}
