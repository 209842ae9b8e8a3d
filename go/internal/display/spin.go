package display

import "time"

// SpinTiming shapes the wheel's deceleration.
type SpinTiming struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// LateGrowth inflates the delay once more than 70% of the steps are done.
	LateGrowth float64
	// MidGrowth inflates the delay between 50% and 70%.
	MidGrowth float64
	// Settle is how long the landed winner is held before the run completes.
	Settle time.Duration
}

// DefaultSpinTiming returns the production wheel timing.
func DefaultSpinTiming() SpinTiming {
	return SpinTiming{
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		LateGrowth:   1.10,
		MidGrowth:    1.04,
		Settle:       time.Second,
	}
}

// Spin is the stepping state of one wheel run. It never touches a timer itself;
// the controller schedules each step after Delay.
type Spin struct {
	CurrentStep int
	TotalSteps  int
	Delay       time.Duration

	size        int
	winnerIndex int
	timing      SpinTiming
}

// NewSpin prepares a run over size outcomes landing on winnerIndex. An index outside the
// list lands on 0. Three full passes always precede the landing.
func NewSpin(size, winnerIndex int, timing SpinTiming) *Spin {
	if size < 1 {
		size = 1
	}
	if winnerIndex < 0 || winnerIndex >= size {
		winnerIndex = 0
	}
	return &Spin{
		TotalSteps:  3*size + winnerIndex,
		Delay:       timing.InitialDelay,
		size:        size,
		winnerIndex: winnerIndex,
		timing:      timing,
	}
}

// Frame is the outcome index under the pointer at the current step.
func (s *Spin) Frame() int {
	return s.CurrentStep % s.size
}

// WinnerIndex is the index the run lands on.
func (s *Spin) WinnerIndex() int {
	return s.winnerIndex
}

// Done reports whether the landing step has been shown.
func (s *Spin) Done() bool {
	return s.CurrentStep >= s.TotalSteps
}

// Progress is the completed fraction of the run.
func (s *Spin) Progress() float64 {
	if s.TotalSteps == 0 {
		return 1
	}
	return float64(s.CurrentStep) / float64(s.TotalSteps)
}

// Advance moves one step and returns the frame to show and whether it is the landing frame.
// Delay is updated for the step that follows.
func (s *Spin) Advance() (frame int, done bool) {
	if s.Done() {
		return s.Frame(), true
	}
	s.CurrentStep++

	switch p := s.Progress(); {
	case p > 0.7:
		s.Delay = s.grow(s.timing.LateGrowth)
	case p >= 0.5:
		s.Delay = s.grow(s.timing.MidGrowth)
	default:
		s.Delay = s.timing.InitialDelay
	}
	return s.Frame(), s.Done()
}

func (s *Spin) grow(factor float64) time.Duration {
	d := time.Duration(float64(s.Delay) * factor)
	if d > s.timing.MaxDelay {
		return s.timing.MaxDelay
	}
	return d
}
