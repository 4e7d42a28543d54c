package timer

import "time"

// State is one observation of the shared timer. It is a value; Apply and
// Observe return fresh copies and never mutate their input. While the
// timer runs only Deadline is meaningful, while it is paused only
// Remaining is. Version increases by exactly one for every observable
// change, which gives all participants a single total order of states.
type State struct {
	Phase     Phase
	Total     time.Duration
	Running   bool
	Deadline  time.Time
	Remaining time.Duration
	Cycle     int
	Settings  Settings
	Version   uint64
}

// NewState returns the timer at the top of a fresh work phase. It starts
// running immediately when AutoStart is set and paused otherwise.
func NewState(settings Settings, now time.Time) State {
	s := State{
		Phase:    PhaseWork,
		Total:    settings.Work,
		Settings: settings,
		Version:  1,
	}
	if settings.AutoStart {
		s.Running = true
		s.Deadline = now.Add(s.Total)
	} else {
		s.Remaining = s.Total
	}
	return s
}

// RemainingAt reports how much of the current phase is left at the given
// instant. For a running timer this counts down toward the deadline and
// floors at zero; for a paused timer it is the frozen remainder.
func (s State) RemainingAt(now time.Time) time.Duration {
	if !s.Running {
		return s.Remaining
	}
	rem := s.Deadline.Sub(now)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// ProgressAt reports completion of the current phase in [0, 1].
func (s State) ProgressAt(now time.Time) float64 {
	if s.Total <= 0 {
		return 1
	}
	p := float64(s.Total-s.RemainingAt(now)) / float64(s.Total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
