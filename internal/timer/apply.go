package timer

import "time"

// Apply runs one action against the state at the given instant and reports
// what changed. Deadlines that passed before the action arrived are folded
// in first, so the action always lands on the phase a wall clock would
// show. Unknown kinds and no-op commands (starting a running timer,
// pausing a paused one) leave the state untouched and report EffectNone.
func Apply(s State, a Action, now time.Time) (State, Effect) {
	s, eff := expire(s, now)

	switch a.Kind {
	case ActionStart, ActionResume:
		if next, ok := start(s, now); ok {
			s = next
			eff = mergeEffect(eff, EffectStatusChanged)
		}

	case ActionPause:
		if next, ok := pause(s, now); ok {
			s = next
			eff = mergeEffect(eff, EffectStatusChanged)
		}

	case ActionToggle:
		if s.Running {
			s, _ = pause(s, now)
		} else {
			s, _ = start(s, now)
		}
		eff = mergeEffect(eff, EffectStatusChanged)

	case ActionSkip:
		s = advance(s, now)
		eff = mergeEffect(eff, EffectPhaseChanged)

	case ActionAdjust:
		var adjusted Effect
		s, adjusted = adjust(s, a.Delta, now)
		eff = mergeEffect(eff, adjusted)

	case ActionSetDurations:
		if a.Durations != nil {
			next := s.Settings
			next.Work = a.Durations.Work
			next.ShortBreak = a.Durations.ShortBreak
			next.LongBreak = a.Durations.LongBreak
			if next != s.Settings && next.Validate() == nil {
				s.Settings = next
				eff = mergeEffect(eff, EffectDurationsChanged)
			}
		}

	case ActionReset:
		version := s.Version
		s = NewState(s.Settings, now)
		s.Version = version
		eff = mergeEffect(eff, EffectStatusChanged)
	}

	if eff != EffectNone {
		s.Version++
	}
	return s, eff
}

// Observe folds any elapsed deadlines into the state without applying an
// action. The hub's poll tick calls this to surface natural expiry.
func Observe(s State, now time.Time) (State, Effect) {
	s, eff := expire(s, now)
	if eff != EffectNone {
		s.Version++
	}
	return s, eff
}

// expire walks the state through every deadline that has already passed.
// Each elapsed phase hands over at its exact deadline, so a timer observed
// long after expiry lands in the right phase with the right remainder.
func expire(s State, now time.Time) (State, Effect) {
	eff := EffectNone
	for s.Running && !s.Deadline.After(now) {
		if s.Total <= 0 {
			break
		}
		s = advance(s, s.Deadline)
		eff = EffectPhaseChanged
	}
	return s, eff
}

// advance completes the current phase at the given instant and enters the
// next one, preserving the running/paused status. Completing a work phase
// counts toward the cycle; every CycleLength-th one earns the long break.
func advance(s State, at time.Time) State {
	if s.Phase == PhaseWork {
		s.Cycle++
		if s.Settings.CycleLength > 0 && s.Cycle%s.Settings.CycleLength == 0 {
			s.Phase = PhaseLongBreak
		} else {
			s.Phase = PhaseShortBreak
		}
	} else {
		s.Phase = PhaseWork
	}
	s.Total = s.Settings.PhaseDuration(s.Phase)
	if s.Running {
		s.Deadline = at.Add(s.Total)
	} else {
		s.Remaining = s.Total
	}
	return s
}

func start(s State, now time.Time) (State, bool) {
	if s.Running {
		return s, false
	}
	s.Running = true
	s.Deadline = now.Add(s.Remaining)
	s.Remaining = 0
	return s, true
}

func pause(s State, now time.Time) (State, bool) {
	if !s.Running {
		return s, false
	}
	s.Remaining = s.Deadline.Sub(now)
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.Running = false
	s.Deadline = time.Time{}
	return s, true
}

// adjust moves the current phase's remaining time by delta, clamped to
// [0, MaxPhaseDuration]. Elapsed time is kept fixed, so the phase total
// shifts by the same amount. Shrinking the remainder to zero completes
// the phase on the spot, exactly as a skip would.
func adjust(s State, delta time.Duration, now time.Time) (State, Effect) {
	rem := s.RemainingAt(now)
	next := rem + delta
	if next < 0 {
		next = 0
	}
	if next > MaxPhaseDuration {
		next = MaxPhaseDuration
	}
	if next == rem {
		return s, EffectNone
	}
	if next == 0 {
		return advance(s, now), EffectPhaseChanged
	}
	s.Total += next - rem
	if s.Running {
		s.Deadline = now.Add(next)
	} else {
		s.Remaining = next
	}
	return s, EffectDurationsChanged
}
