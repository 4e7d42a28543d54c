// Package timer implements the pomodoro state machine shared by every
// participant of a session. State transitions are pure functions of
// (state, action, time), which keeps the hub's single-writer loop trivial
// and makes the whole machine testable with a fake clock.
package timer

// Phase defines which part of the work/break cycle the timer is in.
type Phase string

const (
	PhaseWork       Phase = "WORK"
	PhaseShortBreak Phase = "SHORT_BREAK"
	PhaseLongBreak  Phase = "LONG_BREAK"
)

// Label returns the phase name as shown to users.
func (p Phase) Label() string {
	switch p {
	case PhaseWork:
		return "work"
	case PhaseShortBreak:
		return "short break"
	case PhaseLongBreak:
		return "long break"
	default:
		return string(p)
	}
}

// Effect classifies the outcome of applying an action, so observers can
// tell a phase rollover (ring the bell) from a pause (just redraw).
type Effect string

const (
	EffectNone             Effect = "NONE"
	EffectDurationsChanged Effect = "DURATIONS_CHANGED"
	EffectStatusChanged    Effect = "STATUS_CHANGED"
	EffectPhaseChanged     Effect = "PHASE_CHANGED"
)

var effectRank = map[Effect]int{
	EffectNone:             0,
	EffectDurationsChanged: 1,
	EffectStatusChanged:    2,
	EffectPhaseChanged:     3,
}

// mergeEffect keeps the more significant of two effects. An action that
// lands after a missed deadline both completes a phase and does its own
// work; the completion is what observers must not miss.
func mergeEffect(a, b Effect) Effect {
	if effectRank[b] > effectRank[a] {
		return b
	}
	return a
}
