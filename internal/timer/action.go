package timer

import "time"

// ActionKind defines the commands a participant may submit.
type ActionKind string

const (
	ActionStart        ActionKind = "START"
	ActionPause        ActionKind = "PAUSE"
	ActionResume       ActionKind = "RESUME"
	ActionToggle       ActionKind = "TOGGLE"
	ActionSkip         ActionKind = "SKIP"
	ActionAdjust       ActionKind = "ADJUST_DURATION"
	ActionSetDurations ActionKind = "SET_DURATIONS"
	ActionReset        ActionKind = "RESET"
)

// DurationSet carries replacement phase lengths for SET_DURATIONS.
type DurationSet struct {
	Work       time.Duration `json:"work"`
	ShortBreak time.Duration `json:"short_break"`
	LongBreak  time.Duration `json:"long_break"`
}

// Action is a single command against the timer state machine. Delta is
// read only by ADJUST_DURATION and Durations only by SET_DURATIONS.
type Action struct {
	Kind      ActionKind    `json:"kind"`
	Delta     time.Duration `json:"delta,omitempty"`
	Durations *DurationSet  `json:"durations,omitempty"`
}
