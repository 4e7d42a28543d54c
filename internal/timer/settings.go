package timer

import (
	"errors"
	"fmt"
	"time"
)

// Classic pomodoro lengths, used when no configuration is given.
const (
	DefaultWork        = 25 * time.Minute
	DefaultShortBreak  = 5 * time.Minute
	DefaultLongBreak   = 15 * time.Minute
	DefaultCycleLength = 4
)

// MaxPhaseDuration caps how long any single phase may be configured or
// extended to.
const MaxPhaseDuration = 24 * time.Hour

// ErrInvalidSettings is returned when configured durations or the cycle
// length are out of range.
var ErrInvalidSettings = errors.New("invalid timer settings")

// Settings holds the configured phase lengths and cycle policy.
type Settings struct {
	Work        time.Duration `json:"work"`
	ShortBreak  time.Duration `json:"short_break"`
	LongBreak   time.Duration `json:"long_break"`
	CycleLength int           `json:"cycle_length"`
	AutoStart   bool          `json:"auto_start"`
}

// DefaultSettings returns the classic 25/5/15 configuration with a long
// break after every fourth work phase.
func DefaultSettings() Settings {
	return Settings{
		Work:        DefaultWork,
		ShortBreak:  DefaultShortBreak,
		LongBreak:   DefaultLongBreak,
		CycleLength: DefaultCycleLength,
	}
}

// PhaseDuration returns the configured length of the given phase.
func (s Settings) PhaseDuration(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak:
		return s.ShortBreak
	case PhaseLongBreak:
		return s.LongBreak
	default:
		return s.Work
	}
}

// Validate checks that every phase length is positive and within
// MaxPhaseDuration and that the cycle length is at least one.
func (s Settings) Validate() error {
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"work", s.Work},
		{"short break", s.ShortBreak},
		{"long break", s.LongBreak},
	} {
		if d.val <= 0 {
			return fmt.Errorf("%w: %s duration must be positive", ErrInvalidSettings, d.name)
		}
		if d.val > MaxPhaseDuration {
			return fmt.Errorf("%w: %s duration exceeds %s", ErrInvalidSettings, d.name, MaxPhaseDuration)
		}
	}
	if s.CycleLength < 1 {
		return fmt.Errorf("%w: cycle length must be at least 1", ErrInvalidSettings)
	}
	return nil
}
