package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mcdev12/pomosync/internal/timer"
)

func testSettings() timer.Settings {
	return timer.Settings{
		Work:        25 * time.Minute,
		ShortBreak:  5 * time.Minute,
		LongBreak:   15 * time.Minute,
		CycleLength: 4,
	}
}

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestNewState(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	assert.Equal(t, timer.PhaseWork, s.Phase)
	assert.Equal(t, 25*time.Minute, s.Total)
	assert.False(t, s.Running)
	assert.Equal(t, 25*time.Minute, s.Remaining)
	assert.Equal(t, 0, s.Cycle)
	assert.Equal(t, uint64(1), s.Version)
}

func TestNewStateAutoStart(t *testing.T) {
	settings := testSettings()
	settings.AutoStart = true
	s := timer.NewState(settings, t0)

	assert.True(t, s.Running)
	assert.Equal(t, t0.Add(25*time.Minute), s.Deadline)
	assert.Equal(t, 25*time.Minute, s.RemainingAt(t0))
}

func TestStartPauseResume(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	require.Equal(t, timer.EffectStatusChanged, eff)
	require.True(t, s.Running)
	assert.Equal(t, t0.Add(25*time.Minute), s.Deadline)

	pauseAt := t0.Add(10 * time.Minute)
	s, eff = timer.Apply(s, timer.Action{Kind: timer.ActionPause}, pauseAt)
	require.Equal(t, timer.EffectStatusChanged, eff)
	require.False(t, s.Running)
	assert.Equal(t, 15*time.Minute, s.Remaining)
	assert.True(t, s.Deadline.IsZero())

	resumeAt := t0.Add(1 * time.Hour)
	s, eff = timer.Apply(s, timer.Action{Kind: timer.ActionResume}, resumeAt)
	require.Equal(t, timer.EffectStatusChanged, eff)
	require.True(t, s.Running)
	assert.Equal(t, resumeAt.Add(15*time.Minute), s.Deadline)
}

func TestPauseResumeAtSameInstantRestoresDeadline(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	deadline := s.Deadline

	at := t0.Add(7 * time.Minute)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionPause}, at)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionResume}, at)

	assert.True(t, s.Deadline.Equal(deadline))
}

func TestRedundantActionsAreNoops(t *testing.T) {
	paused := timer.NewState(testSettings(), t0)
	running, _ := timer.Apply(paused, timer.Action{Kind: timer.ActionStart}, t0)

	tests := []struct {
		name  string
		state timer.State
		kind  timer.ActionKind
	}{
		{"start while running", running, timer.ActionStart},
		{"resume while running", running, timer.ActionResume},
		{"pause while paused", paused, timer.ActionPause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := t0.Add(time.Minute)
			next, eff := timer.Apply(tt.state, timer.Action{Kind: tt.kind}, at)
			assert.Equal(t, timer.EffectNone, eff)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestToggleFlipsStatus(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionToggle}, t0)
	require.Equal(t, timer.EffectStatusChanged, eff)
	assert.True(t, s.Running)

	s, eff = timer.Apply(s, timer.Action{Kind: timer.ActionToggle}, t0.Add(time.Minute))
	require.Equal(t, timer.EffectStatusChanged, eff)
	assert.False(t, s.Running)
	assert.Equal(t, 24*time.Minute, s.Remaining)
}

// A 25:00 work phase started at t, shortened by 5:00 one minute in, then
// paused one minute later must hold 18:00: the adjustment moves only the
// remaining time, never the minutes already elapsed.
func TestAdjustShrinksRunningPhase(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: -5 * time.Minute}, t0.Add(1*time.Minute))
	require.Equal(t, timer.EffectDurationsChanged, eff)
	assert.Equal(t, t0.Add(20*time.Minute), s.Deadline)
	assert.Equal(t, 20*time.Minute, s.Total)

	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionPause}, t0.Add(2*time.Minute))
	assert.Equal(t, 18*time.Minute, s.Remaining)
}

func TestAdjustExtendsPausedPhase(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: 10 * time.Minute}, t0)
	require.Equal(t, timer.EffectDurationsChanged, eff)
	assert.Equal(t, 35*time.Minute, s.Remaining)
	assert.Equal(t, 35*time.Minute, s.Total)
	assert.False(t, s.Running)
}

func TestAdjustToZeroCompletesPhase(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		s := timer.NewState(testSettings(), t0)
		s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)

		at := t0.Add(10 * time.Minute)
		s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: -time.Hour}, at)
		require.Equal(t, timer.EffectPhaseChanged, eff)
		assert.Equal(t, timer.PhaseShortBreak, s.Phase)
		assert.True(t, s.Running)
		assert.Equal(t, at.Add(5*time.Minute), s.Deadline)
		assert.Equal(t, 1, s.Cycle)
	})

	t.Run("paused", func(t *testing.T) {
		s := timer.NewState(testSettings(), t0)

		s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: -time.Hour}, t0)
		require.Equal(t, timer.EffectPhaseChanged, eff)
		assert.Equal(t, timer.PhaseShortBreak, s.Phase)
		assert.False(t, s.Running)
		assert.Equal(t, 5*time.Minute, s.Remaining)
	})
}

func TestAdjustClampsAtMaxPhaseDuration(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: 100 * 24 * time.Hour}, t0)
	require.Equal(t, timer.EffectDurationsChanged, eff)
	assert.Equal(t, timer.MaxPhaseDuration, s.Remaining)

	next, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust, Delta: time.Hour}, t0)
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)
}

func TestAdjustZeroDeltaIsNoop(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	next, eff := timer.Apply(s, timer.Action{Kind: timer.ActionAdjust}, t0)
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)
}

// Four work phases per cycle: the first three earn short breaks, the
// fourth a long one, and the cycle starts over.
func TestSkipWalksTheCycle(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)

	want := []timer.Phase{
		timer.PhaseShortBreak, timer.PhaseWork,
		timer.PhaseShortBreak, timer.PhaseWork,
		timer.PhaseShortBreak, timer.PhaseWork,
		timer.PhaseLongBreak, timer.PhaseWork,
		timer.PhaseShortBreak,
	}
	at := t0
	for i, phase := range want {
		at = at.Add(time.Minute)
		var eff timer.Effect
		s, eff = timer.Apply(s, timer.Action{Kind: timer.ActionSkip}, at)
		require.Equal(t, timer.EffectPhaseChanged, eff)
		require.Equalf(t, phase, s.Phase, "skip %d", i+1)
		require.True(t, s.Running, "skip must keep the timer running")
		require.Equal(t, s.Settings.PhaseDuration(phase), s.Total)
		require.Equal(t, at.Add(s.Total), s.Deadline)
	}
	assert.Equal(t, 5, s.Cycle)
}

func TestSkipWhilePausedStaysPaused(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionSkip}, t0)
	require.Equal(t, timer.EffectPhaseChanged, eff)
	assert.False(t, s.Running)
	assert.Equal(t, timer.PhaseShortBreak, s.Phase)
	assert.Equal(t, 5*time.Minute, s.Remaining)
}

func TestSetDurationsAffectsFuturePhasesOnly(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	deadline := s.Deadline

	set := timer.Action{Kind: timer.ActionSetDurations, Durations: &timer.DurationSet{
		Work:       50 * time.Minute,
		ShortBreak: 10 * time.Minute,
		LongBreak:  30 * time.Minute,
	}}
	s, eff := timer.Apply(s, set, t0.Add(time.Minute))
	require.Equal(t, timer.EffectDurationsChanged, eff)
	assert.True(t, s.Deadline.Equal(deadline), "current phase must keep its deadline")
	assert.Equal(t, 25*time.Minute, s.Total)

	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionSkip}, t0.Add(2*time.Minute))
	assert.Equal(t, 10*time.Minute, s.Total, "next phase uses the new length")
}

func TestSetDurationsRejectsInvalid(t *testing.T) {
	s := timer.NewState(testSettings(), t0)

	tests := []struct {
		name string
		set  *timer.DurationSet
	}{
		{"nil durations", nil},
		{"zero work", &timer.DurationSet{Work: 0, ShortBreak: time.Minute, LongBreak: time.Minute}},
		{"negative break", &timer.DurationSet{Work: time.Minute, ShortBreak: -time.Minute, LongBreak: time.Minute}},
		{"over the cap", &timer.DurationSet{Work: 25 * time.Hour, ShortBreak: time.Minute, LongBreak: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, eff := timer.Apply(s, timer.Action{Kind: timer.ActionSetDurations, Durations: tt.set}, t0)
			assert.Equal(t, timer.EffectNone, eff)
			assert.Equal(t, s, next)
		})
	}
}

func TestResetReturnsToFreshWorkPhase(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionSkip}, t0.Add(time.Minute))
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionSkip}, t0.Add(2*time.Minute))
	version := s.Version

	at := t0.Add(3 * time.Minute)
	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionReset}, at)
	require.Equal(t, timer.EffectStatusChanged, eff)
	assert.Equal(t, timer.PhaseWork, s.Phase)
	assert.Equal(t, 0, s.Cycle)
	assert.False(t, s.Running)
	assert.Equal(t, 25*time.Minute, s.Remaining)
	assert.Equal(t, version+1, s.Version, "reset continues the version sequence")
}

// The same instant, reached two ways: once by letting the deadline pass
// and observing, once by an explicit skip issued at that moment. Both
// must land in exactly the same state.
func TestNaturalExpiryEqualsSkipAtDeadline(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	deadline := s.Deadline

	viaExpiry, effExpiry := timer.Observe(s, deadline)

	notYet := s
	notYet.Deadline = deadline.Add(time.Nanosecond)
	viaSkip, effSkip := timer.Apply(notYet, timer.Action{Kind: timer.ActionSkip}, deadline)

	assert.Equal(t, timer.EffectPhaseChanged, effExpiry)
	assert.Equal(t, timer.EffectPhaseChanged, effSkip)
	assert.Equal(t, viaExpiry, viaSkip)
}

// An action that arrives after the deadline passed lands on the phase a
// wall clock would show: the overshoot is already spent in the next phase.
func TestLateActionFoldsExpiryFirst(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)

	late := s.Deadline.Add(10 * time.Second)
	s, eff := timer.Apply(s, timer.Action{Kind: timer.ActionPause}, late)

	assert.Equal(t, timer.EffectPhaseChanged, eff, "the rollover outranks the pause")
	assert.Equal(t, timer.PhaseShortBreak, s.Phase)
	assert.False(t, s.Running)
	assert.Equal(t, 5*time.Minute-10*time.Second, s.Remaining)
}

func TestObserveWalksMultipleMissedDeadlines(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)
	version := s.Version

	// 25m work + 5m break both elapsed; one minute into the next work phase.
	s, eff := timer.Observe(s, t0.Add(31*time.Minute))

	require.Equal(t, timer.EffectPhaseChanged, eff)
	assert.Equal(t, timer.PhaseWork, s.Phase)
	assert.Equal(t, 1, s.Cycle)
	assert.Equal(t, t0.Add(55*time.Minute), s.Deadline)
	assert.Equal(t, 24*time.Minute, s.RemainingAt(t0.Add(31*time.Minute)))
	assert.Equal(t, version+1, s.Version, "one observation, one version")
}

func TestObserveBeforeDeadlineIsNoop(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	s, _ = timer.Apply(s, timer.Action{Kind: timer.ActionStart}, t0)

	next, eff := timer.Observe(s, s.Deadline.Add(-time.Nanosecond))
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)

	next, eff = timer.Observe(next, t0)
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)
}

func TestObserveNeverTouchesPausedTimer(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	next, eff := timer.Observe(s, t0.Add(300*time.Hour))
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)
}

func TestUnknownActionKindIsNoop(t *testing.T) {
	s := timer.NewState(testSettings(), t0)
	next, eff := timer.Apply(s, timer.Action{Kind: "EXPLODE"}, t0)
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s, next)
}

// drawAction produces an arbitrary action, with payloads for the kinds
// that take them.
func drawAction(t *rapid.T) timer.Action {
	kind := rapid.SampledFrom([]timer.ActionKind{
		timer.ActionStart, timer.ActionPause, timer.ActionResume,
		timer.ActionToggle, timer.ActionSkip, timer.ActionAdjust,
		timer.ActionSetDurations, timer.ActionReset,
	}).Draw(t, "kind")

	a := timer.Action{Kind: kind}
	switch kind {
	case timer.ActionAdjust:
		a.Delta = time.Duration(rapid.Int64Range(-90*60, 90*60).Draw(t, "delta_sec")) * time.Second
	case timer.ActionSetDurations:
		a.Durations = &timer.DurationSet{
			Work:       time.Duration(rapid.Int64Range(1, 90).Draw(t, "set_work")) * time.Minute,
			ShortBreak: time.Duration(rapid.Int64Range(1, 30).Draw(t, "set_short")) * time.Minute,
			LongBreak:  time.Duration(rapid.Int64Range(1, 45).Draw(t, "set_long")) * time.Minute,
		}
	}
	return a
}

func TestStateInvariantsUnderRandomActions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := timer.NewState(testSettings(), t0)
		now := t0

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.Int64Range(0, 2*60*60).Draw(t, "step_sec")) * time.Second)
			prev := s

			var eff timer.Effect
			s, eff = timer.Apply(s, drawAction(t), now)

			if s.Total <= 0 {
				t.Fatalf("total dropped to %v", s.Total)
			}
			rem := s.RemainingAt(now)
			if rem < 0 || rem > s.Total {
				t.Fatalf("remaining %v outside [0, %v]", rem, s.Total)
			}
			if s.Running && s.Deadline.IsZero() {
				t.Fatalf("running state without a deadline")
			}
			if !s.Running && !s.Deadline.IsZero() {
				t.Fatalf("paused state kept a deadline")
			}
			if eff == timer.EffectNone {
				if s != prev {
					t.Fatalf("state changed without an effect: %+v -> %+v", prev, s)
				}
			} else if s.Version != prev.Version+1 {
				t.Fatalf("version went %d -> %d on effect %s", prev.Version, s.Version, eff)
			}
		}
	})
}

func TestPhaseTransitionsFollowCycle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		settings := testSettings()
		settings.CycleLength = rapid.IntRange(1, 6).Draw(t, "cycle_length")
		s := timer.NewState(settings, t0)
		now := t0

		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.Int64Range(0, 3*60*60).Draw(t, "step_sec")) * time.Second)
			prev := s
			s, _ = timer.Apply(s, drawAction(t), now)

			if s.Phase == prev.Phase {
				continue
			}
			switch prev.Phase {
			case timer.PhaseWork:
				if s.Phase == timer.PhaseLongBreak && s.Cycle%settings.CycleLength != 0 {
					t.Fatalf("long break after %d work phases with cycle length %d", s.Cycle, settings.CycleLength)
				}
			default:
				if s.Phase != timer.PhaseWork && prev.Cycle == s.Cycle {
					t.Fatalf("break to break transition: %s -> %s", prev.Phase, s.Phase)
				}
			}
		}
	})
}
