package timer_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pomosync/internal/timer"
)

func TestEngineLifecycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	eng := timer.NewEngine(testSettings(), clock)

	s := eng.State()
	assert.False(t, s.Running)
	assert.Equal(t, 25*time.Minute, s.Remaining)

	s, eff := eng.Apply(timer.Action{Kind: timer.ActionStart})
	require.Equal(t, timer.EffectStatusChanged, eff)
	assert.Equal(t, t0.Add(25*time.Minute), s.Deadline)

	// Nothing to report while the deadline is ahead.
	clock.Advance(10 * time.Minute)
	_, eff = eng.Tick()
	assert.Equal(t, timer.EffectNone, eff)

	// Crossing the deadline rolls the phase on the next tick.
	clock.Advance(15 * time.Minute)
	s, eff = eng.Tick()
	require.Equal(t, timer.EffectPhaseChanged, eff)
	assert.Equal(t, timer.PhaseShortBreak, s.Phase)
	assert.Equal(t, t0.Add(30*time.Minute), s.Deadline)

	assert.Equal(t, s, eng.State())
}

func TestEngineTickIsIdempotentBetweenDeadlines(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	eng := timer.NewEngine(testSettings(), clock)
	eng.Apply(timer.Action{Kind: timer.ActionStart})

	clock.Advance(26 * time.Minute)
	s1, eff := eng.Tick()
	require.Equal(t, timer.EffectPhaseChanged, eff)

	s2, eff := eng.Tick()
	assert.Equal(t, timer.EffectNone, eff)
	assert.Equal(t, s1, s2)
}

func TestEngineNowFollowsClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	eng := timer.NewEngine(testSettings(), clock)

	clock.Advance(42 * time.Second)
	assert.Equal(t, t0.Add(42*time.Second), eng.Now())
}
