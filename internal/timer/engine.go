package timer

import (
	"time"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
}

// Engine owns the authoritative timer state. It is not safe for concurrent
// use; the session hub serializes all access by construction.
type Engine struct {
	clock Clock
	state State
}

// NewEngine creates an engine at the top of a fresh work phase.
func NewEngine(settings Settings, clock Clock) *Engine {
	return &Engine{
		clock: clock,
		state: NewState(settings, clock.Now()),
	}
}

// Apply runs one action at the engine clock's current time.
func (e *Engine) Apply(a Action) (State, Effect) {
	state, eff := Apply(e.state, a, e.clock.Now())
	e.state = state
	return state, eff
}

// Tick folds in any deadlines the clock has passed since the last call.
func (e *Engine) Tick() (State, Effect) {
	state, eff := Observe(e.state, e.clock.Now())
	e.state = state
	return state, eff
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Now returns the engine clock's current time. Snapshots are stamped with
// it so receivers can rebuild a local deadline from the remaining time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}
