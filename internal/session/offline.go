package session

import (
	"context"
	"time"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/timer"
)

// Offline drives a private timer with the same surface a networked session
// exposes, so frontends cannot tell local mode from shared mode. There is
// no roster; snapshots carry an empty member list.
type Offline struct {
	clock  Clock
	engine *timer.Engine
	poll   time.Duration

	actionCh chan timer.Action
	out      chan protocol.Snapshot
	done     chan struct{}
}

// NewOffline creates a single-user session. Run must be started for it to
// make progress.
func NewOffline(settings timer.Settings, clock Clock) *Offline {
	cfg := DefaultConfig()
	return &Offline{
		clock:    clock,
		engine:   timer.NewEngine(settings, clock),
		poll:     cfg.PollInterval,
		actionCh: make(chan timer.Action, 16),
		out:      make(chan protocol.Snapshot, cfg.SnapshotBuffer),
		done:     make(chan struct{}),
	}
}

// Run applies actions and poll ticks until ctx is cancelled. The first
// snapshot goes out immediately so the frontend has state to draw.
func (o *Offline) Run(ctx context.Context) {
	ticker := o.clock.NewTicker(o.poll)
	defer ticker.Stop()
	defer func() {
		close(o.done)
		close(o.out)
	}()

	o.push(o.engine.State(), timer.EffectNone)
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-o.actionCh:
			if state, eff := o.engine.Apply(a); eff != timer.EffectNone {
				o.push(state, eff)
			}
		case <-ticker.Chan():
			if state, eff := o.engine.Tick(); eff != timer.EffectNone {
				o.push(state, eff)
			}
		}
	}
}

// Submit queues one action, exactly like a hub handle.
func (o *Offline) Submit(a timer.Action) error {
	// Checked first: actionCh is buffered, so after shutdown the send case
	// can stay ready and a bare select would accept actions nobody will
	// ever apply.
	select {
	case <-o.done:
		return ErrHubClosed
	default:
	}
	select {
	case o.actionCh <- a:
		return nil
	case <-o.done:
		return ErrHubClosed
	}
}

// Snapshots returns the session's snapshot queue. It is closed when Run
// returns.
func (o *Offline) Snapshots() <-chan protocol.Snapshot {
	return o.out
}

func (o *Offline) push(state timer.State, eff timer.Effect) {
	OfferSnapshot(o.out, protocol.SnapshotFrom(state, eff, nil, o.clock.Now()))
}
