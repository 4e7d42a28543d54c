// Package session implements the shared pomodoro session: a hub that owns
// the authoritative timer and fans state out to participants.
//
// Concurrency model: exactly one goroutine (Run) touches the engine. Joins,
// leaves, actions and poll ticks all arrive over channels and are applied
// in arrival order, which gives every participant the same total order of
// state versions without a single lock around the timer. Connection
// handlers only ferry bytes; they never reason about timer state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/timer"
)

var (
	// ErrCapacityExceeded is returned by Connect when the roster is full.
	ErrCapacityExceeded = errors.New("session is full")

	// ErrHubClosed is returned once the hub has shut down.
	ErrHubClosed = errors.New("session hub is closed")
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Config bounds a hub's resources.
type Config struct {
	MaxParticipants int           // roster slots, Connect fails beyond this
	SnapshotBuffer  int           // per-subscriber queue depth
	PollInterval    time.Duration // how often natural expiry is observed
}

// DefaultConfig returns the bounds used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		MaxParticipants: 16,
		SnapshotBuffer:  8,
		PollInterval:    time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxParticipants <= 0 {
		c.MaxParticipants = def.MaxParticipants
	}
	if c.SnapshotBuffer <= 0 {
		c.SnapshotBuffer = def.SnapshotBuffer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// Participant is one registered member of a session.
type Participant struct {
	ID        uuid.UUID
	Name      string
	JoinOrder int
	JoinedAt  time.Time
}

// Stats is a point-in-time view of the hub for monitoring surfaces.
type Stats struct {
	Participants int    `json:"participants"`
	Version      uint64 `json:"version"`
}

type joinRequest struct {
	name  string
	reply chan joinReply
}

type joinReply struct {
	handle *Handle
	err    error
}

type submission struct {
	from   uuid.UUID
	name   string
	action timer.Action
}

// Hub owns the authoritative timer state for one shared session.
type Hub struct {
	cfg    Config
	clock  Clock
	engine *timer.Engine

	joinCh   chan joinRequest
	leaveCh  chan uuid.UUID
	actionCh chan submission
	tapCh    chan chan protocol.Snapshot

	done chan struct{}

	// Owned by the Run goroutine.
	members map[uuid.UUID]*member
	taps    []chan protocol.Snapshot
	joins   int

	// Mirrored for Stats, which is called from other goroutines.
	participants atomic.Int32
	version      atomic.Uint64
}

type member struct {
	participant Participant
	out         chan protocol.Snapshot
}

// NewHub creates a hub around a fresh timer. Run must be started for the
// hub to make progress.
func NewHub(settings timer.Settings, cfg Config, clock Clock) *Hub {
	h := &Hub{
		cfg:      cfg.withDefaults(),
		clock:    clock,
		engine:   timer.NewEngine(settings, clock),
		joinCh:   make(chan joinRequest),
		leaveCh:  make(chan uuid.UUID),
		actionCh: make(chan submission, 64),
		tapCh:    make(chan chan protocol.Snapshot),
		done:     make(chan struct{}),
		members:  make(map[uuid.UUID]*member),
	}
	h.version.Store(h.engine.State().Version)
	return h
}

// Run consumes joins, leaves, actions and poll ticks until ctx is
// cancelled. It is the only goroutine that touches the engine.
func (h *Hub) Run(ctx context.Context) {
	ticker := h.clock.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()
	defer h.shutdown()

	log.Info().
		Int("max_participants", h.cfg.MaxParticipants).
		Dur("poll_interval", h.cfg.PollInterval).
		Msg("session hub running")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session hub shutting down")
			return
		case req := <-h.joinCh:
			h.handleJoin(req)
		case id := <-h.leaveCh:
			h.handleLeave(id)
		case sub := <-h.actionCh:
			h.handleAction(sub)
		case ch := <-h.tapCh:
			h.handleTap(ch)
		case <-ticker.Chan():
			h.handleTick()
		}
	}
}

// Connect registers a new participant under the given name. The returned
// handle already has the current state queued. An empty name gets a
// generated guest name.
func (h *Hub) Connect(name string) (*Handle, error) {
	if name == "" {
		name = "guest-" + uuid.New().String()[:8]
	}
	req := joinRequest{name: name, reply: make(chan joinReply, 1)}
	select {
	case h.joinCh <- req:
	case <-h.done:
		return nil, ErrHubClosed
	}
	select {
	case rep := <-req.reply:
		return rep.handle, rep.err
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Tap subscribes to the snapshot stream without taking a roster slot. It
// serves in-process observers like the effect bus; the channel receives
// the current state immediately and closes when the hub shuts down.
func (h *Hub) Tap(buffer int) (<-chan protocol.Snapshot, error) {
	if buffer <= 0 {
		buffer = h.cfg.SnapshotBuffer
	}
	ch := make(chan protocol.Snapshot, buffer)
	select {
	case h.tapCh <- ch:
		return ch, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Stats reports the roster size and latest state version.
func (h *Hub) Stats() Stats {
	return Stats{
		Participants: int(h.participants.Load()),
		Version:      h.version.Load(),
	}
}

// SubmitLocal applies an action on behalf of the host process itself,
// without holding a roster slot. Config reloads use it to push new
// durations into a running session.
func (h *Hub) SubmitLocal(a timer.Action) error {
	return h.submit(submission{name: "local", action: a})
}

func (h *Hub) submit(sub submission) error {
	// Checked first: actionCh is buffered, so after shutdown the send case
	// can stay ready and a bare select would accept actions nobody will
	// ever apply.
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.actionCh <- sub:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) handleJoin(req joinRequest) {
	if len(h.members) >= h.cfg.MaxParticipants {
		log.Warn().
			Str("name", req.name).
			Int("max_participants", h.cfg.MaxParticipants).
			Msg("join rejected, session full")
		req.reply <- joinReply{err: fmt.Errorf("%w: %d of %d slots taken",
			ErrCapacityExceeded, len(h.members), h.cfg.MaxParticipants)}
		return
	}

	p := Participant{
		ID:        uuid.New(),
		Name:      req.name,
		JoinOrder: h.joins,
		JoinedAt:  h.clock.Now(),
	}
	h.joins++
	m := &member{
		participant: p,
		out:         make(chan protocol.Snapshot, h.cfg.SnapshotBuffer),
	}
	h.members[p.ID] = m
	h.participants.Store(int32(len(h.members)))
	req.reply <- joinReply{handle: &Handle{hub: h, participant: p, out: m.out}}

	log.Info().
		Str("participant_id", p.ID.String()).
		Str("name", p.Name).
		Int("participants", len(h.members)).
		Msg("participant joined")

	// Roster changed; the newcomer receives this as its first snapshot.
	h.broadcast(h.engine.State(), timer.EffectNone)
}

func (h *Hub) handleLeave(id uuid.UUID) {
	m, ok := h.members[id]
	if !ok {
		return
	}
	delete(h.members, id)
	close(m.out)
	h.participants.Store(int32(len(h.members)))

	log.Info().
		Str("participant_id", id.String()).
		Str("name", m.participant.Name).
		Int("participants", len(h.members)).
		Msg("participant left")

	h.broadcast(h.engine.State(), timer.EffectNone)
}

func (h *Hub) handleAction(sub submission) {
	state, eff := h.engine.Apply(sub.action)
	log.Debug().
		Str("name", sub.name).
		Str("kind", string(sub.action.Kind)).
		Str("effect", string(eff)).
		Uint64("version", state.Version).
		Msg("action applied")
	if eff == timer.EffectNone {
		return
	}
	h.broadcast(state, eff)
}

func (h *Hub) handleTick() {
	state, eff := h.engine.Tick()
	if eff == timer.EffectNone {
		return
	}
	log.Info().
		Str("phase", string(state.Phase)).
		Uint64("version", state.Version).
		Msg("phase completed")
	h.broadcast(state, eff)
}

func (h *Hub) handleTap(ch chan protocol.Snapshot) {
	h.taps = append(h.taps, ch)
	OfferSnapshot(ch, protocol.SnapshotFrom(h.engine.State(), timer.EffectNone, h.roster(), h.clock.Now()))
}

func (h *Hub) broadcast(state timer.State, eff timer.Effect) {
	h.version.Store(state.Version)
	snap := protocol.SnapshotFrom(state, eff, h.roster(), h.clock.Now())
	for _, m := range h.members {
		if OfferSnapshot(m.out, snap) {
			log.Debug().
				Str("participant_id", m.participant.ID.String()).
				Uint64("version", snap.Version).
				Msg("slow subscriber, dropped oldest snapshot")
		}
	}
	for _, tap := range h.taps {
		OfferSnapshot(tap, snap)
	}
}

func (h *Hub) roster() []protocol.Member {
	members := make([]protocol.Member, 0, len(h.members))
	for _, m := range h.members {
		members = append(members, protocol.Member{
			ID:        m.participant.ID.String(),
			Name:      m.participant.Name,
			JoinOrder: m.participant.JoinOrder,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinOrder < members[j].JoinOrder
	})
	return members
}

// shutdown unblocks pending callers first, then closes every subscriber
// channel so range loops over them terminate.
func (h *Hub) shutdown() {
	close(h.done)
	for id, m := range h.members {
		close(m.out)
		delete(h.members, id)
	}
	for _, tap := range h.taps {
		close(tap)
	}
	h.taps = nil
	h.participants.Store(0)
}
