package session

import (
	"sync"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/timer"
)

// Handle is one participant's connection to the hub.
type Handle struct {
	hub         *Hub
	participant Participant
	out         chan protocol.Snapshot
	closeOnce   sync.Once
}

// Participant returns the roster entry this handle was registered under.
func (h *Handle) Participant() Participant {
	return h.participant
}

// Submit queues one action for the hub. It blocks only on channel
// backpressure and fails with ErrHubClosed after shutdown. Submission
// order is application order: the hub applies actions exactly as they
// arrive, last write wins.
func (h *Handle) Submit(a timer.Action) error {
	return h.hub.submit(submission{
		from:   h.participant.ID,
		name:   h.participant.Name,
		action: a,
	})
}

// Snapshots returns this participant's snapshot queue. The queue is
// bounded; when the participant reads too slowly the oldest snapshots are
// dropped and the latest kept. The hub closes the channel when the
// participant leaves or the hub shuts down.
func (h *Handle) Snapshots() <-chan protocol.Snapshot {
	return h.out
}

// Close removes the participant from the roster. It is safe to call more
// than once. Actions this participant already submitted still apply.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		select {
		case h.hub.leaveCh <- h.participant.ID:
		case <-h.hub.done:
		}
	})
}
