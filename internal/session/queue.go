package session

import "github.com/mcdev12/pomosync/internal/protocol"

// OfferSnapshot enqueues snap without ever blocking the producer. When the
// queue is full the oldest entry is dropped to make room, so a stalled
// reader always finds the most recent states when it resumes. It reports
// whether anything was dropped. The queue must have a single producer.
func OfferSnapshot(q chan protocol.Snapshot, snap protocol.Snapshot) bool {
	select {
	case q <- snap:
		return false
	default:
	}
	select {
	case <-q:
	default:
	}
	select {
	case q <- snap:
	default:
	}
	return true
}
