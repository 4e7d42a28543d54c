package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/timer"
)

// ErrSessionEnded reports that the host closed the session underneath us.
var ErrSessionEnded = errors.New("session ended by host")

// Remote is the client end of a session. It dials a host, introduces
// itself, and then mirrors the hub surface: Submit sends actions, and
// Snapshots streams the host's state pushes. Like the hub's queues, the
// stream drops oldest first, so a reader always converges on the latest
// snapshot.
type Remote struct {
	conn net.Conn
	out  chan protocol.Snapshot

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}

	errMu sync.Mutex
	err   error
}

// Dial connects to a session host and joins as name. It blocks until the
// host's first snapshot (or a rejection) arrives, so a returned Remote
// always has state to show.
func Dial(ctx context.Context, addr, name string) (*Remote, error) {
	cfg := DefaultConfig()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	r := &Remote{
		conn:         conn,
		out:          make(chan protocol.Snapshot, session.DefaultConfig().SnapshotBuffer),
		writeTimeout: cfg.WriteTimeout,
		done:         make(chan struct{}),
	}

	if err := r.write(protocol.MessageTypeHello, protocol.Hello{Name: name}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}

	// The first frame settles the handshake: a snapshot means we are in,
	// a reject means the host turned us away.
	conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))
	msg, err := protocol.ReadMessage(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read handshake reply: %w", err)
	}
	payload, err := protocol.ParsePayload(msg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse handshake reply: %w", err)
	}

	switch p := payload.(type) {
	case protocol.Snapshot:
		r.out <- p
	case protocol.Reject:
		conn.Close()
		return nil, fmt.Errorf("%w: %s", session.ErrCapacityExceeded, p.Reason)
	default:
		conn.Close()
		return nil, fmt.Errorf("%w: handshake reply was %s", protocol.ErrMalformedFrame, msg.Type)
	}
	conn.SetReadDeadline(time.Time{})

	log.Info().Str("addr", addr).Str("name", name).Msg("joined session")

	go r.readPump()
	return r, nil
}

// Submit sends one action to the host. Ordering across participants is the
// host's to decide; whatever lands later at the hub wins.
func (r *Remote) Submit(a timer.Action) error {
	select {
	case <-r.done:
		return session.ErrHubClosed
	default:
	}
	if err := r.write(protocol.MessageTypeAction, a); err != nil {
		return fmt.Errorf("failed to send action: %w", err)
	}
	return nil
}

// Snapshots returns the inbound state stream. The channel closes when the
// connection ends; Err tells why.
func (r *Remote) Snapshots() <-chan protocol.Snapshot {
	return r.out
}

// Err reports why the snapshot stream closed. It is nil until then, and
// nil after a local Close.
func (r *Remote) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// Close says goodbye and tears the connection down. Safe to call twice.
func (r *Remote) Close() error {
	r.closeOnce.Do(func() {
		if err := r.write(protocol.MessageTypeGoodbye, nil); err != nil {
			log.Debug().Err(err).Msg("goodbye write failed")
		}
		r.conn.Close()
	})
	return nil
}

func (r *Remote) write(msgType protocol.MessageType, payload any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	return protocol.WriteMessage(r.conn, msgType, payload)
}

// readPump turns inbound frames into snapshots until the connection dies.
func (r *Remote) readPump() {
	defer func() {
		r.conn.Close()
		close(r.done)
		close(r.out)
	}()

	for {
		msg, err := protocol.ReadMessage(r.conn)
		if err != nil {
			r.setErr(err)
			return
		}
		if msg.Type != protocol.MessageTypeSnapshot {
			r.setErr(fmt.Errorf("%w: unexpected %s frame", protocol.ErrMalformedFrame, msg.Type))
			return
		}
		payload, err := protocol.ParsePayload(msg)
		if err != nil {
			r.setErr(err)
			return
		}
		session.OfferSnapshot(r.out, payload.(protocol.Snapshot))
	}
}

func (r *Remote) setErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err != nil {
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		r.err = ErrSessionEnded
	case errors.Is(err, net.ErrClosed):
		// Reading a socket we closed ourselves is not an error.
	default:
		r.err = err
	}
}
