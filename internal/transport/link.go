package transport

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/timer"
)

// link ferries frames between one connection and the hub. It holds no
// timer state; the hub's snapshot stream is the only source of truth a
// participant ever sees.
type link struct {
	conn         net.Conn
	handle       *session.Handle
	writeTimeout time.Duration
}

// writePump drains the participant's snapshot stream onto the socket.
// It exits when the hub closes the stream or a write fails, and closing
// the connection unblocks readPump either way.
func (l *link) writePump() {
	defer l.conn.Close()

	for snap := range l.handle.Snapshots() {
		l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
		if err := protocol.WriteMessage(l.conn, protocol.MessageTypeSnapshot, snap); err != nil {
			log.Debug().
				Err(err).
				Str("name", l.handle.Participant().Name).
				Msg("snapshot write failed")
			l.handle.Close()
			return
		}
	}
}

// readPump feeds inbound frames to the hub until the connection dies,
// says goodbye, or misbehaves. A malformed frame costs this participant
// their seat and nothing else.
func (l *link) readPump() {
	defer func() {
		l.handle.Close()
		l.conn.Close()
	}()

	name := l.handle.Participant().Name
	for {
		msg, err := protocol.ReadMessage(l.conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info().Str("name", name).Msg("connection closed")
			case errors.Is(err, protocol.ErrMalformedFrame), errors.Is(err, protocol.ErrFrameTooLarge):
				log.Warn().Err(err).Str("name", name).Msg("dropping misbehaving connection")
			default:
				log.Debug().Err(err).Str("name", name).Msg("connection read failed")
			}
			return
		}

		switch msg.Type {
		case protocol.MessageTypeAction:
			payload, err := protocol.ParsePayload(msg)
			if err != nil {
				log.Warn().Err(err).Str("name", name).Msg("dropping misbehaving connection")
				return
			}
			if err := l.handle.Submit(payload.(timer.Action)); err != nil {
				return
			}
		case protocol.MessageTypeGoodbye:
			log.Info().Str("name", name).Msg("participant left")
			return
		default:
			log.Warn().Str("name", name).Str("type", string(msg.Type)).Msg("unexpected client frame")
			return
		}
	}
}
