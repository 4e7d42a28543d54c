// Package transport carries a session over plain TCP. The server side
// bridges connections to the hub; the client side (Remote) mirrors the
// hub's surface over the wire. Framing and message layout live in
// protocol; nothing here interprets timer state.
package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
)

// Config holds the socket-level limits for a session server.
type Config struct {
	HandshakeTimeout time.Duration // first frame must arrive within this
	WriteTimeout     time.Duration // per outbound frame
	MaxConns         int           // sockets, enforced below the roster cap
}

// DefaultConfig returns the limits used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxConns:         64,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxConns <= 0 {
		c.MaxConns = def.MaxConns
	}
	return c
}

// Server accepts TCP participants for one hub.
type Server struct {
	hub *session.Hub
	cfg Config
}

// NewServer wraps a hub for serving.
func NewServer(hub *session.Hub, cfg Config) *Server {
	return &Server{hub: hub, cfg: cfg.withDefaults()}
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// Each connection gets its own goroutines; a misbehaving connection is
// dropped without disturbing the accept loop or the session.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	lis = netutil.LimitListener(lis, s.cfg.MaxConns)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			lis.Close()
		case <-stopped:
		}
	}()

	log.Info().
		Str("addr", lis.Addr().String()).
		Int("max_conns", s.cfg.MaxConns).
		Msg("session server listening")

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("session server stopped")
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn performs the hello handshake, registers the participant and
// hands the socket to the read/write pumps.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	msg, err := protocol.ReadMessage(conn)
	if err != nil {
		log.Warn().Err(err).Str("remote", remote).Msg("handshake failed")
		conn.Close()
		return
	}
	if msg.Type != protocol.MessageTypeHello {
		log.Warn().Str("remote", remote).Str("type", string(msg.Type)).Msg("handshake expected hello")
		conn.Close()
		return
	}
	payload, err := protocol.ParsePayload(msg)
	if err != nil {
		log.Warn().Err(err).Str("remote", remote).Msg("handshake failed")
		conn.Close()
		return
	}
	hello := payload.(protocol.Hello)

	handle, err := s.hub.Connect(hello.Name)
	if err != nil {
		if errors.Is(err, session.ErrCapacityExceeded) {
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if werr := protocol.WriteMessage(conn, protocol.MessageTypeReject, protocol.Reject{Reason: err.Error()}); werr != nil {
				log.Debug().Err(werr).Str("remote", remote).Msg("reject write failed")
			}
		}
		log.Warn().Err(err).Str("remote", remote).Str("name", hello.Name).Msg("join refused")
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	l := &link{
		conn:         conn,
		handle:       handle,
		writeTimeout: s.cfg.WriteTimeout,
	}
	go l.writePump()
	l.readPump()
}
