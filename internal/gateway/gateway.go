// Package gateway exposes a session over WebSocket for browser and
// dashboard clients. A WebSocket client is an ordinary participant: it
// joins the hub, submits actions, and receives every snapshot push.
// Frames carry the same JSON message envelopes as the TCP transport,
// minus the length prefix, since WebSocket frames already delimit.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
)

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

func (c ConnectionConfig) withDefaults() ConnectionConfig {
	def := DefaultConnectionConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = def.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = def.CheckOrigin
	}
	return c
}

// Gateway upgrades HTTP requests into session participants.
type Gateway struct {
	hub      *session.Hub
	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// New creates a gateway over the given hub.
func New(hub *session.Hub, config ConnectionConfig) *Gateway {
	config = config.withDefaults()
	return &Gateway{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// RegisterRoutes registers gateway routes with an HTTP mux.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", g.handleSession)
	mux.HandleFunc("/healthz", g.handleHealthz)
	mux.HandleFunc("/stats", g.handleStats)
}

// Handler returns the gateway's routes wrapped in CORS middleware.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// handleSession upgrades the request and joins the caller to the hub.
func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	handle, err := g.hub.Connect(name)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("websocket join refused")
		if werr := writeEnvelope(conn, g.config.WriteTimeout, protocol.MessageTypeReject, protocol.Reject{Reason: err.Error()}); werr != nil {
			log.Debug().Err(werr).Msg("reject write failed")
		}
		conn.SetWriteDeadline(time.Now().Add(g.config.WriteTimeout))
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
		return
	}

	c := &client{
		conn:   conn,
		handle: handle,
		config: g.config,
	}
	go c.writePump()
	go c.readPump()

	log.Info().
		Str("participant_id", handle.Participant().ID.String()).
		Str("name", handle.Participant().Name).
		Str("remote", r.RemoteAddr).
		Msg("WebSocket connection established")
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := g.hub.Stats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"participants": stats.Participants,
		"version":      stats.Version,
	}); err != nil {
		log.Error().Err(err).Msg("failed to write stats response")
	}
}

// writeEnvelope marshals one message envelope onto a WebSocket frame.
func writeEnvelope(conn *websocket.Conn, timeout time.Duration, msgType protocol.MessageType, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
