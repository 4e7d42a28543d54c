package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/timer"
)

// client is one WebSocket participant. The hub's per-participant snapshot
// queue is its send buffer; there is no shared broadcast registry.
type client struct {
	conn   *websocket.Conn
	handle *session.Handle
	config ConnectionConfig
}

// writePump handles sending messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case snap, ok := <-c.handle.Snapshots():
			if !ok {
				// Hub closed the stream
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeEnvelope(c.conn, c.config.WriteTimeout, protocol.MessageTypeSnapshot, snap); err != nil {
				log.Error().
					Err(err).
					Str("participant_id", c.handle.Participant().ID.String()).
					Msg("failed to write snapshot to WebSocket")
				c.handle.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("participant_id", c.handle.Participant().ID.String()).
					Msg("failed to send ping")
				c.handle.Close()
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection. A
// malformed envelope drops this client and nobody else.
func (c *client) readPump() {
	defer func() {
		c.handle.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	name := c.handle.Participant().Name
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("name", name).Msg("unexpected WebSocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			log.Warn().Err(err).Str("name", name).Msg("dropping misbehaving WebSocket client")
			return
		}

		switch msg.Type {
		case protocol.MessageTypeAction:
			payload, err := protocol.ParsePayload(msg)
			if err != nil {
				log.Warn().Err(err).Str("name", name).Msg("dropping misbehaving WebSocket client")
				return
			}
			if err := c.handle.Submit(payload.(timer.Action)); err != nil {
				return
			}
		case protocol.MessageTypeGoodbye:
			log.Info().Str("name", name).Msg("WebSocket participant left")
			return
		default:
			log.Warn().Str("name", name).Str("type", string(msg.Type)).Msg("unexpected WebSocket frame")
			return
		}
	}
}
