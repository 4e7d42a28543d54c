package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/pomosync/internal/timer"
)

// Message is the base structure for everything exchanged over a session
// connection.
type Message struct {
	ID        string          `json:"id"`        // Message UUID
	Type      MessageType     `json:"type"`      // Message type
	Timestamp time.Time       `json:"timestamp"` // Message creation time
	Data      json.RawMessage `json:"data,omitempty"`
}

// MessageType represents the type of session message.
type MessageType string

const (
	MessageTypeHello    MessageType = "Hello"    // client -> host, first frame
	MessageTypeAction   MessageType = "Action"   // client -> host
	MessageTypeGoodbye  MessageType = "Goodbye"  // client -> host, clean leave
	MessageTypeSnapshot MessageType = "Snapshot" // host -> client
	MessageTypeReject   MessageType = "Reject"   // host -> client, then close
)

var knownMessageTypes = map[MessageType]bool{
	MessageTypeHello:    true,
	MessageTypeAction:   true,
	MessageTypeGoodbye:  true,
	MessageTypeSnapshot: true,
	MessageTypeReject:   true,
}

// Hello introduces a connecting participant to the host.
type Hello struct {
	Name string `json:"name"`
}

// Reject tells a connecting participant why the host refused it.
type Reject struct {
	Reason string `json:"reason"`
}

// Member is one entry of the session roster, ordered by join time.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JoinOrder int    `json:"join_order"`
}

// Snapshot is the full shared state the host pushes after every change.
// Deadlines never cross hosts: Remaining is frozen at HostTime and the
// receiver anchors a fresh deadline on its own clock, so skewed wall
// clocks cannot bend the countdown.
type Snapshot struct {
	Version   uint64         `json:"version"`
	Phase     timer.Phase    `json:"phase"`
	Running   bool           `json:"running"`
	Total     time.Duration  `json:"total"`
	Remaining time.Duration  `json:"remaining"`
	Cycle     int            `json:"cycle"`
	Effect    timer.Effect   `json:"effect"`
	Settings  timer.Settings `json:"settings"`
	Members   []Member       `json:"members,omitempty"`
	HostTime  time.Time      `json:"host_time"`
}

// SnapshotFrom freezes one state observation for the wire.
func SnapshotFrom(s timer.State, eff timer.Effect, members []Member, now time.Time) Snapshot {
	return Snapshot{
		Version:   s.Version,
		Phase:     s.Phase,
		Running:   s.Running,
		Total:     s.Total,
		Remaining: s.RemainingAt(now),
		Cycle:     s.Cycle,
		Effect:    eff,
		Settings:  s.Settings,
		Members:   members,
		HostTime:  now,
	}
}

// State rebuilds a local timer state from the snapshot, anchored at the
// receiver's current time.
func (s Snapshot) State(now time.Time) timer.State {
	state := timer.State{
		Phase:    s.Phase,
		Total:    s.Total,
		Running:  s.Running,
		Cycle:    s.Cycle,
		Settings: s.Settings,
		Version:  s.Version,
	}
	if s.Running {
		state.Deadline = now.Add(s.Remaining)
	} else {
		state.Remaining = s.Remaining
	}
	return state
}

// NewMessage wraps a payload in a stamped message envelope.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	msg := Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		msg.Data = data
	}
	return msg, nil
}

// DecodeMessage parses one frame payload into a message envelope. Frames
// that are not JSON or carry an unknown type are malformed.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !knownMessageTypes[msg.Type] {
		return Message{}, fmt.Errorf("%w: unknown message type %q", ErrMalformedFrame, msg.Type)
	}
	return msg, nil
}

// ParsePayload parses message data into the appropriate payload struct.
func ParsePayload(msg Message) (any, error) {
	switch msg.Type {
	case MessageTypeHello:
		var payload Hello
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: hello payload: %v", ErrMalformedFrame, err)
		}
		return payload, nil

	case MessageTypeAction:
		var payload timer.Action
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: action payload: %v", ErrMalformedFrame, err)
		}
		return payload, nil

	case MessageTypeSnapshot:
		var payload Snapshot
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: snapshot payload: %v", ErrMalformedFrame, err)
		}
		return payload, nil

	case MessageTypeReject:
		var payload Reject
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: reject payload: %v", ErrMalformedFrame, err)
		}
		return payload, nil

	case MessageTypeGoodbye:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrMalformedFrame, msg.Type)
	}
}

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, msgType MessageType, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}
	return WriteFrame(w, data)
}

// ReadMessage reads and decodes one framed message.
func ReadMessage(r io.Reader) (Message, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return Message{}, err
	}
	return DecodeMessage(data)
}
