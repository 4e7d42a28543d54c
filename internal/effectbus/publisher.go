// Package effectbus publishes timer lifecycle events to NATS so external
// automations (status lights, do-not-disturb toggles, dashboards) can
// react to the shared timer without joining the session.
package effectbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/timer"
)

// Config holds the NATS connection settings for the effect bus.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default effect bus configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "pomosync.effects",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Event is the envelope published for every observable timer change.
type Event struct {
	EventID   string        `json:"event_id"`
	Effect    timer.Effect  `json:"effect"`
	Phase     timer.Phase   `json:"phase"`
	Running   bool          `json:"running"`
	Remaining time.Duration `json:"remaining"`
	Cycle     int           `json:"cycle"`
	Version   uint64        `json:"version"`
	At        time.Time     `json:"at"`
}

// Publisher forwards effectful snapshots from a hub tap onto NATS.
type Publisher struct {
	nc     *nats.Conn
	config Config
}

// NewPublisher connects to NATS and returns a publisher ready to run.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("subject_prefix", cfg.SubjectPrefix).
		Msg("effect bus connected")

	return &Publisher{nc: nc, config: cfg}, nil
}

// Run drains a snapshot stream, publishing every effectful change. It
// returns when the stream closes or ctx is cancelled. Roster pushes and
// other no-effect snapshots are skipped.
func (p *Publisher) Run(ctx context.Context, snapshots <-chan protocol.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if snap.Effect == timer.EffectNone {
				continue
			}
			if err := p.publish(snap); err != nil {
				log.Error().
					Err(err).
					Str("effect", string(snap.Effect)).
					Uint64("version", snap.Version).
					Msg("failed to publish effect")
			}
		}
	}
}

func (p *Publisher) publish(snap protocol.Snapshot) error {
	event := eventFrom(snap)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := subjectFor(p.config.SubjectPrefix, snap.Effect)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.EventID).
		Uint64("version", event.Version).
		Msg("published effect")

	return nil
}

// Close flushes pending publishes and drops the connection.
func (p *Publisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Flush(); err != nil {
			log.Debug().Err(err).Msg("NATS flush failed")
		}
		p.nc.Close()
	}
	return nil
}

// eventFrom freezes one snapshot into a publishable envelope.
func eventFrom(snap protocol.Snapshot) Event {
	return Event{
		EventID:   uuid.New().String(),
		Effect:    snap.Effect,
		Phase:     snap.Phase,
		Running:   snap.Running,
		Remaining: snap.Remaining,
		Cycle:     snap.Cycle,
		Version:   snap.Version,
		At:        snap.HostTime,
	}
}

// subjectFor maps an effect onto its bus subject, e.g.
// pomosync.effects.phase_changed.
func subjectFor(prefix string, eff timer.Effect) string {
	return fmt.Sprintf("%s.%s", prefix, strings.ToLower(string(eff)))
}
