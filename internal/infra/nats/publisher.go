package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"knowledge-race/internal/domain"
)

const (
	DefaultSubjectPrefix = "knowledge-race.events"

	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
}

// EventPublisher fans round and match notifications out on NATS subjects
// <prefix>.<matchID>.<type>. Publishing is buffered by the client, so it never
// blocks the match that emitted the events.
type EventPublisher struct {
	nc     conn
	prefix string
}

func NewEventPublisher(nc conn, prefix string) *EventPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &EventPublisher{nc: nc, prefix: prefix}
}

// Connect dials NATS with reconnect handling.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("knowledge-race"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
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
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (p *EventPublisher) Publish(_ context.Context, events []domain.Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if err := p.nc.Publish(p.Subject(ev), data); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
	return nil
}

// Subject returns the subject an event is published on.
func (p *EventPublisher) Subject(ev domain.Event) string {
	matchID := ev.MatchID
	if matchID == "" {
		matchID = "unknown"
	}
	return p.prefix + "." + matchID + "." + string(ev.Type)
}
