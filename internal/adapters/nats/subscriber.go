package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber. Region updates use a plain
// core subscription so every API instance sees every event.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeRegionsUpdated invokes handler for each regions.updated event.
func (s *Subscriber) SubscribeRegionsUpdated(ctx context.Context, handler func(ctx context.Context, event *domain.RegionsUpdated) error) error {
	sub, err := s.conn.Subscribe(SubjectRegionsUpdated, func(msg *nats.Msg) {
		var event domain.RegionsUpdated
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("discarding malformed regions event", "error", err)
			return
		}
		if err := handler(ctx, &event); err != nil {
			slog.Warn("regions event handler failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
