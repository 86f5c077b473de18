package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// CommandSubscriber implements ports.LocationCommandSubscriber.
type CommandSubscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewCommandSubscriber shares an existing connection.
func NewCommandSubscriber(nc *nats.Conn) *CommandSubscriber {
	return &CommandSubscriber{conn: nc}
}

// SubscribeLocationCommands delivers {"lng":..,"lat":..} messages published
// on LocationSubject. Invalid payloads are logged and dropped.
func (s *CommandSubscriber) SubscribeLocationCommands(ctx context.Context, handler func(ctx context.Context, c domain.Coordinate) error) error {
	sub, err := s.conn.Subscribe(LocationSubject, func(msg *nats.Msg) {
		c, err := decodeLocation(msg.Data)
		if err != nil {
			slog.Warn("dropping location command", "error", err)
			return
		}
		if err := handler(ctx, c); err != nil {
			slog.Warn("location command failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", LocationSubject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func decodeLocation(data []byte) (domain.Coordinate, error) {
	var c domain.Coordinate
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode location: %w", err)
	}
	if !c.Valid() {
		return c, fmt.Errorf("location out of range: %v", c)
	}
	return c, nil
}

// Close unsubscribes every subscription. The connection is left open.
func (s *CommandSubscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}
