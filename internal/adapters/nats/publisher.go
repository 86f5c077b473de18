package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// Subject prefixes.
const (
	MapSubjectPrefix = "isoview.map."
	MapSubjectAll    = "isoview.map.>"
	LocationSubject  = "isoview.command.location"
)

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

// MapPublisher implements ports.MapView by publishing each map command as a
// JSON MapEvent on isoview.map.<command>.
type MapPublisher struct {
	conn conn
	now  func() time.Time
}

// NewMapPublisher wraps an established connection.
func NewMapPublisher(nc *nats.Conn) *MapPublisher {
	return newMapPublisher(nc)
}

func newMapPublisher(c conn) *MapPublisher {
	return &MapPublisher{conn: c, now: time.Now}
}

func (p *MapPublisher) publish(ev domain.MapEvent) error {
	ev.At = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Command, err)
	}
	if err := p.conn.Publish(MapSubjectPrefix+ev.Command, data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Command, err)
	}
	return nil
}

func (p *MapPublisher) Create(ctx context.Context, setup domain.MapSetup) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandCreate, Setup: &setup})
}

func (p *MapPublisher) SetSourceData(ctx context.Context, sourceID string, fc *domain.FeatureCollection) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandSourceData, SourceID: sourceID, Data: fc})
}

func (p *MapPublisher) SetMarker(ctx context.Context, c domain.Coordinate) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandMarker, Coordinate: &c})
}

func (p *MapPublisher) FlyTo(ctx context.Context, c domain.Coordinate) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandFlyTo, Coordinate: &c})
}

func (p *MapPublisher) FocusSearch(ctx context.Context) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandFocusSearch})
}

func (p *MapPublisher) Dispose(ctx context.Context) error {
	return p.publish(domain.MapEvent{Command: domain.MapCommandDispose})
}

// Connect opens a NATS connection that keeps reconnecting.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("isoview"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}
