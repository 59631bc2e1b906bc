package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends alert events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, event any) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NATSPublisher publishes JSON-encoded alert events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url with automatic
// reconnection.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("orgpulse-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
