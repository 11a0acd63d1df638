package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own connection. durable names
// the consumer so restarts resume where the last run stopped.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if durable == "" {
		durable = "alert-store"
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeAlerts delivers every alert published on alerts.reported.>.
// Payloads that do not decode, carry no id or carry invalid coordinates are
// terminated instead of redelivered; handler errors are NAKed up to
// MaxDeliver times.
func (s *Subscriber) SubscribeAlerts(ctx context.Context, handler func(ctx context.Context, p *domain.Point) error) error {
	sub, err := s.js.Subscribe(SubjectAlerts+".>", func(msg *nats.Msg) {
		p, err := decodeAlert(msg.Data)
		if err != nil {
			slog.Warn("dropping alert", "subject", msg.Subject, "error", err)
			metrics.AlertsRejected.WithLabelValues("feed").Inc()
			_ = msg.Term()
			return
		}
		if err := handler(ctx, p); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
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

// ErrMissingID is returned by decodeAlert for a feed alert without an id.
// The id keys the upsert that makes redelivery idempotent.
var ErrMissingID = errors.New("alert has no id")

func decodeAlert(data []byte) (*domain.Point, error) {
	var p domain.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if p.ID == "" {
		return nil, ErrMissingID
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("alert %s: %w", p.ID, err)
	}
	return &p, nil
}
