package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoengine/internal/core/domain"
	"github.com/samirrijal/geoengine/internal/pkg/metrics"
)

// Subjects used on the wire. Alerts are keyed by category and snapshots by
// the S2 region token they were computed for.
const (
	SubjectAlerts    = "alerts.reported"
	SubjectSnapshots = "clusters.snapshot"
)

// AlertSubject returns the subject an alert of the given category is published on.
func AlertSubject(category string) string {
	if category == "" {
		category = "unknown"
	}
	return SubjectAlerts + "." + category
}

// SnapshotSubject returns the subject a snapshot for region is published on.
func SnapshotSubject(region string) string {
	return SubjectSnapshots + "." + region
}

// Streams lists the JetStream streams the publisher keeps in place.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "ALERTS",
			Subjects:  []string{SubjectAlerts + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:              "CLUSTERS",
			Subjects:          []string{SubjectSnapshots + ".>"},
			Retention:         nats.LimitsPolicy,
			MaxAge:            1 * time.Hour,
			MaxMsgsPerSubject: 1,
			Storage:           nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAlert publishes a stored alert on alerts.reported.<category>.
func (p *Publisher) PublishAlert(ctx context.Context, a *domain.Point) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AlertSubject(a.Category), data, nats.Context(ctx))
	return err
}

// PublishClusterSnapshot publishes the latest clusters for a region. Only the
// newest snapshot per region is retained.
func (p *Publisher) PublishClusterSnapshot(ctx context.Context, snap *domain.ClusterSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(SnapshotSubject(snap.Region), data, nats.Context(ctx)); err != nil {
		return err
	}
	metrics.SnapshotsPublished.Inc()
	return nil
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
