// Package events fans lifecycle status changes out to logs and NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/peppol-connector/internal/model"
)

// DefaultSubjectPrefix is prepended to the lower-cased target status
const DefaultSubjectPrefix = "peppol.documents.status."

// Listener matches lifecycle.Listener
type Listener func(ctx context.Context, change model.StatusChange) error

// LogSubscriber writes one info entry per status change
func LogSubscriber(log logrus.FieldLogger) Listener {
	return func(ctx context.Context, change model.StatusChange) error {
		log.WithFields(logrus.Fields{
			"module":      "events",
			"document_id": change.DocumentID,
			"from":        change.From,
			"to":          change.To,
			"actor":       change.Actor,
		}).Info(statusMessage(change))
		return nil
	}
}

func statusMessage(change model.StatusChange) string {
	if change.Message != "" {
		return change.Message
	}
	return "status changed"
}

// Publisher is the subset of *nats.Conn used for fan-out
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes status changes as JSON to
// <prefix><lower-cased status>
type NATSPublisher struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an existing publisher. An empty prefix selects
// DefaultSubjectPrefix.
func NewNATSPublisher(pub Publisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	return &NATSPublisher{pub: pub, prefix: prefix}
}

// ConnectNATS dials a NATS server and returns a publisher that owns the
// connection
func ConnectNATS(url, prefix string) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.New("nats url is empty")
	}
	conn, err := nats.Connect(url, nats.Name("peppol-connector"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	p := NewNATSPublisher(conn, prefix)
	p.conn = conn
	return p, nil
}

// Subject returns the subject a change is published on
func (p *NATSPublisher) Subject(change model.StatusChange) string {
	return p.prefix + strings.ToLower(string(change.To))
}

// Notify publishes change. It has the Listener signature so it can be
// passed to Manager.Subscribe directly.
func (p *NATSPublisher) Notify(ctx context.Context, change model.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode status change: %w", err)
	}
	subject := p.Subject(change)
	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains the owned connection, if any
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
