package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SentMessage is a message accepted by MemoryGateway
type SentMessage struct {
	Request SendRequest
	Status  MessageStatus
}

// MemoryGateway is an in-process Transmitter. Messages are accepted
// immediately in status "sent"; tests and the demo server move them on with
// SetStatus or Deliver.
type MemoryGateway struct {
	mu       sync.Mutex
	messages map[string]*SentMessage
	order    []string
	reject   func(SendRequest) string
	sendErr  error
	now      func() time.Time
}

// GatewayOption configures a MemoryGateway
type GatewayOption func(*MemoryGateway)

// WithRejection makes Send refuse requests for which fn returns a reason
func WithRejection(fn func(SendRequest) string) GatewayOption {
	return func(g *MemoryGateway) {
		g.reject = fn
	}
}

// WithSendError makes every Send fail with err
func WithSendError(err error) GatewayOption {
	return func(g *MemoryGateway) {
		g.sendErr = err
	}
}

// WithGatewayClock overrides the timestamp source
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *MemoryGateway) {
		g.now = now
	}
}

// NewMemoryGateway creates an empty gateway
func NewMemoryGateway(opts ...GatewayOption) *MemoryGateway {
	g := &MemoryGateway{
		messages: make(map[string]*SentMessage),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send accepts the request and returns a new message id
func (g *MemoryGateway) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sendErr != nil {
		return nil, g.sendErr
	}
	if len(req.XML) == 0 {
		return &SendResult{Success: false, Error: "empty payload"}, nil
	}
	if g.reject != nil {
		if reason := g.reject(req); reason != "" {
			return &SendResult{Success: false, Error: reason}, nil
		}
	}

	id := uuid.NewString()
	msg := &SentMessage{
		Request: req,
		Status:  MessageStatus{MessageID: id, Status: StatusSent, UpdatedAt: g.now()},
	}
	msg.Request.XML = append([]byte(nil), req.XML...)
	g.messages[id] = msg
	g.order = append(g.order, id)
	return &SendResult{Success: true, MessageID: id}, nil
}

// GetStatus returns the current status of a message
func (g *MemoryGateway) GetStatus(ctx context.Context, messageID string) (*MessageStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	msg, ok := g.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	status := msg.Status
	return &status, nil
}

// SetStatus moves a message to a new external status
func (g *MemoryGateway) SetStatus(messageID string, status ExternalStatus, receiptID, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	msg, ok := g.messages[messageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	msg.Status.Status = status
	msg.Status.ReceiptID = receiptID
	msg.Status.Message = message
	msg.Status.UpdatedAt = g.now()
	return nil
}

// Deliver marks a message delivered with a fresh receipt id
func (g *MemoryGateway) Deliver(messageID string) (string, error) {
	receipt := uuid.NewString()
	if err := g.SetStatus(messageID, StatusDelivered, receipt, ""); err != nil {
		return "", err
	}
	return receipt, nil
}

// Sent returns accepted messages in send order
func (g *MemoryGateway) Sent() []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]SentMessage, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.messages[id])
	}
	return out
}
