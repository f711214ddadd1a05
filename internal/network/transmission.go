package network

import (
	"context"
	"errors"
	"time"

	"github.com/rezonia/peppol-connector/internal/model"
)

// ExternalStatus is a message status as reported by the Access Point
type ExternalStatus string

const (
	StatusPending   ExternalStatus = "pending"
	StatusSent      ExternalStatus = "sent"
	StatusDelivered ExternalStatus = "delivered"
	StatusRejected  ExternalStatus = "rejected"
	StatusFailed    ExternalStatus = "failed"
)

// ErrUnknownMessage is returned by GetStatus for message ids the gateway never issued
var ErrUnknownMessage = errors.New("unknown message id")

// SendRequest is one outbound business document
type SendRequest struct {
	Sender         model.Participant `json:"sender"`
	Receiver       model.Participant `json:"receiver"`
	DocumentTypeID string            `json:"document_type_id"`
	ProcessID      string            `json:"process_id"`
	XML            []byte            `json:"-"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SendResult is the gateway's answer to Send. A remote rejection is
// Success=false with Error set; transport failures are returned as errors.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MessageStatus is the delivery state of a sent message
type MessageStatus struct {
	MessageID string         `json:"message_id"`
	Status    ExternalStatus `json:"status"`
	ReceiptID string         `json:"receipt_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Transmitter hands documents to an Access Point. Implementations enforce
// their own timeouts and retries.
type Transmitter interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	GetStatus(ctx context.Context, messageID string) (*MessageStatus, error)
}
