// Package lifecycle owns the registry of Peppol documents and moves them
// through the status state machine. Every mutation goes through a Manager.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/registry"
	"github.com/rezonia/peppol-connector/internal/rules"
	"github.com/rezonia/peppol-connector/internal/ubl"
)

const tracerName = "github.com/rezonia/peppol-connector/internal/lifecycle"

// Listener is notified after every legal status transition
type Listener func(ctx context.Context, change model.StatusChange) error

// Manager is the single writer of the document registry
type Manager struct {
	store       registry.Store
	transmitter network.Transmitter
	discovery   network.Discovery
	validate    Validator
	log         logrus.FieldLogger
	now         func() time.Time
	callTimeout time.Duration
	tracer      trace.Tracer

	locks *keyedMutex

	subMu       sync.RWMutex
	subscribers []Listener

	flightMu sync.Mutex
	inFlight map[string]struct{}
}

// NewManager creates a manager over store
func NewManager(store registry.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		validate: rules.Validate,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
		locks:    newKeyedMutex(),
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRequest registers a new document. Sender and Receiver default to
// the seller and buyer endpoint ids; DocumentID defaults to a random UUID.
type CreateRequest struct {
	DocumentID string            `json:"document_id,omitempty"`
	Sender     model.Participant `json:"sender"`
	Receiver   model.Participant `json:"receiver"`
	Document   model.Document    `json:"document"`
	Actor      string            `json:"actor,omitempty"`
}

// Filter narrows ListDocuments; zero fields match everything
type Filter struct {
	Status       model.Status       `json:"status,omitempty"`
	DocumentType model.DocumentKind `json:"document_type,omitempty"`
}

func (f Filter) matches(doc *model.PeppolDocument) bool {
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.DocumentType != "" && doc.DocumentType != f.DocumentType {
		return false
	}
	return true
}

// SubmitResult is the outcome of a send. A remote or transport failure is
// Success=false with Error set and leaves the document FAILED.
type SubmitResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Statistics counts registry entries, computed by scanning the store
type Statistics struct {
	Total    int                        `json:"total"`
	ByStatus map[model.Status]int       `json:"by_status"`
	ByType   map[model.DocumentKind]int `json:"by_type"`
}

func (m *Manager) logger(id string) logrus.FieldLogger {
	return m.log.WithFields(logrus.Fields{
		"module":      "lifecycle",
		"document_id": id,
	})
}

// Subscribe registers a listener. Listeners run synchronously in
// registration order after the transition has been stored.
func (m *Manager) Subscribe(l Listener) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, l)
}

// CreateDocument inserts a new entry in DRAFT with one history record
func (m *Manager) CreateDocument(ctx context.Context, req CreateRequest) (*model.PeppolDocument, error) {
	id := req.DocumentID
	if id == "" {
		id = uuid.NewString()
	}

	sender := req.Sender
	if sender == (model.Participant{}) {
		sender = model.ParticipantFromEndpoint(req.Document.Seller.EndpointID)
	}
	receiver := req.Receiver
	if receiver == (model.Participant{}) {
		receiver = model.ParticipantFromEndpoint(req.Document.Buyer.EndpointID)
	}
	if err := sender.Validate(); err != nil {
		return nil, NewError(ErrCodeInvalidDocument, id, "invalid sender", err)
	}
	if err := receiver.Validate(); err != nil {
		return nil, NewError(ErrCodeInvalidDocument, id, "invalid receiver", err)
	}

	kind := req.Document.Kind
	if kind == "" {
		kind = model.KindInvoice
	}
	doc := req.Document.Clone()
	doc.Kind = kind

	release := m.locks.Lock(id)
	defer release()

	if _, err := m.store.Get(ctx, id); err == nil {
		return nil, NewError(ErrCodeAlreadyExists, id, "document already registered", nil)
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, NewError(ErrCodeStoreFailure, id, "failed to read registry", err)
	}

	now := m.now()
	entry := &model.PeppolDocument{
		DocumentID:     id,
		DocumentType:   kind,
		Sender:         sender,
		Receiver:       receiver,
		DocumentTypeID: model.QualifiedDocumentTypeID(model.DocumentTypeIDOf(&doc)),
		ProcessID:      model.QualifiedProcessID(model.BillingProcessID),
		Status:         model.StatusDraft,
		StatusHistory: []model.StatusRecord{
			{Status: model.StatusDraft, Timestamp: now, Message: "document created", Actor: req.Actor},
		},
		Document:  doc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Put(ctx, entry); err != nil {
		return nil, NewError(ErrCodeStoreFailure, id, "failed to store document", err)
	}

	m.logger(id).WithField("type", kind).Info("document created")
	return entry.Clone(), nil
}

// GetDocument returns a copy of the entry
func (m *Manager) GetDocument(ctx context.Context, id string) (*model.PeppolDocument, error) {
	doc, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(id, err)
	}
	return doc, nil
}

// ListDocuments returns entries matching filter in creation order
func (m *Manager) ListDocuments(ctx context.Context, filter Filter) ([]*model.PeppolDocument, error) {
	docs, err := m.store.List(ctx)
	if err != nil {
		return nil, NewError(ErrCodeStoreFailure, "", "failed to list documents", err)
	}
	out := make([]*model.PeppolDocument, 0, len(docs))
	for _, doc := range docs {
		if filter.matches(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// RemoveDocument deletes an entry
func (m *Manager) RemoveDocument(ctx context.Context, id string) error {
	release := m.locks.Lock(id)
	defer release()

	if err := m.store.Delete(ctx, id); err != nil {
		return storeError(id, err)
	}
	m.logger(id).Info("document removed")
	return nil
}

// TransitionStatus moves a document to target. It returns false, logs, and
// leaves the entry untouched when the document is unknown, is being
// submitted, or the transition is not in the table.
func (m *Manager) TransitionStatus(ctx context.Context, id string, target model.Status, message, actor string) bool {
	_, err := m.update(ctx, id, func(doc *model.PeppolDocument) (*model.StatusChange, error) {
		if m.inFlightNow(id) {
			return nil, NewError(ErrCodeInFlight, id, "submission in progress", nil)
		}
		return m.record(doc, target, message, actor)
	})
	if err != nil {
		m.logger(id).WithError(err).WithField("target", target).Warn("status transition refused")
		return false
	}
	return true
}

// ValidateDocument runs the configured rule set. On success the document
// moves to VALIDATED when the table allows it; on failure the findings are
// stored and the status is unchanged.
func (m *Manager) ValidateDocument(ctx context.Context, id string) (model.ValidationResult, error) {
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return model.ValidationResult{}, storeError(id, err)
	}
	result := m.validate(&current.Document)

	_, err = m.update(ctx, id, func(doc *model.PeppolDocument) (*model.StatusChange, error) {
		if !result.Valid {
			doc.ValidationErrors = append([]model.Finding(nil), result.Errors...)
			doc.UpdatedAt = m.now()
			return nil, nil
		}
		doc.ValidationErrors = nil
		doc.UpdatedAt = m.now()
		if !CanTransition(doc.Status, model.StatusValidated) {
			return nil, nil
		}
		return m.record(doc, model.StatusValidated, "validation passed", "validator")
	})
	if err != nil {
		return result, err
	}

	m.logger(id).WithFields(logrus.Fields{
		"valid":    result.Valid,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	}).Info("document validated")
	return result, nil
}

// SetDocumentXml stores the UBL payload sent by SubmitDocument
func (m *Manager) SetDocumentXml(ctx context.Context, id string, xml []byte) error {
	if len(xml) == 0 {
		return NewError(ErrCodeMissingXML, id, "xml payload is empty", nil)
	}
	_, err := m.update(ctx, id, func(doc *model.PeppolDocument) (*model.StatusChange, error) {
		if !editable(doc.Status) {
			return nil, NewError(ErrCodeInvalidState, id, fmt.Sprintf("cannot replace xml in status %s", doc.Status), nil)
		}
		doc.XML = append([]byte(nil), xml...)
		doc.UpdatedAt = m.now()
		return nil, nil
	})
	return err
}

// GenerateXML renders the registered document to UBL and stores it
func (m *Manager) GenerateXML(ctx context.Context, id string) ([]byte, error) {
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(id, err)
	}
	xml, err := ubl.Render(&current.Document)
	if err != nil {
		return nil, NewError(ErrCodeInvalidDocument, id, "failed to render document", err)
	}
	if err := m.SetDocumentXml(ctx, id, xml); err != nil {
		return nil, err
	}
	return xml, nil
}

// SubmitDocument sends a VALIDATED or SIGNED document with stored XML to
// the Access Point. Illegal requests return an *Error; collaborator
// failures move the document to FAILED and are reported in the result.
func (m *Manager) SubmitDocument(ctx context.Context, id string) (*SubmitResult, error) {
	if m.transmitter == nil {
		return nil, NewError(ErrCodeNoTransmitter, id, "no transmitter configured", nil)
	}
	if !m.acquireFlight(id) {
		return nil, NewError(ErrCodeInFlight, id, "submission already in progress", nil)
	}
	defer m.releaseFlight(id)

	// Read under the document lock so a TransitionStatus that started before
	// the flight was registered has landed.
	release := m.locks.Lock(id)
	doc, err := m.store.Get(ctx, id)
	release()
	if err != nil {
		return nil, storeError(id, err)
	}
	if doc.Status != model.StatusValidated && doc.Status != model.StatusSigned {
		return nil, NewError(ErrCodeInvalidState, id, fmt.Sprintf("cannot submit in status %s", doc.Status), nil)
	}
	if !doc.HasXML() {
		return nil, NewError(ErrCodeMissingXML, id, "no xml payload generated", nil)
	}

	log := m.logger(id)
	messageID, failure := m.send(ctx, doc)
	if failure != "" {
		log.WithField("reason", failure).Error("submission failed")
		_, err := m.update(ctx, id, func(d *model.PeppolDocument) (*model.StatusChange, error) {
			return m.record(d, model.StatusFailed, failure, "transmitter")
		})
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Success: false, Error: failure}, nil
	}

	_, err = m.update(ctx, id, func(d *model.PeppolDocument) (*model.StatusChange, error) {
		change, err := m.record(d, model.StatusSubmitted, "submitted to access point", "transmitter")
		if err != nil {
			return nil, err
		}
		d.AccessPointMessageID = messageID
		return change, nil
	})
	if err != nil {
		log.WithField("message_id", messageID).WithError(err).Error("accepted message could not be recorded")
		return nil, err
	}
	log.WithField("message_id", messageID).Info("document submitted")
	return &SubmitResult{Success: true, MessageID: messageID}, nil
}

// send runs discovery and transmission outside any registry lock and
// returns either a message id or a failure description
func (m *Manager) send(ctx context.Context, doc *model.PeppolDocument) (string, string) {
	ctx, span := m.tracer.Start(ctx, "lifecycle.send", trace.WithAttributes(
		attribute.String("document.id", doc.DocumentID),
		attribute.String("peppol.receiver", doc.Receiver.String()),
		attribute.String("peppol.document_type", doc.DocumentTypeID),
	))
	defer span.End()

	fail := func(msg string, err error) (string, string) {
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, msg)
		return "", msg
	}

	if m.discovery != nil {
		callCtx, cancel := m.callContext(ctx)
		ok, err := m.discovery.CanReceive(callCtx, doc.Receiver, doc.DocumentTypeID)
		cancel()
		if err != nil {
			return fail(fmt.Sprintf("discovery failed: %v", err), err)
		}
		if !ok {
			return fail(fmt.Sprintf("receiver %s cannot receive %s", doc.Receiver, doc.DocumentType), nil)
		}
	}

	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	res, err := m.transmitter.Send(callCtx, network.SendRequest{
		Sender:         doc.Sender,
		Receiver:       doc.Receiver,
		DocumentTypeID: doc.DocumentTypeID,
		ProcessID:      doc.ProcessID,
		XML:            doc.XML,
		Metadata:       map[string]string{"document_id": doc.DocumentID},
	})
	if err != nil {
		return fail(fmt.Sprintf("transmission failed: %v", err), err)
	}
	if res == nil || !res.Success {
		reason := "access point rejected the message"
		if res != nil && res.Error != "" {
			reason = res.Error
		}
		return fail(reason, nil)
	}
	span.SetAttributes(attribute.String("peppol.message_id", res.MessageID))
	return res.MessageID, ""
}

// RefreshDocumentStatus polls the Access Point for the stored message id
// and applies the mapped status. A delivery receipt is recorded once.
func (m *Manager) RefreshDocumentStatus(ctx context.Context, id string) (*model.PeppolDocument, error) {
	if m.transmitter == nil {
		return nil, NewError(ErrCodeNoTransmitter, id, "no transmitter configured", nil)
	}
	doc, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(id, err)
	}
	if doc.AccessPointMessageID == "" {
		return nil, NewError(ErrCodeInvalidState, id, "document has not been submitted", nil)
	}

	ctx, span := m.tracer.Start(ctx, "lifecycle.refresh", trace.WithAttributes(
		attribute.String("document.id", id),
		attribute.String("peppol.message_id", doc.AccessPointMessageID),
	))
	defer span.End()

	callCtx, cancel := m.callContext(ctx)
	status, err := m.transmitter.GetStatus(callCtx, doc.AccessPointMessageID)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status poll failed")
		return nil, NewError(ErrCodeStatusUnavailable, id, "failed to poll access point", err)
	}
	if status == nil {
		span.SetStatus(codes.Error, "empty status")
		return nil, NewError(ErrCodeStatusUnavailable, id, "access point returned no status", nil)
	}
	target, ok := mapExternal(string(status.Status))
	if !ok {
		return nil, NewError(ErrCodeInvalidState, id, fmt.Sprintf("unknown access point status %q", status.Status), nil)
	}

	return m.update(ctx, id, func(d *model.PeppolDocument) (*model.StatusChange, error) {
		if status.ReceiptID != "" && d.Receipt == nil {
			d.Receipt = &model.Receipt{ID: status.ReceiptID, ReceivedAt: m.now()}
			d.UpdatedAt = m.now()
		}
		if d.Status == target {
			return nil, nil
		}
		message := status.Message
		if message == "" {
			message = fmt.Sprintf("access point reported %s", status.Status)
		}
		return m.record(d, target, message, "access-point")
	})
}

// Statistics counts entries by status and type
func (m *Manager) Statistics(ctx context.Context) (*Statistics, error) {
	docs, err := m.store.List(ctx)
	if err != nil {
		return nil, NewError(ErrCodeStoreFailure, "", "failed to list documents", err)
	}
	stats := &Statistics{
		Total:    len(docs),
		ByStatus: make(map[model.Status]int),
		ByType:   make(map[model.DocumentKind]int),
	}
	for _, doc := range docs {
		stats.ByStatus[doc.Status]++
		stats.ByType[doc.DocumentType]++
	}
	return stats, nil
}

// update runs fn on the stored entry under the document lock and writes
// the result back. Subscribers are notified after the lock is released.
func (m *Manager) update(ctx context.Context, id string, fn func(doc *model.PeppolDocument) (*model.StatusChange, error)) (*model.PeppolDocument, error) {
	release := m.locks.Lock(id)
	doc, err := m.store.Get(ctx, id)
	if err != nil {
		release()
		return nil, storeError(id, err)
	}
	change, err := fn(doc)
	if err != nil {
		release()
		return nil, err
	}
	if err := m.store.Put(ctx, doc); err != nil {
		release()
		return nil, NewError(ErrCodeStoreFailure, id, "failed to store document", err)
	}
	release()

	if change != nil {
		m.notify(ctx, *change)
	}
	return doc.Clone(), nil
}

// record checks the table and appends one history record
func (m *Manager) record(doc *model.PeppolDocument, target model.Status, message, actor string) (*model.StatusChange, error) {
	from := doc.Status
	if !CanTransition(from, target) {
		return nil, NewError(ErrCodeIllegalTransition, doc.DocumentID,
			fmt.Sprintf("transition %s -> %s is not allowed", from, target), nil)
	}
	now := m.now()
	doc.Status = target
	doc.StatusHistory = append(doc.StatusHistory, model.StatusRecord{
		Status:    target,
		Timestamp: now,
		Message:   message,
		Actor:     actor,
	})
	doc.UpdatedAt = now
	return &model.StatusChange{
		DocumentID: doc.DocumentID,
		From:       from,
		To:         target,
		Message:    message,
		Actor:      actor,
		Timestamp:  now,
	}, nil
}

func (m *Manager) notify(ctx context.Context, change model.StatusChange) {
	m.subMu.RLock()
	subs := append([]Listener(nil), m.subscribers...)
	m.subMu.RUnlock()

	for i, l := range subs {
		if err := m.deliver(ctx, l, change); err != nil {
			m.logger(change.DocumentID).WithError(err).WithFields(logrus.Fields{
				"subscriber": i,
				"from":       change.From,
				"to":         change.To,
			}).Error("status subscriber failed")
		}
	}
}

func (m *Manager) deliver(ctx context.Context, l Listener, change model.StatusChange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return l(ctx, change)
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.callTimeout > 0 {
		return context.WithTimeout(ctx, m.callTimeout)
	}
	return context.WithCancel(ctx)
}

func (m *Manager) acquireFlight(id string) bool {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Manager) inFlightNow(id string) bool {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	_, busy := m.inFlight[id]
	return busy
}

func (m *Manager) releaseFlight(id string) {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	delete(m.inFlight, id)
}

// editable reports whether the payload may still be replaced
func editable(s model.Status) bool {
	return s == model.StatusDraft || s == model.StatusValidated || s == model.StatusSigned
}

func storeError(id string, err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return NewError(ErrCodeNotFound, id, "document not found", err)
	}
	var lerr *Error
	if errors.As(err, &lerr) {
		return err
	}
	return NewError(ErrCodeStoreFailure, id, "registry access failed", err)
}
