package model

import (
	"time"
)

// Peppol BIS Billing 3.0 identifiers
const (
	CustomizationBISBilling = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	ProfileBISBilling       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	DocumentTypeScheme = "busdox-docid-qns"
	ProcessScheme      = "cenbii-procid-ubl"

	InvoiceDocumentTypeID    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##" + CustomizationBISBilling + "::2.1"
	CreditNoteDocumentTypeID = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2::CreditNote##" + CustomizationBISBilling + "::2.1"
	BillingProcessID         = ProfileBISBilling
)

// QualifiedDocumentTypeID returns the scheme-qualified document type identifier
func QualifiedDocumentTypeID(id string) string {
	return DocumentTypeScheme + "::" + id
}

// QualifiedProcessID returns the scheme-qualified process identifier
func QualifiedProcessID(id string) string {
	return ProcessScheme + "::" + id
}

// DocumentTypeIDFor returns the Peppol document type id for a document kind
func DocumentTypeIDFor(kind DocumentKind) string {
	if kind == KindCreditNote {
		return CreditNoteDocumentTypeID
	}
	return InvoiceDocumentTypeID
}

// DocumentTypeIDOf derives the document type id from the document's root
// element and customization, falling back to BIS Billing 3.0
func DocumentTypeIDOf(doc *Document) string {
	if doc.CustomizationID == "" {
		return DocumentTypeIDFor(doc.Kind)
	}
	root := doc.RootElement()
	return "urn:oasis:names:specification:ubl:schema:xsd:" + root + "-2::" + root + "##" + doc.CustomizationID + "::2.1"
}

// Status is a lifecycle state of a registered document
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusValidated Status = "VALIDATED"
	StatusSigned    Status = "SIGNED"
	StatusSubmitted Status = "SUBMITTED"
	StatusDelivered Status = "DELIVERED"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusFailed    Status = "FAILED"
)

// AllStatuses lists every lifecycle state in table order
var AllStatuses = []Status{
	StatusDraft,
	StatusValidated,
	StatusSigned,
	StatusSubmitted,
	StatusDelivered,
	StatusAccepted,
	StatusRejected,
	StatusFailed,
}

// IsKnown reports whether s is one of the lifecycle states
func (s Status) IsKnown() bool {
	for _, k := range AllStatuses {
		if k == s {
			return true
		}
	}
	return false
}

// StatusRecord is one entry of the append-only status history
type StatusRecord struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

// Receipt records a delivery receipt reported by the access point
type Receipt struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// PeppolDocument is a registry entry wrapping a business document
type PeppolDocument struct {
	DocumentID           string         `json:"document_id"`
	DocumentType         DocumentKind   `json:"document_type"`
	Sender               Participant    `json:"sender"`
	Receiver             Participant    `json:"receiver"`
	DocumentTypeID       string         `json:"document_type_id"`
	ProcessID            string         `json:"process_id"`
	Status               Status         `json:"status"`
	StatusHistory        []StatusRecord `json:"status_history"`
	Document             Document       `json:"document"`
	XML                  []byte         `json:"xml,omitempty"`
	AccessPointMessageID string         `json:"access_point_message_id,omitempty"`
	ValidationErrors     []Finding      `json:"validation_errors,omitempty"`
	Receipt              *Receipt       `json:"receipt,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// HasXML reports whether a payload has been generated
func (p *PeppolDocument) HasXML() bool {
	return len(p.XML) > 0
}

// Clone returns a deep copy of the entry
func (p *PeppolDocument) Clone() *PeppolDocument {
	if p == nil {
		return nil
	}
	out := *p
	out.StatusHistory = append([]StatusRecord(nil), p.StatusHistory...)
	out.Document = p.Document.Clone()
	out.XML = append([]byte(nil), p.XML...)
	out.ValidationErrors = append([]Finding(nil), p.ValidationErrors...)
	if p.Receipt != nil {
		r := *p.Receipt
		out.Receipt = &r
	}
	return &out
}

// StatusChange is delivered to subscribers after a legal transition
type StatusChange struct {
	DocumentID string    `json:"document_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Message    string    `json:"message,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
