// Package peppol provides a public API for building, checking and
// exchanging Peppol BIS Billing 3.0 documents.
//
// This package exposes the document model, the rule engine with its
// XRechnung overlay, UBL 2.1 rendering and reading, and the document
// lifecycle manager.
//
// Example usage:
//
//	result := peppol.Validate(&doc)
//	if !result.Valid {
//	    log.Fatal(result.Errors)
//	}
//	xml, err := peppol.Render(&doc)
package peppol

import (
	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/registry"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

// Re-export core types for public API
type (
	Document         = model.Document
	DocumentKind     = model.DocumentKind
	Party            = model.Party
	Line             = model.Line
	Identifier       = model.Identifier
	Participant      = model.Participant
	PeppolDocument   = model.PeppolDocument
	Status           = model.Status
	StatusChange     = model.StatusChange
	ValidationResult = model.ValidationResult
	Finding          = model.Finding
	Severity         = model.Severity
)

// Re-export document kinds
const (
	KindInvoice    = model.KindInvoice
	KindCreditNote = model.KindCreditNote
)

// Re-export lifecycle states
const (
	StatusDraft     = model.StatusDraft
	StatusValidated = model.StatusValidated
	StatusSigned    = model.StatusSigned
	StatusSubmitted = model.StatusSubmitted
	StatusDelivered = model.StatusDelivered
	StatusAccepted  = model.StatusAccepted
	StatusRejected  = model.StatusRejected
	StatusFailed    = model.StatusFailed
)

// Re-export XRechnung and lifecycle types
type (
	RoutingIdentifier = xrechnung.RoutingIdentifier
	Manager           = lifecycle.Manager
	ManagerOption     = lifecycle.Option
	CreateRequest     = lifecycle.CreateRequest
	SubmitResult      = lifecycle.SubmitResult
	Store             = registry.Store
	Transmitter       = network.Transmitter
	Discovery         = network.Discovery
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	LifecycleError  = lifecycle.Error
)
