package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/rules"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

// Validator runs a rule set over a document
type Validator func(doc *model.Document) model.ValidationResult

// ValidatorFor returns the rule set for a profile name: "peppol" (or empty)
// for BIS Billing 3.0, "xrechnung" for the XRechnung overlay
func ValidatorFor(profile string) (Validator, error) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", "peppol":
		return rules.Validate, nil
	case "xrechnung":
		return xrechnung.Validate, nil
	}
	return nil, fmt.Errorf("unknown validation profile %q", profile)
}

// Option configures a Manager
type Option func(*Manager)

// WithTransmitter sets the Access Point gateway used by SubmitDocument and
// RefreshDocumentStatus
func WithTransmitter(t network.Transmitter) Option {
	return func(m *Manager) {
		m.transmitter = t
	}
}

// WithDiscovery enables a capability check before each send
func WithDiscovery(d network.Discovery) Option {
	return func(m *Manager) {
		m.discovery = d
	}
}

// WithValidator replaces the default BIS Billing rule set
func WithValidator(v Validator) Option {
	return func(m *Manager) {
		if v != nil {
			m.validate = v
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCallTimeout bounds each discovery and transmission call. Zero leaves
// the caller's context untouched.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.callTimeout = d
	}
}

// WithTracer sets the tracer used for collaborator calls
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}
