package peppol

import (
	"context"
	"fmt"
	"io"

	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/registry"
	"github.com/rezonia/peppol-connector/internal/rules"
	"github.com/rezonia/peppol-connector/internal/ubl"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

// Manager options
var (
	WithTransmitter = lifecycle.WithTransmitter
	WithDiscovery   = lifecycle.WithDiscovery
	WithValidator   = lifecycle.WithValidator
	WithLogger      = lifecycle.WithLogger
	WithCallTimeout = lifecycle.WithCallTimeout
)

// Validate checks a document against Peppol BIS Billing 3.0
func Validate(doc *Document) ValidationResult {
	return rules.Validate(doc)
}

// ValidateXRechnung checks a document against BIS Billing 3.0 plus the
// XRechnung national rules
func ValidateXRechnung(doc *Document) ValidationResult {
	return xrechnung.Validate(doc)
}

// Render serializes a document as UBL 2.1 XML
func Render(doc *Document) ([]byte, error) {
	return ubl.Render(doc)
}

// Parse reads a UBL 2.1 Invoice or CreditNote
func Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.ParseError{Message: "failed to read input", Cause: err}
	}
	return ubl.NewRegistry().Parse(ctx, data)
}

// ParseRoutingIdentifier parses a Leitweg-ID
func ParseRoutingIdentifier(s string) (RoutingIdentifier, error) {
	return xrechnung.ParseRoutingIdentifier(s)
}

// Extend returns a copy of doc carrying the XRechnung customization and
// the routing identifier
func Extend(doc Document, id RoutingIdentifier) Document {
	return xrechnung.Extend(doc, id)
}

// NewManager creates a lifecycle manager over store. A nil store selects
// an in-memory registry.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	if store == nil {
		store = registry.NewMemoryStore()
	}
	return lifecycle.NewManager(store, opts...)
}

// ValidateBatch validates documents concurrently with the named profile
func ValidateBatch(ctx context.Context, profile string, docs []*Document) ([]ValidationResult, error) {
	validate, err := lifecycle.ValidatorFor(profile)
	if err != nil {
		return nil, err
	}

	results := make([]ValidationResult, len(docs))
	errCh := make(chan error, len(docs))

	for i, doc := range docs {
		go func(idx int, d *Document) {
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			if d == nil {
				errCh <- fmt.Errorf("document %d is nil", idx)
				return
			}
			results[idx] = validate(d)
			errCh <- nil
		}(i, doc)
	}

	// Wait for all goroutines
	var firstErr error
	for range docs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
