// Package network holds the contracts for the Peppol discovery layer
// (SMP/SML) and the Access Point gateway, with in-memory implementations.
package network

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rezonia/peppol-connector/internal/model"
)

// TransportAS4 is the Peppol AS4 transport profile
const TransportAS4 = "peppol-transport-as4-v2_0"

// LookupResult lists the document types a participant is registered for
type LookupResult struct {
	Found         bool     `json:"found"`
	DocumentTypes []string `json:"document_types"`
}

// Discovery resolves participants to capabilities and endpoints.
// Implementations enforce their own timeouts.
type Discovery interface {
	Lookup(ctx context.Context, p model.Participant) (*LookupResult, error)
	CanReceive(ctx context.Context, p model.Participant, documentTypeID string) (bool, error)
	// EndpointURL returns "" when the participant has no endpoint for the
	// document type; an empty transport matches any.
	EndpointURL(ctx context.Context, p model.Participant, documentTypeID, transport string) (string, error)
}

// Endpoint is one registered service endpoint
type Endpoint struct {
	DocumentTypeID string `json:"document_type_id"`
	Transport      string `json:"transport"`
	URL            string `json:"url"`
}

// StaticDiscovery is a Discovery backed by an in-memory capability table
type StaticDiscovery struct {
	mu        sync.RWMutex
	endpoints map[string][]Endpoint
}

// NewStaticDiscovery creates an empty table
func NewStaticDiscovery() *StaticDiscovery {
	return &StaticDiscovery{endpoints: make(map[string][]Endpoint)}
}

// Register adds endpoints for a participant
func (s *StaticDiscovery) Register(p model.Participant, endpoints ...Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey(p)
	s.endpoints[key] = append(s.endpoints[key], endpoints...)
}

// Lookup returns the sorted, de-duplicated document types of p
func (s *StaticDiscovery) Lookup(ctx context.Context, p model.Participant) (*LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	eps, ok := s.endpoints[participantKey(p)]
	if !ok {
		return &LookupResult{Found: false, DocumentTypes: []string{}}, nil
	}
	seen := make(map[string]struct{}, len(eps))
	types := make([]string, 0, len(eps))
	for _, ep := range eps {
		if _, dup := seen[ep.DocumentTypeID]; dup {
			continue
		}
		seen[ep.DocumentTypeID] = struct{}{}
		types = append(types, ep.DocumentTypeID)
	}
	sort.Strings(types)
	return &LookupResult{Found: true, DocumentTypes: types}, nil
}

// CanReceive reports whether p is registered for the document type
func (s *StaticDiscovery) CanReceive(ctx context.Context, p model.Participant, documentTypeID string) (bool, error) {
	url, err := s.EndpointURL(ctx, p, documentTypeID, "")
	if err != nil {
		return false, err
	}
	return url != "", nil
}

// EndpointURL returns the first endpoint matching document type and transport
func (s *StaticDiscovery) EndpointURL(ctx context.Context, p model.Participant, documentTypeID, transport string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ep := range s.endpoints[participantKey(p)] {
		if ep.DocumentTypeID != documentTypeID {
			continue
		}
		if transport != "" && ep.Transport != transport {
			continue
		}
		return ep.URL, nil
	}
	return "", nil
}

// participant identifiers are case-insensitive
func participantKey(p model.Participant) string {
	return strings.ToLower(p.String())
}
