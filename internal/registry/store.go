// Package registry persists Peppol document entries. The lifecycle manager
// is the only writer; stores must keep status and history order exactly.
package registry

import (
	"context"
	"errors"
	"sort"

	"github.com/rezonia/peppol-connector/internal/model"
)

var (
	// ErrNotFound is returned when no entry exists for an id
	ErrNotFound = errors.New("document not found")
	// ErrHistoryRewrite is returned when a write would drop history records
	ErrHistoryRewrite = errors.New("status history is append-only")
)

// Store is a keyed registry of PeppolDocument entries
type Store interface {
	// Get returns a copy of the entry
	Get(ctx context.Context, id string) (*model.PeppolDocument, error)
	// Put inserts or replaces the entry
	Put(ctx context.Context, doc *model.PeppolDocument) error
	// Delete removes the entry
	Delete(ctx context.Context, id string) error
	// List returns copies of all entries ordered by creation time
	List(ctx context.Context) ([]*model.PeppolDocument, error)
	Close() error
}

func sortByCreation(docs []*model.PeppolDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].DocumentID < docs[j].DocumentID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}
