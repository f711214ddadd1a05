package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rezonia/peppol-connector/internal/model"
)

// MemoryStore keeps entries in a map. Values are cloned on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*model.PeppolDocument
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*model.PeppolDocument)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.PeppolDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, doc *model.PeppolDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.docs[doc.DocumentID]; ok && len(doc.StatusHistory) < len(prev.StatusHistory) {
		return fmt.Errorf("%w: %s", ErrHistoryRewrite, doc.DocumentID)
	}
	s.docs[doc.DocumentID] = doc.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*model.PeppolDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.PeppolDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Clone())
	}
	sortByCreation(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
