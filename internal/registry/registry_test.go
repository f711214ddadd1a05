package registry_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/model/modeltest"
	"github.com/rezonia/peppol-connector/internal/registry"
)

var base = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func entry(id string, offset time.Duration) *model.PeppolDocument {
	created := base.Add(offset)
	return &model.PeppolDocument{
		DocumentID:     id,
		DocumentType:   model.KindInvoice,
		Sender:         model.NewParticipant("0088", "7300010000001"),
		Receiver:       model.NewParticipant("0088", "7300010000002"),
		DocumentTypeID: model.InvoiceDocumentTypeID,
		ProcessID:      model.BillingProcessID,
		Status:         model.StatusDraft,
		StatusHistory: []model.StatusRecord{
			{Status: model.StatusDraft, Timestamp: created, Message: "created", Actor: "test"},
		},
		Document:  modeltest.Invoice(),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

type storeFactory func(t *testing.T) registry.Store

func factories(t *testing.T) map[string]storeFactory {
	t.Helper()
	out := map[string]storeFactory{
		"memory": func(t *testing.T) registry.Store {
			return registry.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) registry.Store {
			s, err := registry.OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			return s
		},
	}
	if url := os.Getenv("PEPPOL_TEST_REDIS_URL"); url != "" {
		out["redis"] = func(t *testing.T) registry.Store {
			s, err := registry.NewRedisStore(context.Background(), url)
			require.NoError(t, err)
			return s
		}
	}
	return out
}

// forEachStore runs fn against every backend so they share one contract
func forEachStore(t *testing.T, fn func(t *testing.T, store registry.Store, prefix string)) {
	for name, factory := range factories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			t.Cleanup(func() { store.Close() })
			// unique ids keep a shared redis instance from leaking state between runs
			prefix := fmt.Sprintf("%s-%d-", t.Name(), time.Now().UnixNano())
			fn(t, store, prefix)
		})
	}
}

func assertSameEntry(t *testing.T, want, got *model.PeppolDocument) {
	t.Helper()
	assert.Equal(t, want.DocumentID, got.DocumentID)
	assert.Equal(t, want.DocumentType, got.DocumentType)
	assert.True(t, want.Sender.Equal(got.Sender))
	assert.True(t, want.Receiver.Equal(got.Receiver))
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.AccessPointMessageID, got.AccessPointMessageID)
	assert.Equal(t, want.XML, got.XML)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Document.ID, got.Document.ID)
	assert.True(t, want.Document.Totals.PayableAmount.Equal(got.Document.Totals.PayableAmount))

	require.Len(t, got.StatusHistory, len(want.StatusHistory))
	for i := range want.StatusHistory {
		assert.Equal(t, want.StatusHistory[i].Status, got.StatusHistory[i].Status)
		assert.Equal(t, want.StatusHistory[i].Message, got.StatusHistory[i].Message)
		assert.True(t, want.StatusHistory[i].Timestamp.Equal(got.StatusHistory[i].Timestamp))
	}
}

func TestStore_PutGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		doc := entry(prefix+"a", 0)

		require.NoError(t, store.Put(ctx, doc))

		got, err := store.Get(ctx, doc.DocumentID)
		require.NoError(t, err)
		assertSameEntry(t, doc, got)
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		_, err := store.Get(context.Background(), prefix+"missing")
		assert.ErrorIs(t, err, registry.ErrNotFound)
	})
}

func TestStore_UpdateAppendsHistory(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		doc := entry(prefix+"a", 0)
		require.NoError(t, store.Put(ctx, doc))

		doc.Status = model.StatusValidated
		doc.XML = []byte("<Invoice/>")
		doc.StatusHistory = append(doc.StatusHistory, model.StatusRecord{
			Status: model.StatusValidated, Timestamp: base.Add(time.Minute), Message: "ok",
		})
		doc.UpdatedAt = base.Add(time.Minute)
		require.NoError(t, store.Put(ctx, doc))

		got, err := store.Get(ctx, doc.DocumentID)
		require.NoError(t, err)
		assertSameEntry(t, doc, got)
		assert.Equal(t, model.StatusDraft, got.StatusHistory[0].Status)
		assert.Equal(t, model.StatusValidated, got.StatusHistory[1].Status)
	})
}

func TestStore_RejectsHistoryRewrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		doc := entry(prefix+"a", 0)
		doc.StatusHistory = append(doc.StatusHistory, model.StatusRecord{Status: model.StatusValidated, Timestamp: base})
		require.NoError(t, store.Put(ctx, doc))

		doc.StatusHistory = doc.StatusHistory[:1]
		err := store.Put(ctx, doc)
		assert.ErrorIs(t, err, registry.ErrHistoryRewrite)

		got, err := store.Get(ctx, doc.DocumentID)
		require.NoError(t, err)
		assert.Len(t, got.StatusHistory, 2)
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		doc := entry(prefix+"a", 0)
		require.NoError(t, store.Put(ctx, doc))

		doc.Status = model.StatusFailed
		got, err := store.Get(ctx, doc.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDraft, got.Status)

		got.StatusHistory[0].Message = "mutated"
		again, err := store.Get(ctx, doc.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, "created", again.StatusHistory[0].Message)
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		doc := entry(prefix+"a", 0)
		require.NoError(t, store.Put(ctx, doc))

		require.NoError(t, store.Delete(ctx, doc.DocumentID))
		_, err := store.Get(ctx, doc.DocumentID)
		assert.ErrorIs(t, err, registry.ErrNotFound)

		assert.ErrorIs(t, store.Delete(ctx, doc.DocumentID), registry.ErrNotFound)
	})
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	forEachStore(t, func(t *testing.T, store registry.Store, prefix string) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, entry(prefix+"c", 2*time.Hour)))
		require.NoError(t, store.Put(ctx, entry(prefix+"a", 0)))
		require.NoError(t, store.Put(ctx, entry(prefix+"b", time.Hour)))

		docs, err := store.List(ctx)
		require.NoError(t, err)

		var ids []string
		for _, d := range docs {
			if len(d.DocumentID) > len(prefix) && d.DocumentID[:len(prefix)] == prefix {
				ids = append(ids, d.DocumentID[len(prefix):])
			}
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/registry.db"

	store, err := registry.OpenSQLite(ctx, path)
	require.NoError(t, err)
	doc := entry("persisted", 0)
	doc.XML = []byte("<Invoice/>")
	require.NoError(t, store.Put(ctx, doc))
	require.NoError(t, store.Close())

	reopened, err := registry.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assertSameEntry(t, doc, got)
}
