package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rezonia/peppol-connector/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    document_type TEXT NOT NULL,
    status TEXT NOT NULL,
    sender TEXT NOT NULL,
    receiver TEXT NOT NULL,
    message_id TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    xml BLOB,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS status_history (
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL DEFAULT '',
    recorded_at TEXT NOT NULL,
    PRIMARY KEY (document_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`

// SQLStore persists entries in SQLite. The history lives in its own table
// keyed by sequence number, so order survives independently of the JSON
// payload.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a database at path and migrates the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*model.PeppolDocument, error) {
	var (
		payload string
		xml     []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, xml FROM documents WHERE id = ?", id,
	).Scan(&payload, &xml)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}

	doc, err := decodePayload(payload, xml)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.StatusHistory = history
	return doc, nil
}

func (s *SQLStore) history(ctx context.Context, id string) ([]model.StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, message, actor, recorded_at FROM status_history WHERE document_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", id, err)
	}
	defer rows.Close()

	var out []model.StatusRecord
	for rows.Next() {
		var (
			rec model.StatusRecord
			at  string
		)
		if err := rows.Scan(&rec.Status, &rec.Message, &rec.Actor, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history of %s: %w", id, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("invalid history timestamp %q: %w", at, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Put(ctx context.Context, doc *model.PeppolDocument) error {
	payload, err := encodePayload(doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO documents (id, document_type, status, sender, receiver, message_id, payload, xml, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            document_type = excluded.document_type,
            status = excluded.status,
            sender = excluded.sender,
            receiver = excluded.receiver,
            message_id = excluded.message_id,
            payload = excluded.payload,
            xml = excluded.xml,
            updated_at = excluded.updated_at`,
		doc.DocumentID, string(doc.DocumentType), string(doc.Status), doc.Sender.String(), doc.Receiver.String(),
		doc.AccessPointMessageID, payload, nullableBytes(doc.XML),
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.DocumentID, err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM status_history WHERE document_id = ?", doc.DocumentID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count history of %s: %w", doc.DocumentID, err)
	}
	if len(doc.StatusHistory) < stored {
		return fmt.Errorf("%w: %s", ErrHistoryRewrite, doc.DocumentID)
	}
	for seq := stored; seq < len(doc.StatusHistory); seq++ {
		rec := doc.StatusHistory[seq]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO status_history (document_id, seq, status, message, actor, recorded_at) VALUES (?, ?, ?, ?, ?, ?)",
			doc.DocumentID, seq, string(rec.Status), rec.Message, rec.Actor, formatTime(rec.Timestamp),
		); err != nil {
			return fmt.Errorf("failed to append history of %s: %w", doc.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", doc.DocumentID, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM status_history WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func (s *SQLStore) List(ctx context.Context) ([]*model.PeppolDocument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM documents ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	out := make([]*model.PeppolDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	sortByCreation(out)
	return out, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// encodePayload serializes everything except history and XML, which have
// their own columns
func encodePayload(doc *model.PeppolDocument) (string, error) {
	shallow := *doc
	shallow.StatusHistory = nil
	shallow.XML = nil
	b, err := json.Marshal(shallow)
	if err != nil {
		return "", fmt.Errorf("failed to encode document %s: %w", doc.DocumentID, err)
	}
	return string(b), nil
}

func decodePayload(payload string, xml []byte) (*model.PeppolDocument, error) {
	var doc model.PeppolDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document payload: %w", err)
	}
	if len(xml) > 0 {
		doc.XML = xml
	}
	return &doc, nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
