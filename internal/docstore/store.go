package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
)

// Store is the document persistence contract used by the reconciliation
// engine. Implementations must apply write-sets atomically with respect to
// concurrent upserts on the same document.
type Store interface {
	// ReadOne returns the first document matching the filter, or
	// ErrNotFound.
	ReadOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// ReadAll returns every document matching the filter, in insertion
	// order. An empty filter matches the whole collection.
	ReadAll(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// List returns every document of a collection, optionally enriched
	// with a denormalized name resolved through join. A nil join is a
	// plain ReadAll.
	List(ctx context.Context, collection string, join *Join) ([]Document, error)

	// Upsert merges set into the document matching filter, creating it
	// from the filter entries when absent. The merged document is
	// returned with updatedAt (and, on creation, createdAt) stamped.
	Upsert(ctx context.Context, collection string, filter Filter, set WriteSet) (Document, error)

	// Delete removes all documents matching the filter and reports how
	// many were removed.
	Delete(ctx context.Context, collection string, filter Filter) (int64, error)
}

// SQLiteStore persists documents as JSON rows in a single table, filtered
// with json_extract. It also implements CounterStore.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore creates a document store over an open database handle.
func NewSQLiteStore(db *sql.DB, logger *logging.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "docstore"),
	}
}

// EnsureSchema creates the document and counter tables when missing.
// Safe to call on every startup.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS documents (
    doc_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);

CREATE TABLE IF NOT EXISTS counters (
    name       TEXT PRIMARY KEY,
    last_id    INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create document schema: %w", err)
	}
	s.logger.Debug("document schema ready")
	return nil
}

// buildWhere translates a filter into SQL conditions over json_extract.
// Filter keys are restricted to plain identifiers so no user input ever
// reaches the generated JSON path.
func buildWhere(collection string, filter Filter) (string, []any, error) {
	if !validIdent(collection) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	clauses := []string{"collection = ?"}
	args := []any{collection}
	for key, value := range filter {
		if !validIdent(key) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidFilterKey, key)
		}
		clauses = append(clauses, fmt.Sprintf("json_extract(body, '$.%s') = ?", key))
		args = append(args, normalizeArg(value))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// normalizeArg converts integral floats to int64 so bound parameters
// compare cleanly against INTEGER values produced by json_extract.
func normalizeArg(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

func (s *SQLiteStore) ReadOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return nil, err
	}
	query := "SELECT body FROM documents WHERE " + where + " ORDER BY doc_id LIMIT 1"

	var body string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return decodeBody(body)
}

func (s *SQLiteStore) ReadAll(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return nil, err
	}
	query := "SELECT body FROM documents WHERE " + where + " ORDER BY doc_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string, join *Join) ([]Document, error) {
	docs, err := s.ReadAll(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	if join == nil || len(docs) == 0 {
		return docs, nil
	}

	foreign, err := s.ReadAll(ctx, join.Collection, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s join: %w", join.Collection, err)
	}
	names := make(map[int64]string, len(foreign))
	for _, f := range foreign {
		if id, ok := AsInt64(f[join.ForeignField]); ok && id != 0 {
			names[id] = AsString(f["name"])
		}
	}
	for _, d := range docs {
		d[join.As] = ""
		if id, ok := AsInt64(d[join.LocalField]); ok && id != 0 {
			if name, found := names[id]; found {
				d[join.As] = name
			}
		}
	}
	return docs, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, collection string, filter Filter, set WriteSet) (Document, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT doc_id, body FROM documents WHERE " + where + " ORDER BY doc_id LIMIT 1"

	var (
		docID int64
		body  string
		doc   Document
		isNew bool
	)
	err = tx.QueryRowContext(ctx, query, args...).Scan(&docID, &body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		isNew = true
		doc = make(Document, len(filter)+len(set))
		for k, v := range filter {
			doc[k] = v
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read document for upsert: %w", err)
	default:
		if doc, err = decodeBody(body); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := doc.ApplySet(set); err != nil {
		return nil, err
	}
	if isNew {
		if _, ok := doc["createdAt"]; !ok {
			doc["createdAt"] = now
		}
	}
	doc["updatedAt"] = now

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if isNew {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO documents (collection, body) VALUES (?, ?)",
			collection, string(encoded))
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET body = ? WHERE doc_id = ?",
			string(encoded), docID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection string, filter Filter) (int64, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted documents: %w", err)
	}
	return count, nil
}

func decodeBody(body string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
