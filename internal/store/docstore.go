package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"schoolsync/internal/record"
)

// ErrIndexRequired is returned by Query when the predicate/order combination
// needs a composite index the managed store does not have. Callers fall back
// to an unordered fetch and filter/sort client-side.
var ErrIndexRequired = errors.New("store: query requires a composite index")

// Predicate is one equality or range filter on a document field.
type Predicate struct {
	Field string
	Op    string // "==", ">", ">=", "<", "<="
	Value any
}

// OrderBy sorts results by a single document field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query describes a filtered, optionally ordered fetch of one collection.
type Query struct {
	Collection string
	Predicates []Predicate
	Order      *OrderBy
}

// Store is a document store over Postgres JSONB with redis-backed change
// notifications. Documents are untyped; readers normalize via the record
// package.
type Store struct {
	db  *sql.DB
	rdb *redis.Client
}

// New creates a Store over the given connections.
func New(db *DB, r *Redis) *Store {
	return &Store{db: db.Client, rdb: r.Client}
}

// GetAll fetches every document in a collection.
func (s *Store) GetAll(ctx context.Context, collection string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM documents WHERE collection = $1
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Query fetches documents matching the predicates, optionally ordered.
// Combining an order-by with a predicate on a different field requires a
// composite index; without one the store rejects the query with
// ErrIndexRequired, mirroring the managed backend this models.
func (s *Store) Query(ctx context.Context, q Query) ([]record.Record, error) {
	if q.Order != nil {
		for _, p := range q.Predicates {
			if p.Field != q.Order.Field && !s.hasCompositeIndex(ctx, p.Field, q.Order.Field) {
				return nil, fmt.Errorf("%w: %s+%s on %s", ErrIndexRequired, p.Field, q.Order.Field, q.Collection)
			}
		}
	}

	query := `SELECT data FROM documents WHERE collection = $1`
	args := []any{q.Collection}
	for _, p := range q.Predicates {
		op, err := sqlOp(p.Op)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND data->>'%s' %s $%d", p.Field, op, len(args)+1)
		args = append(args, fmt.Sprint(p.Value))
	}
	if q.Order != nil {
		query += fmt.Sprintf(" ORDER BY data->>'%s'", q.Order.Field)
		if q.Order.Desc {
			query += " DESC"
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Insert writes a new document with a generated id. Append-only callers
// (attendance marking) rely on this never overwriting; duplicates are
// reconciled at read time.
func (s *Store) Insert(ctx context.Context, collection string, doc record.Record) (string, error) {
	id := uuid.NewString()
	return id, s.write(ctx, collection, id, doc, false)
}

// Put writes or replaces the document with the given id.
func (s *Store) Put(ctx context.Context, collection, docID string, doc record.Record) error {
	return s.write(ctx, collection, docID, doc, true)
}

func (s *Store) write(ctx context.Context, collection, docID string, doc record.Record, upsert bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	query := `INSERT INTO documents (collection, doc_id, data) VALUES ($1, $2, $3)`
	if upsert {
		query += ` ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	}
	if _, err := s.db.ExecContext(ctx, query, collection, docID, data); err != nil {
		return err
	}
	s.notify(ctx, collection)
	return nil
}

// notify publishes a change signal for the collection. Best-effort: a lost
// notification only delays a live view until the next change.
func (s *Store) notify(ctx context.Context, collection string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, "docs:"+collection, "changed").Err(); err != nil {
		log.Printf("store: notify %s failed: %v", collection, err)
	}
}

// Changes returns a channel that receives a signal whenever any document in
// the collection changes. The returned func detaches the subscription and
// closes the channel.
func (s *Store) Changes(ctx context.Context, collection string) (<-chan struct{}, func()) {
	out := make(chan struct{}, 1)
	if s.rdb == nil {
		close(out)
		return out, func() {}
	}
	sub := s.rdb.Subscribe(ctx, "docs:"+collection)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default: // a signal is already pending; coalesce
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() {
		close(done)
		_ = sub.Close()
	}
}

// hasCompositeIndex reports whether an expression index covering both
// fields exists. Pessimistic: lookup errors count as no index.
func (s *Store) hasCompositeIndex(ctx context.Context, predField, orderField string) bool {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pg_indexes
		WHERE tablename = 'documents'
		  AND indexdef LIKE '%' || $1 || '%'
		  AND indexdef LIKE '%' || $2 || '%'
	`, predField, orderField).Scan(&n)
	if err != nil {
		return false
	}
	return n > 0
}

func sqlOp(op string) (string, error) {
	switch op {
	case "==":
		return "=", nil
	case ">", ">=", "<", "<=":
		return op, nil
	}
	return "", fmt.Errorf("store: unsupported predicate op %q", op)
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	var out []record.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec record.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			// one corrupt document must not sink the whole fetch
			log.Printf("store: skipping undecodable document: %v", err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
