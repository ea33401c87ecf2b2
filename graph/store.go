// Package graph holds the merged Brick schema and building instance data in
// an in-memory SQLite database and answers structured queries over it.
package graph

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
	"github.com/buildsys/brick-api/sparql"
)

// Options configure a Store.
type Options struct {
	// SchemaFile replaces the embedded Brick schema when set.
	SchemaFile string
	// NoSchema skips the foundational schema entirely.
	NoSchema bool
}

// Store is a load-once, read-only triple store. It is safe for concurrent
// queries once Load has returned.
type Store struct {
	db   *sql.DB
	opts Options
	log  *zap.SugaredLogger

	loadMu   sync.Mutex
	loaded   atomic.Bool
	prefixes map[string]string
}

// Open creates an empty in-memory store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	db, err := openDB(":memory:")
	if err != nil {
		return nil, err
	}
	if err := execScript(ctx, db, createTables); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return &Store{db: db, opts: opts, log: logger.Named("graph")}, nil
}

// openDB opens a single-connection database; an in-memory database lives
// exactly as long as its one connection.
func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return db, nil
}

func execScript(ctx context.Context, db interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Loaded reports whether the store holds a complete graph.
func (s *Store) Loaded() bool {
	return s.loaded.Load()
}

// seal makes the connection read-only and publishes the store to queries.
func (s *Store) seal(ctx context.Context) error {
	prefixes, err := s.Namespaces(ctx)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return errors.Wrap(err, "seal store")
	}
	s.prefixes = prefixes
	s.loaded.Store(true)
	return nil
}

// Query parses, compiles and runs a query. Any failure is returned as a
// *QueryError carrying the parser or engine message.
func (s *Store) Query(ctx context.Context, text string) (*sparql.Result, error) {
	if !s.loaded.Load() {
		return nil, errors.ErrNotReady
	}
	start := time.Now()
	res, err := s.query(ctx, text)
	observeQuery(start, err)
	if err != nil {
		s.log.Debugw("query failed", logger.FieldError, err, logger.FieldDurationMS, time.Since(start).Milliseconds())
		return nil, &QueryError{Query: text, Err: err}
	}
	s.log.Debugw("query", logger.FieldCount, res.Len(), logger.FieldDurationMS, time.Since(start).Milliseconds())
	return res, nil
}

func (s *Store) query(ctx context.Context, text string) (*sparql.Result, error) {
	q, err := sparql.Parse(text, s.prefixes)
	if err != nil {
		return nil, err
	}
	plan, err := sparql.Compile(q, func(t sparql.Term) (int64, error) {
		return s.lookup(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, plan.SQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &sparql.Result{Vars: plan.Vars, Ask: plan.Ask}
	if plan.Ask {
		if rows.Next() {
			var b int64
			if err := rows.Scan(&b); err != nil {
				return nil, err
			}
			res.Boolean = b != 0
		}
		return res, rows.Err()
	}
	for rows.Next() {
		row, err := plan.ScanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// lookup returns the dictionary id of t, or 0 when t is not in the graph.
func (s *Store) lookup(ctx context.Context, t sparql.Term) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, queryTermID, int(t.Kind), t.Value, t.Datatype, t.Lang).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// TripleCount returns the number of distinct triples, schema included.
func (s *Store) TripleCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryTripleCount).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count triples")
	}
	return n, nil
}

// Namespaces returns the prefix bindings: the defaults plus every prefix
// declared in a loaded file.
func (s *Store) Namespaces(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, queryNamespaces)
	if err != nil {
		return nil, errors.Wrap(err, "list namespaces")
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var prefix, uri string
		if err := rows.Scan(&prefix, &uri); err != nil {
			return nil, err
		}
		out[prefix] = uri
	}
	return out, rows.Err()
}
