package graph

import (
	"context"
	"os"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
)

// ExportSnapshot writes the loaded graph to a standalone SQLite file that
// OpenSnapshot can serve without re-parsing any Turtle.
func (s *Store) ExportSnapshot(ctx context.Context, path string) (err error) {
	if !s.loaded.Load() {
		return errors.ErrNotReady
	}
	start := time.Now()
	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return errors.Wrap(err, "open snapshot")
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = OFF", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteScript(conn, createTables, nil); err != nil {
		return errors.Wrap(err, "create snapshot tables")
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer endFn(&err)

	if err = s.copyTerms(ctx, conn); err != nil {
		return err
	}
	if err = s.copyTriples(ctx, conn); err != nil {
		return err
	}
	if err = s.copyNamespaces(ctx, conn); err != nil {
		return err
	}
	if err = sqlitex.ExecuteScript(conn, createIndexes, nil); err != nil {
		return errors.Wrap(err, "create snapshot indexes")
	}

	s.log.Infow("snapshot written",
		logger.FieldFile, path,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func (s *Store) copyTerms(ctx context.Context, conn *sqlite.Conn) error {
	stmt, err := conn.Prepare(insertTerm)
	if err != nil {
		return errors.Wrap(err, "prepare insert term")
	}
	rows, err := s.db.QueryContext(ctx, selectAllTerms)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, kind              int64
			value, datatype, lang string
		)
		if err := rows.Scan(&id, &kind, &value, &datatype, &lang); err != nil {
			return err
		}
		stmt.BindInt64(1, id)
		stmt.BindInt64(2, kind)
		stmt.BindText(3, value)
		stmt.BindText(4, datatype)
		stmt.BindText(5, lang)
		if _, err := stmt.Step(); err != nil {
			return errors.Wrapf(err, "insert term %d", id)
		}
		_ = stmt.Reset()
	}
	return rows.Err()
}

func (s *Store) copyTriples(ctx context.Context, conn *sqlite.Conn) error {
	stmt, err := conn.Prepare(insertTriple)
	if err != nil {
		return errors.Wrap(err, "prepare insert triple")
	}
	rows, err := s.db.QueryContext(ctx, selectAllTriples)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid, pid, oid int64
		if err := rows.Scan(&sid, &pid, &oid); err != nil {
			return err
		}
		stmt.BindInt64(1, sid)
		stmt.BindInt64(2, pid)
		stmt.BindInt64(3, oid)
		if _, err := stmt.Step(); err != nil {
			return errors.Wrap(err, "insert triple")
		}
		_ = stmt.Reset()
	}
	return rows.Err()
}

func (s *Store) copyNamespaces(ctx context.Context, conn *sqlite.Conn) error {
	namespaces, err := s.Namespaces(ctx)
	if err != nil {
		return err
	}
	stmt, err := conn.Prepare(insertNamespace)
	if err != nil {
		return errors.Wrap(err, "prepare insert namespace")
	}
	for prefix, uri := range namespaces {
		stmt.BindText(1, prefix)
		stmt.BindText(2, uri)
		if _, err := stmt.Step(); err != nil {
			return errors.Wrapf(err, "insert namespace %s", prefix)
		}
		_ = stmt.Reset()
	}
	return nil
}

// OpenSnapshot opens a file written by ExportSnapshot as a ready, read-only
// store.
func OpenSnapshot(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, log: logger.Named("graph")}
	n, err := s.TripleCount(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := s.seal(ctx); err != nil {
		_ = db.Close()
		return nil, &LoadError{Path: path, Err: err}
	}
	triplesLoaded.Set(float64(n))
	s.log.Infow("snapshot opened", logger.FieldFile, path, logger.FieldTriples, n)
	return s, nil
}
