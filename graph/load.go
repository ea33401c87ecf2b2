package graph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knakk/rdf"
	"golang.org/x/sync/errgroup"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
	"github.com/buildsys/brick-api/sparql"
)

type triple struct {
	s, p, o sparql.Term
}

type parsedFile struct {
	name     string
	triples  []triple
	prefixes []namespace
}

type source struct {
	name string
	data []byte // preloaded content; read from name when nil
}

// Load parses the foundational schema and then every file, and merges them
// into the store in that order within a single transaction. Files are
// parsed concurrently. Any missing or malformed file fails the whole load
// with a *LoadError and leaves the store unusable.
func (s *Store) Load(ctx context.Context, files []string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded.Load() {
		return errors.ErrAlreadyLoaded
	}
	start := time.Now()

	var sources []source
	switch {
	case s.opts.NoSchema:
	case s.opts.SchemaFile != "":
		sources = append(sources, source{name: s.opts.SchemaFile})
	default:
		sources = append(sources, source{name: embeddedSchemaName, data: brickSchema})
	}
	for _, f := range files {
		sources = append(sources, source{name: f})
	}

	parsed := make([]*parsedFile, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pf, err := parseSource(src, i)
			if err != nil {
				return err
			}
			parsed[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.insert(ctx, parsed); err != nil {
		return err
	}
	if err := s.seal(ctx); err != nil {
		return err
	}

	n, err := s.TripleCount(ctx)
	if err != nil {
		return err
	}
	triplesLoaded.Set(float64(n))
	loadDuration.Observe(time.Since(start).Seconds())
	s.log.Infow("graph loaded",
		logger.FieldFiles, len(sources),
		logger.FieldTriples, n,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func parseSource(src source, scope int) (*parsedFile, error) {
	data := src.data
	if data == nil {
		var err error
		data, err = os.ReadFile(src.name)
		if err != nil {
			return nil, &LoadError{Path: src.name, Err: err}
		}
	}

	format := rdf.Turtle
	if strings.EqualFold(filepath.Ext(src.name), ".nt") {
		format = rdf.NTriples
	}
	dec := rdf.NewTripleDecoder(bytes.NewReader(data), format)
	decoded, err := dec.DecodeAll()
	if err != nil {
		return nil, &LoadError{Path: src.name, Err: err}
	}

	pf := &parsedFile{
		name:     src.name,
		triples:  make([]triple, 0, len(decoded)),
		prefixes: scanPrefixes(data),
	}
	for _, t := range decoded {
		pf.triples = append(pf.triples, triple{
			s: convertTerm(t.Subj, scope),
			p: convertTerm(t.Pred, scope),
			o: convertTerm(t.Obj, scope),
		})
	}
	return pf, nil
}

// convertTerm maps a decoded term to the store's term model. Blank node
// labels are prefixed with the file's position so equal labels in two
// files stay distinct nodes.
func convertTerm(t rdf.Term, scope int) sparql.Term {
	switch t.Type() {
	case rdf.TermBlank:
		label := strings.TrimPrefix(t.String(), "_:")
		return sparql.Blank(fmt.Sprintf("f%d_%s", scope, label))
	case rdf.TermLiteral:
		if lit, ok := t.(rdf.Literal); ok {
			if lang := lit.Lang(); lang != "" {
				return sparql.LangLiteral(lit.String(), lang)
			}
			return sparql.Literal(lit.String(), lit.DataType.String())
		}
		return sparql.Literal(t.String(), "")
	default:
		return sparql.IRI(t.String())
	}
}

func (s *Store) insert(ctx context.Context, files []*parsedFile) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	termStmt, err := tx.PrepareContext(ctx, insertTerm)
	if err != nil {
		return err
	}
	defer termStmt.Close()
	tripleStmt, err := tx.PrepareContext(ctx, insertTriple)
	if err != nil {
		return err
	}
	defer tripleStmt.Close()
	nsStmt, err := tx.PrepareContext(ctx, insertNamespace)
	if err != nil {
		return err
	}
	defer nsStmt.Close()

	ids := make(map[sparql.Term]int64)
	intern := func(t sparql.Term) (int64, error) {
		if id, ok := ids[t]; ok {
			return id, nil
		}
		id := int64(len(ids) + 1)
		if _, err := termStmt.ExecContext(ctx, id, int(t.Kind), t.Value, t.Datatype, t.Lang); err != nil {
			return 0, errors.Wrapf(err, "insert term %s", t)
		}
		ids[t] = id
		return id, nil
	}

	for _, f := range files {
		for _, t := range f.triples {
			sid, err := intern(t.s)
			if err != nil {
				return err
			}
			pid, err := intern(t.p)
			if err != nil {
				return err
			}
			oid, err := intern(t.o)
			if err != nil {
				return err
			}
			if _, err := tripleStmt.ExecContext(ctx, sid, pid, oid); err != nil {
				return errors.Wrapf(err, "insert triple from %s", f.name)
			}
		}
	}

	namespaces := append([]namespace{}, defaultNamespaces...)
	for _, f := range files {
		namespaces = append(namespaces, f.prefixes...)
	}
	for _, ns := range namespaces {
		if _, err := nsStmt.ExecContext(ctx, ns.prefix, ns.uri); err != nil {
			return errors.Wrapf(err, "insert namespace %s", ns.prefix)
		}
	}

	if err := execScript(ctx, tx, createIndexes); err != nil {
		return errors.Wrap(err, "create indexes")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}
