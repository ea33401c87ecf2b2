package generator

import (
	"fmt"
	"io"
	"os"

	"github.com/knakk/rdf"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/sparql"
)

// WriteTurtle encodes g as Turtle: the namespace bindings as @prefix
// lines, then one full statement per line.
func WriteTurtle(w io.Writer, g *Graph) error {
	for _, ns := range g.Namespaces {
		if _, err := fmt.Fprintf(w, "@prefix %s: <%s> .\n", ns.Prefix, ns.IRI); err != nil {
			return errors.Wrap(err, "write prefixes")
		}
	}
	if len(g.Namespaces) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errors.Wrap(err, "write prefixes")
		}
	}

	enc := rdf.NewTripleEncoder(w, rdf.NTriples)
	for _, t := range g.Triples {
		triple, err := convert(t)
		if err != nil {
			return err
		}
		if err := enc.Encode(triple); err != nil {
			return errors.Wrap(err, "encode triple")
		}
	}
	return enc.Close()
}

// WriteFile encodes g as Turtle into path, replacing any existing file.
func WriteFile(path string, g *Graph) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTurtle(f, g)
}

func convert(t Triple) (rdf.Triple, error) {
	var out rdf.Triple
	switch t.S.Kind {
	case sparql.KindBlank:
		b, err := rdf.NewBlank(t.S.Value)
		if err != nil {
			return out, errors.Wrapf(err, "blank node %s", t.S.Value)
		}
		out.Subj = b
	default:
		i, err := iri(t.S.Value)
		if err != nil {
			return out, err
		}
		out.Subj = i
	}

	p, err := iri(t.P.Value)
	if err != nil {
		return out, err
	}
	out.Pred = p

	switch t.O.Kind {
	case sparql.KindBlank:
		b, err := rdf.NewBlank(t.O.Value)
		if err != nil {
			return out, errors.Wrapf(err, "blank node %s", t.O.Value)
		}
		out.Obj = b
	case sparql.KindLiteral:
		if t.O.Lang != "" {
			l, err := rdf.NewLangLiteral(t.O.Value, t.O.Lang)
			if err != nil {
				return out, errors.Wrapf(err, "literal %q", t.O.Value)
			}
			out.Obj = l
			break
		}
		dt, err := iri(t.O.Datatype)
		if err != nil {
			return out, err
		}
		out.Obj = rdf.NewTypedLiteral(t.O.Value, dt)
	default:
		i, err := iri(t.O.Value)
		if err != nil {
			return out, err
		}
		out.Obj = i
	}
	return out, nil
}

func iri(s string) (rdf.IRI, error) {
	i, err := rdf.NewIRI(s)
	if err != nil {
		return i, errors.Wrapf(err, "iri %s", s)
	}
	return i, nil
}
