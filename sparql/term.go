// Package sparql parses a subset of the SPARQL 1.1 query language and
// compiles it to SQLite SELECT statements over a dictionary-encoded triple
// table (terms + triples). Property paths with * + ? compile to recursive
// common table expressions.
package sparql

import "strings"

// TermKind orders terms the way SPARQL ORDER BY does: blank nodes, then
// IRIs, then literals.
type TermKind int

const (
	KindBlank   TermKind = 1
	KindIRI     TermKind = 2
	KindLiteral TermKind = 3
)

// Well-known IRIs.
const (
	RDFType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger    = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal    = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble     = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean    = "http://www.w3.org/2001/XMLSchema#boolean"
)

// Term is an RDF term. Datatype and Lang are only meaningful for literals;
// the zero string stands for "none" so terms are comparable map keys.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

// IRI returns an IRI term.
func IRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// Blank returns a blank node term with the given label.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// Literal returns a typed literal. An empty datatype means xsd:string.
func Literal(lexical, datatype string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}.Normalize()
}

// LangLiteral returns a language-tagged string.
func LangLiteral(lexical, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Lang: lang}.Normalize()
}

// Normalize applies RDF 1.1 literal rules: simple literals are xsd:string,
// tagged literals are rdf:langString with a lower-cased tag.
func (t Term) Normalize() Term {
	if t.Kind != KindLiteral {
		t.Datatype, t.Lang = "", ""
		return t
	}
	if t.Lang != "" {
		t.Lang = strings.ToLower(t.Lang)
		t.Datatype = RDFLangString
		return t
	}
	if t.Datatype == "" {
		t.Datatype = XSDString
	}
	return t
}

// String returns the plain text of the term: the IRI, the literal's
// lexical form, or _:label for blank nodes.
func (t Term) String() string {
	if t.Kind == KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
