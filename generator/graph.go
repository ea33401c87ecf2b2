package generator

import (
	"github.com/buildsys/brick-api/sparql"
)

// Triple is one generated statement.
type Triple struct {
	S, P, O sparql.Term
}

// Namespace is a prefix binding written at the top of the output.
type Namespace struct {
	Prefix string
	IRI    string
}

// Graph accumulates a generated model in memory before encoding. Triples
// keep insertion order so output is stable.
type Graph struct {
	Triples    []Triple
	Namespaces []Namespace
	seen       map[Triple]struct{}
}

// NewGraph creates an empty Graph ready for population.
func NewGraph() *Graph {
	return &Graph{seen: make(map[Triple]struct{})}
}

// Bind adds a prefix binding. Rebinding a prefix replaces its IRI.
func (g *Graph) Bind(prefix, iri string) {
	for i, ns := range g.Namespaces {
		if ns.Prefix == prefix {
			g.Namespaces[i].IRI = iri
			return
		}
	}
	g.Namespaces = append(g.Namespaces, Namespace{Prefix: prefix, IRI: iri})
}

// Add appends a triple unless an identical one was already added.
func (g *Graph) Add(s, p, o sparql.Term) {
	t := Triple{S: s, P: p, O: o}
	if _, dup := g.seen[t]; dup {
		return
	}
	g.seen[t] = struct{}{}
	g.Triples = append(g.Triples, t)
}

// Len is the number of distinct triples.
func (g *Graph) Len() int {
	return len(g.Triples)
}
