package graph

import (
	"regexp"
)

// Namespace IRIs bound by default in every store.
const (
	BrickNS = "https://brickschema.org/schema/Brick#"
	RDFNS   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNS  = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNS   = "http://www.w3.org/2002/07/owl#"
	XSDNS   = "http://www.w3.org/2001/XMLSchema#"
	UnitNS  = "http://qudt.org/vocab/unit/"
	RefNS   = "https://brickschema.org/schema/Brick/ref#"
)

type namespace struct {
	prefix string
	uri    string
}

// defaultNamespaces are inserted before any file's own prefixes, so a file
// cannot rebind brick: or rdfs:.
var defaultNamespaces = []namespace{
	{"brick", BrickNS},
	{"owl", OWLNS},
	{"rdf", RDFNS},
	{"rdfs", RDFSNS},
	{"ref", RefNS},
	{"unit", UnitNS},
	{"xsd", XSDNS},
}

// DefaultNamespaces returns the default prefix bindings.
func DefaultNamespaces() map[string]string {
	out := make(map[string]string, len(defaultNamespaces))
	for _, ns := range defaultNamespaces {
		out[ns.prefix] = ns.uri
	}
	return out
}

var prefixDirective = regexp.MustCompile(`(?mi)^[ \t]*(?:@prefix|prefix)[ \t]+([A-Za-z][\w.\-]*)?:[ \t]*<([^>]*)>`)

// scanPrefixes returns the prefix directives of a Turtle document in order.
func scanPrefixes(data []byte) []namespace {
	var out []namespace
	for _, m := range prefixDirective.FindAllSubmatch(data, -1) {
		out = append(out, namespace{prefix: string(m[1]), uri: string(m[2])})
	}
	return out
}
