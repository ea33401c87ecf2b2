package sparql

// Value is one cell of a result row: a bound term or unbound.
type Value struct {
	Term  Term
	Bound bool
}

// Bound wraps a term as a bound value.
func Bound(t Term) Value {
	return Value{Term: t, Bound: true}
}

// Unbound is the value of a variable with no binding in a row.
var Unbound = Value{}

// Row maps every projected variable name (without '?') to its value.
type Row map[string]Value

// Term returns the bound term for name.
func (r Row) Term(name string) (Term, bool) {
	v, ok := r[name]
	if !ok || !v.Bound {
		return Term{}, false
	}
	return v.Term, true
}

// IRI returns the IRI bound to name, if it is bound to an IRI.
func (r Row) IRI(name string) (string, bool) {
	t, ok := r.Term(name)
	if !ok || !t.IsIRI() {
		return "", false
	}
	return t.Value, true
}

// Text returns the plain text of the value bound to name.
func (r Row) Text(name string) (string, bool) {
	t, ok := r.Term(name)
	if !ok {
		return "", false
	}
	return t.String(), true
}

// Result is a query result. SELECT queries fill Vars and Rows; ASK queries
// set Ask and Boolean.
type Result struct {
	Vars    []string
	Rows    []Row
	Ask     bool
	Boolean bool
}

// Len is the number of solution rows (1 for ASK).
func (r *Result) Len() int {
	if r.Ask {
		return 1
	}
	return len(r.Rows)
}
