package sparql

import "strings"

// Form is the query form.
type Form int

const (
	FormSelect Form = iota
	FormAsk
)

// Query is a parsed query.
type Query struct {
	Form       Form
	Prefixes   map[string]string
	Distinct   bool
	Star       bool
	Projection []Projection
	Where      *Group
	GroupBy    []string
	OrderBy    []OrderCondition
	Limit      int // -1 when absent
	Offset     int

	// variables in order of first appearance, used for SELECT *
	varOrder []string
}

// Projection is one SELECT item: a variable or (COUNT(...) AS ?var).
type Projection struct {
	Var string
	Agg *Aggregate
}

// Aggregate is COUNT(*), COUNT(?x) or COUNT(DISTINCT ?x).
type Aggregate struct {
	Distinct bool
	Var      string // empty for *
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Var  string
	Desc bool
}

// Node is a variable or a constant term in a triple pattern.
type Node struct {
	Var  string
	Term Term
}

func (n Node) IsVar() bool { return n.Var != "" }

func varNode(name string) Node { return Node{Var: name} }
func termNode(t Term) Node     { return Node{Term: t} }

// hidden variables come from blank nodes and path sequences; they are never
// projected by SELECT *.
const hiddenPrefix = "_:"

func isHidden(name string) bool { return strings.HasPrefix(name, hiddenPrefix) }

// Element is a member of a group graph pattern.
type Element interface{ element() }

// Group is a { ... } group graph pattern.
type Group struct {
	Elements []Element
}

// TriplePattern matches one edge, or a path when Mod is '*', '+' or '?'.
type TriplePattern struct {
	Subj Node
	Pred Node
	Mod  byte
	Obj  Node
}

// OptionalPattern is OPTIONAL { ... }.
type OptionalPattern struct{ Group *Group }

// SubGroup is a nested { ... } joined with its siblings.
type SubGroup struct{ Group *Group }

// FilterPattern is FILTER(...), applied to the whole enclosing group.
type FilterPattern struct{ Expr Expr }

func (*TriplePattern) element()   {}
func (*OptionalPattern) element() {}
func (*SubGroup) element()        {}
func (*FilterPattern) element()   {}

// Expr is a filter expression.
type Expr interface{ expr() }

// BinaryExpr is && || = or !=.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// NotExpr is !x.
type NotExpr struct{ X Expr }

// BoundExpr is BOUND(?v).
type BoundExpr struct{ Var string }

// NodeExpr is a variable or constant operand.
type NodeExpr struct{ Node Node }

// ExistsExpr is EXISTS { ... } or NOT EXISTS { ... }.
type ExistsExpr struct {
	Not   bool
	Group *Group
}

func (*BinaryExpr) expr() {}
func (*NotExpr) expr()    {}
func (*BoundExpr) expr()  {}
func (*NodeExpr) expr()   {}
func (*ExistsExpr) expr() {}
