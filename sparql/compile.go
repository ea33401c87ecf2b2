package sparql

import (
	"fmt"
	"strings"

	"github.com/buildsys/brick-api/errors"
)

// ResolveFunc maps a constant term to its dictionary id. An id of 0 means
// the term does not occur in the store, so patterns using it match nothing.
type ResolveFunc func(Term) (int64, error)

// The compiled SQL assumes these tables:
//
//	terms(id INTEGER PRIMARY KEY, kind, value, datatype, lang)
//	triples(s, p, o)  -- term ids
//
// Every group pattern becomes a relation whose columns hold term ids, one
// column per variable, plus a constant column u so that relations without
// variables stay valid SQL.

type column struct {
	name string // variable name
	sql  string // column alias in the solution subquery
	agg  bool
}

// Plan is a compiled query.
type Plan struct {
	SQL     string
	Vars    []string
	Ask     bool
	columns []column
}

type relation struct {
	sql   string
	vars  []string
	set   map[string]bool
	maybe map[string]bool // variables that may be unbound (NULL)
	unit  bool
}

func newRelation(sql string) *relation {
	return &relation{sql: sql, set: map[string]bool{}, maybe: map[string]bool{}}
}

func unitRelation() *relation {
	r := newRelation("SELECT 1 AS u")
	r.unit = true
	return r
}

func (r *relation) add(v string, maybe bool) {
	if r.set[v] {
		return
	}
	r.set[v] = true
	r.vars = append(r.vars, v)
	if maybe {
		r.maybe[v] = true
	}
}

func (r *relation) has(v string) bool { return r.set[v] }

type compiler struct {
	resolve ResolveFunc
	ids     map[Term]int64
	cols    map[string]string
	ctes    []string
	nodes   bool
	aliases int
	// absent holds constants that are not in the store but are bound by a
	// zero-length path; they get negative ids decoded from a VALUES list
	absent []Term
}

// Compile turns a parsed query into a single SQLite statement. Constant
// terms are resolved to ids up front and inlined.
func Compile(q *Query, resolve ResolveFunc) (*Plan, error) {
	c := &compiler{
		resolve: resolve,
		ids:     map[Term]int64{},
		cols:    map[string]string{},
	}
	rel, err := c.group(q.Where)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	var body string
	if q.Form == FormAsk {
		plan.Ask = true
		body = fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM (%s) %s)", rel.sql, c.alias("g"))
	} else {
		body, err = c.selectQuery(q, rel, plan)
		if err != nil {
			return nil, err
		}
	}
	plan.SQL = c.with() + body
	return plan, nil
}

func (c *compiler) alias(prefix string) string {
	c.aliases++
	return fmt.Sprintf("%s%d", prefix, c.aliases)
}

func (c *compiler) col(v string) string {
	if name, ok := c.cols[v]; ok {
		return name
	}
	name := fmt.Sprintf("c%d", len(c.cols))
	c.cols[v] = name
	return name
}

func (c *compiler) termID(t Term) (int64, error) {
	t = t.Normalize()
	if id, ok := c.ids[t]; ok {
		return id, nil
	}
	id, err := c.resolve(t)
	if err != nil {
		return 0, err
	}
	c.ids[t] = id
	return id, nil
}

// absentID gives t, which is not in the store, a negative id that no
// triple uses. Later lookups of t return the same id.
func (c *compiler) absentID(t Term) int64 {
	t = t.Normalize()
	if id, ok := c.ids[t]; ok && id < 0 {
		return id
	}
	c.absent = append(c.absent, t)
	id := -int64(len(c.absent))
	c.ids[t] = id
	return id
}

// termSource is the relation result columns are decoded from.
func (c *compiler) termSource() string {
	if len(c.absent) == 0 {
		return "terms"
	}
	return "(SELECT id, kind, value, datatype, lang FROM terms UNION ALL SELECT id, kind, value, datatype, lang FROM absent_terms)"
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *compiler) with() string {
	var defs []string
	if c.nodes {
		defs = append(defs, "nodes(id) AS (SELECT s FROM triples UNION SELECT o FROM triples)")
	}
	if len(c.absent) > 0 {
		rows := make([]string, len(c.absent))
		for i, t := range c.absent {
			rows[i] = fmt.Sprintf("(%d, %d, %s, %s, %s)", -(i + 1), int(t.Kind),
				sqlString(t.Value), sqlString(t.Datatype), sqlString(t.Lang))
		}
		defs = append(defs, "absent_terms(id, kind, value, datatype, lang) AS (VALUES "+strings.Join(rows, ", ")+")")
	}
	defs = append(defs, c.ctes...)
	if len(defs) == 0 {
		return ""
	}
	return "WITH RECURSIVE " + strings.Join(defs, ", ") + " "
}

func (c *compiler) group(g *Group) (*relation, error) {
	cur, filters, err := c.groupParts(g)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		return c.filter(cur, filters)
	}
	return cur, nil
}

// groupParts compiles the patterns of g and returns its filters unapplied,
// so an OPTIONAL group's filters can become part of the left join.
func (c *compiler) groupParts(g *Group) (*relation, []Expr, error) {
	var (
		cur     *relation
		bgp     []*TriplePattern
		filters []Expr
	)
	flush := func() error {
		if len(bgp) == 0 {
			return nil
		}
		r, err := c.bgp(bgp)
		if err != nil {
			return err
		}
		bgp = nil
		cur, err = c.join(cur, r, false, nil)
		return err
	}

	for _, el := range g.Elements {
		switch x := el.(type) {
		case *TriplePattern:
			bgp = append(bgp, x)
		case *OptionalPattern:
			if err := flush(); err != nil {
				return nil, nil, err
			}
			r, inner, err := c.groupParts(x.Group)
			if err != nil {
				return nil, nil, err
			}
			if cur, err = c.join(cur, r, true, inner); err != nil {
				return nil, nil, err
			}
		case *SubGroup:
			if err := flush(); err != nil {
				return nil, nil, err
			}
			r, err := c.group(x.Group)
			if err != nil {
				return nil, nil, err
			}
			if cur, err = c.join(cur, r, false, nil); err != nil {
				return nil, nil, err
			}
		case *FilterPattern:
			filters = append(filters, x.Expr)
		}
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}
	if cur == nil {
		cur = unitRelation()
	}
	return cur, filters, nil
}

// bgp compiles a basic graph pattern into one multi-way self join.
func (c *compiler) bgp(patterns []*TriplePattern) (*relation, error) {
	var (
		from, where []string
		vars        []string
	)
	bound := map[string]string{}
	bind := func(n Node, column string) error {
		if n.IsVar() {
			if prev, ok := bound[n.Var]; ok {
				where = append(where, prev+" = "+column)
				return nil
			}
			bound[n.Var] = column
			vars = append(vars, n.Var)
			return nil
		}
		id, err := c.termID(n.Term)
		if err != nil {
			return err
		}
		where = append(where, fmt.Sprintf("%s = %d", column, id))
		return nil
	}

	for _, tp := range patterns {
		t := c.alias("t")
		var s, o string
		if tp.Mod == 0 {
			from = append(from, "triples "+t)
			s, o = t+".s", t+".o"
			if err := bind(tp.Pred, t+".p"); err != nil {
				return nil, err
			}
		} else {
			cte, err := c.path(tp)
			if err != nil {
				return nil, err
			}
			from = append(from, cte+" "+t)
			s, o = t+".a", t+".b"
		}
		if err := bind(tp.Subj, s); err != nil {
			return nil, err
		}
		if err := bind(tp.Obj, o); err != nil {
			return nil, err
		}
	}

	sel := []string{"1 AS u"}
	for _, v := range vars {
		sel = append(sel, bound[v]+" AS "+c.col(v))
	}
	sql := "SELECT " + strings.Join(sel, ", ") + " FROM " + strings.Join(from, ", ")
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	r := newRelation(sql)
	for _, v := range vars {
		r.add(v, false)
	}
	return r, nil
}

// path adds a recursive CTE path<N>(a, b) holding the pairs connected by the
// path and returns its name. A constant subject seeds the closure forward, a
// constant object seeds it backward; otherwise the closure starts from every
// node in the graph.
func (c *compiler) path(tp *TriplePattern) (string, error) {
	if tp.Pred.IsVar() {
		return "", errors.New("property path modifiers need a constant predicate")
	}
	pred, err := c.termID(tp.Pred.Term)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("path%d", len(c.ctes))

	var zero, one, step string
	forward := !tp.Subj.IsVar()
	seed := tp.Obj.Term
	if forward {
		seed = tp.Subj.Term
	}

	var body string
	if forward || !tp.Obj.IsVar() {
		id, err := c.termID(seed)
		if err != nil {
			return "", err
		}
		if id == 0 {
			if tp.Mod == '+' {
				// one or more hops from a term that is not in the graph
				c.ctes = append(c.ctes, fmt.Sprintf("%s(a, b) AS (SELECT NULL, NULL WHERE 0)", name))
				return name, nil
			}
			// zero hops still match the term itself
			id = c.absentID(seed)
		}
		zero = fmt.Sprintf("SELECT %d, %d", id, id)
		if forward {
			one = fmt.Sprintf("SELECT s, o FROM triples WHERE s = %d AND p = %d", id, pred)
			step = fmt.Sprintf("SELECT r.a, t.o FROM %s r JOIN triples t ON t.s = r.b AND t.p = %d", name, pred)
		} else {
			one = fmt.Sprintf("SELECT s, o FROM triples WHERE o = %d AND p = %d", id, pred)
			step = fmt.Sprintf("SELECT t.s, r.b FROM %s r JOIN triples t ON t.o = r.a AND t.p = %d", name, pred)
		}
	} else {
		zero = "SELECT id, id FROM nodes"
		one = fmt.Sprintf("SELECT s, o FROM triples WHERE p = %d", pred)
		step = fmt.Sprintf("SELECT r.a, t.o FROM %s r JOIN triples t ON t.s = r.b AND t.p = %d", name, pred)
	}

	switch tp.Mod {
	case '*':
		body = zero + " UNION " + step
	case '+':
		body = one + " UNION " + step
	case '?':
		body = zero + " UNION " + one
	default:
		return "", errors.Newf("unknown path modifier %q", tp.Mod)
	}
	if strings.Contains(body, "FROM nodes") {
		c.nodes = true
	}
	c.ctes = append(c.ctes, fmt.Sprintf("%s(a, b) AS (%s)", name, body))
	return name, nil
}

// join combines two relations on their shared variables. Shared variables
// that may be unbound on either side join compatibly: NULL matches anything.
// filters belong to an OPTIONAL right side and are checked in the join
// condition, where variables of both sides are visible.
func (c *compiler) join(l, r *relation, optional bool, filters []Expr) (*relation, error) {
	if l == nil {
		if !optional {
			return r, nil
		}
		l = unitRelation()
	}
	if !optional && l.unit {
		return r, nil
	}
	if r.unit {
		// an optional part without patterns keeps every left row
		return l, nil
	}

	la, ra := c.alias("l"), c.alias("r")
	sel := []string{"1 AS u"}
	var on []string
	out := newRelation("")
	for _, v := range l.vars {
		col := c.col(v)
		lc, rc := la+"."+col, ra+"."+col
		switch {
		case !r.has(v):
			sel = append(sel, lc+" AS "+col)
			out.add(v, l.maybe[v])
		case !l.maybe[v] && !r.maybe[v]:
			on = append(on, lc+" = "+rc)
			sel = append(sel, lc+" AS "+col)
			out.add(v, false)
		default:
			on = append(on, fmt.Sprintf("(%s IS NULL OR %s IS NULL OR %s = %s)", lc, rc, lc, rc))
			sel = append(sel, fmt.Sprintf("COALESCE(%s, %s) AS %s", lc, rc, col))
			out.add(v, l.maybe[v] && (r.maybe[v] || optional))
		}
	}
	for _, v := range r.vars {
		if l.has(v) {
			continue
		}
		col := c.col(v)
		sel = append(sel, ra+"."+col+" AS "+col)
		out.add(v, optional || r.maybe[v])
	}

	both := func(v string) (string, bool, bool) {
		lh, rh := l.has(v), r.has(v)
		col := c.col(v)
		switch {
		case lh && rh && !l.maybe[v] && !r.maybe[v]:
			return la + "." + col, false, true
		case lh && rh:
			return fmt.Sprintf("COALESCE(%s.%s, %s.%s)", la, col, ra, col), l.maybe[v] && r.maybe[v], true
		case lh:
			return la + "." + col, l.maybe[v], true
		case rh:
			return ra + "." + col, r.maybe[v], true
		}
		return "", false, false
	}
	for _, e := range filters {
		cond, err := c.expr(e, both)
		if err != nil {
			return nil, err
		}
		on = append(on, cond)
	}

	kind := "JOIN"
	if optional {
		kind = "LEFT JOIN"
	}
	cond := "1"
	if len(on) > 0 {
		cond = strings.Join(on, " AND ")
	}
	out.sql = fmt.Sprintf("SELECT %s FROM (%s) %s %s (%s) %s ON %s",
		strings.Join(sel, ", "), l.sql, la, kind, r.sql, ra, cond)
	return out, nil
}

// scope resolves a variable to its SQL column, whether it may be NULL, and
// whether it is in scope at all.
type scope func(v string) (sql string, maybe bool, ok bool)

func (c *compiler) relScope(r *relation, alias string) scope {
	return func(v string) (string, bool, bool) {
		if !r.has(v) {
			return "", false, false
		}
		return alias + "." + c.col(v), r.maybe[v], true
	}
}

func (c *compiler) filter(r *relation, exprs []Expr) (*relation, error) {
	f := c.alias("f")
	sc := c.relScope(r, f)
	conds := make([]string, 0, len(exprs))
	for _, e := range exprs {
		s, err := c.expr(e, sc)
		if err != nil {
			return nil, err
		}
		conds = append(conds, s)
	}
	out := newRelation(fmt.Sprintf("SELECT * FROM (%s) %s WHERE %s", r.sql, f, strings.Join(conds, " AND ")))
	for _, v := range r.vars {
		out.add(v, r.maybe[v])
	}
	return out, nil
}

var sqlOps = map[string]string{"&&": "AND", "||": "OR", "=": "=", "!=": "<>"}

func (c *compiler) expr(e Expr, sc scope) (string, error) {
	switch x := e.(type) {
	case *BinaryExpr:
		l, err := c.expr(x.Left, sc)
		if err != nil {
			return "", err
		}
		r, err := c.expr(x.Right, sc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, sqlOps[x.Op], r), nil
	case *NotExpr:
		inner, err := c.expr(x.X, sc)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil
	case *BoundExpr:
		col, _, ok := sc(x.Var)
		if !ok {
			return "0", nil
		}
		return fmt.Sprintf("(%s IS NOT NULL)", col), nil
	case *NodeExpr:
		if x.Node.IsVar() {
			col, _, ok := sc(x.Node.Var)
			if !ok {
				return "NULL", nil
			}
			return col, nil
		}
		id, err := c.termID(x.Node.Term)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", id), nil
	case *ExistsExpr:
		inner, err := c.group(x.Group)
		if err != nil {
			return "", err
		}
		ex := c.alias("x")
		var conds []string
		for _, v := range inner.vars {
			oc, maybe, ok := sc(v)
			if !ok {
				continue
			}
			ic := ex + "." + c.col(v)
			if maybe || inner.maybe[v] {
				conds = append(conds, fmt.Sprintf("(%s IS NULL OR %s IS NULL OR %s = %s)", oc, ic, ic, oc))
			} else {
				conds = append(conds, ic+" = "+oc)
			}
		}
		s := fmt.Sprintf("EXISTS (SELECT 1 FROM (%s) %s", inner.sql, ex)
		if len(conds) > 0 {
			s += " WHERE " + strings.Join(conds, " AND ")
		}
		s += ")"
		if x.Not {
			s = "NOT " + s
		}
		return "(" + s + ")", nil
	}
	return "", errors.Newf("unsupported filter expression %T", e)
}

const numericKey = "CASE WHEN %[1]s.datatype IN ('" + XSDInteger + "', '" + XSDDecimal + "', '" + XSDDouble + "') THEN CAST(%[1]s.value AS REAL) END"

func (c *compiler) selectQuery(q *Query, rel *relation, plan *Plan) (string, error) {
	proj := q.Projection
	if q.Star {
		for _, v := range q.varOrder {
			if rel.has(v) {
				proj = append(proj, Projection{Var: v})
			}
		}
	}
	aggregated := len(q.GroupBy) > 0
	for _, p := range proj {
		if p.Agg != nil {
			aggregated = true
		}
	}

	g := c.alias("g")
	ref := func(v string) string {
		if rel.has(v) {
			return g + "." + c.col(v)
		}
		return "NULL"
	}
	inner := []string{"1 AS u"}
	orderable := map[string]column{}
	for i, p := range proj {
		if _, dup := orderable[p.Var]; dup {
			continue
		}
		col := column{name: p.Var, sql: c.col(p.Var)}
		expr := ref(p.Var)
		if p.Agg != nil {
			col.sql, col.agg = fmt.Sprintf("a%d", i), true
			switch {
			case p.Agg.Var == "":
				expr = "COUNT(*)"
			case p.Agg.Distinct:
				expr = "COUNT(DISTINCT " + ref(p.Agg.Var) + ")"
			default:
				expr = "COUNT(" + ref(p.Agg.Var) + ")"
			}
		}
		inner = append(inner, expr+" AS "+col.sql)
		plan.columns = append(plan.columns, col)
		plan.Vars = append(plan.Vars, p.Var)
		orderable[p.Var] = col
	}

	var body string
	if aggregated {
		for _, o := range q.OrderBy {
			if _, ok := orderable[o.Var]; !ok {
				return "", errors.Newf("ORDER BY ?%s must be projected in an aggregate query", o.Var)
			}
		}
		body = fmt.Sprintf("SELECT %s FROM (%s) %s", strings.Join(inner, ", "), rel.sql, g)
		if len(q.GroupBy) > 0 {
			keys := make([]string, 0, len(q.GroupBy))
			for _, v := range q.GroupBy {
				keys = append(keys, ref(v))
			}
			body += " GROUP BY " + strings.Join(keys, ", ")
		}
	} else {
		// ordering by a variable that is not projected still needs its id,
		// except under DISTINCT where the extra column would split rows;
		// such keys are ignored there
		for _, o := range q.OrderBy {
			if _, ok := orderable[o.Var]; ok || !rel.has(o.Var) || q.Distinct {
				continue
			}
			col := column{name: o.Var, sql: c.col(o.Var)}
			inner = append(inner, ref(o.Var)+" AS "+col.sql)
			orderable[o.Var] = col
		}
		distinct := ""
		if q.Distinct {
			distinct = "DISTINCT "
		}
		body = fmt.Sprintf("SELECT %s%s FROM (%s) %s", distinct, strings.Join(inner, ", "), rel.sql, g)
	}

	qa := c.alias("q")
	outer := []string{qa + ".u"}
	var joins []string
	termAlias := map[string]string{}
	joinTerms := func(col column) string {
		k := c.alias("k")
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.id = %s.%s", c.termSource(), k, k, qa, col.sql))
		termAlias[col.name] = k
		return k
	}
	for _, col := range plan.columns {
		if col.agg {
			outer = append(outer, qa+"."+col.sql)
			continue
		}
		k := joinTerms(col)
		outer = append(outer, k+".kind", k+".value", k+".datatype", k+".lang")
	}

	var order []string
	for _, o := range q.OrderBy {
		col, ok := orderable[o.Var]
		if !ok {
			continue
		}
		dir := ""
		if o.Desc {
			dir = " DESC"
		}
		if col.agg {
			order = append(order, qa+"."+col.sql+dir)
			continue
		}
		k, ok := termAlias[o.Var]
		if !ok {
			k = joinTerms(col)
		}
		order = append(order, k+".kind"+dir, fmt.Sprintf(numericKey, k)+dir, k+".value"+dir)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM (%s) %s", strings.Join(outer, ", "), body, qa)
	for _, j := range joins {
		sb.WriteString(" " + j)
	}
	if len(order) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	switch {
	case q.Limit >= 0:
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
		if q.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
		}
	case q.Offset > 0:
		fmt.Fprintf(&sb, " LIMIT -1 OFFSET %d", q.Offset)
	}
	return sb.String(), nil
}
