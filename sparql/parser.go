package sparql

import (
	"fmt"
	"strings"
)

type parser struct {
	toks     []token
	pos      int
	q        *Query
	defaults map[string]string
	hidden   int
	seenVars map[string]bool
	// set when the last subject was "[ p o ]"
	anonProps bool
}

// Parse parses a query. Prefixes declared in the query take precedence over
// the defaults, which let callers use bindings known to the store (brick:,
// rdfs:, ...) without declaring them.
func Parse(src string, defaults map[string]string) (*Query, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		toks:     toks,
		defaults: defaults,
		seenVars: map[string]bool{},
		q: &Query{
			Prefixes: map[string]string{},
			Limit:    -1,
		},
	}
	if err := p.parseQuery(); err != nil {
		return nil, err
	}
	return p.q, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) accept(s string) bool {
	if p.peek().is(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(s string) error {
	t := p.next()
	if !t.is(s) {
		return p.errorf(t, "expected %q, found %s", s, t)
	}
	return nil
}

func (p *parser) expectKind(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", tokenNames[kind], t)
	}
	return t, nil
}

func (p *parser) useVar(name string) {
	if !p.seenVars[name] && !isHidden(name) {
		p.seenVars[name] = true
		p.q.varOrder = append(p.q.varOrder, name)
	}
}

func (p *parser) freshVar() string {
	p.hidden++
	return fmt.Sprintf("%sv%d", hiddenPrefix, p.hidden)
}

var unsupported = []string{"UNION", "MINUS", "GRAPH", "SERVICE", "BIND", "VALUES", "CONSTRUCT", "DESCRIBE", "HAVING", "FROM", "INSERT", "DELETE", "LOAD", "CLEAR", "DROP", "CREATE"}

func (p *parser) checkUnsupported(t token) error {
	if t.kind != tokWord {
		return nil
	}
	for _, kw := range unsupported {
		if strings.EqualFold(t.val, kw) {
			return p.errorf(t, "%s is not supported", strings.ToUpper(kw))
		}
	}
	return nil
}

func (p *parser) parseQuery() error {
	for {
		t := p.peek()
		switch {
		case t.is("PREFIX"):
			p.next()
			name, err := p.expectKind(tokPName)
			if err != nil {
				return err
			}
			prefix, local, _ := strings.Cut(name.val, ":")
			if local != "" {
				return p.errorf(name, "prefix declaration %q must end with ':'", name.val)
			}
			iri, err := p.expectKind(tokIRI)
			if err != nil {
				return err
			}
			p.q.Prefixes[prefix] = iri.val
			continue
		case t.is("BASE"):
			return p.errorf(t, "BASE is not supported")
		}
		break
	}

	t := p.next()
	switch {
	case t.is("SELECT"):
		p.q.Form = FormSelect
		if err := p.parseProjection(); err != nil {
			return err
		}
	case t.is("ASK"):
		p.q.Form = FormAsk
	default:
		if err := p.checkUnsupported(t); err != nil {
			return err
		}
		return p.errorf(t, "expected SELECT or ASK, found %s", t)
	}

	if err := p.checkUnsupported(p.peek()); err != nil {
		return err
	}
	p.accept("WHERE")
	where, err := p.parseGroup()
	if err != nil {
		return err
	}
	p.q.Where = where

	if err := p.parseModifiers(); err != nil {
		return err
	}
	if t := p.peek(); t.kind != tokEOF {
		if err := p.checkUnsupported(t); err != nil {
			return err
		}
		return p.errorf(t, "unexpected %s after query", t)
	}
	return p.checkProjection()
}

func (p *parser) parseProjection() error {
	if p.accept("DISTINCT") {
		p.q.Distinct = true
	} else {
		p.accept("REDUCED")
	}
	if p.accept("*") {
		p.q.Star = true
		return nil
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokVar:
			p.next()
			p.q.Projection = append(p.q.Projection, Projection{Var: t.val})
		case t.is("("):
			p.next()
			proj, err := p.parseAggregate()
			if err != nil {
				return err
			}
			p.q.Projection = append(p.q.Projection, proj)
		default:
			if len(p.q.Projection) == 0 {
				return p.errorf(t, "expected projection variable, found %s", t)
			}
			return nil
		}
	}
}

// parseAggregate parses COUNT(...) AS ?v) after the opening parenthesis.
func (p *parser) parseAggregate() (Projection, error) {
	t := p.next()
	if !t.is("COUNT") {
		return Projection{}, p.errorf(t, "only COUNT aggregates are supported, found %s", t)
	}
	if err := p.expect("("); err != nil {
		return Projection{}, err
	}
	agg := &Aggregate{}
	if p.accept("DISTINCT") {
		agg.Distinct = true
	}
	if !p.accept("*") {
		v, err := p.expectKind(tokVar)
		if err != nil {
			return Projection{}, err
		}
		agg.Var = v.val
	}
	if err := p.expect(")"); err != nil {
		return Projection{}, err
	}
	if err := p.expect("AS"); err != nil {
		return Projection{}, err
	}
	v, err := p.expectKind(tokVar)
	if err != nil {
		return Projection{}, err
	}
	if err := p.expect(")"); err != nil {
		return Projection{}, err
	}
	return Projection{Var: v.val, Agg: agg}, nil
}

func (p *parser) parseModifiers() error {
	if p.accept("GROUP") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		for p.peek().kind == tokVar {
			p.q.GroupBy = append(p.q.GroupBy, p.next().val)
		}
		if len(p.q.GroupBy) == 0 {
			return p.errorf(p.peek(), "GROUP BY needs at least one variable")
		}
	}
	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		for {
			t := p.peek()
			switch {
			case t.kind == tokVar:
				p.next()
				p.q.OrderBy = append(p.q.OrderBy, OrderCondition{Var: t.val})
				continue
			case t.is("ASC") || t.is("DESC"):
				p.next()
				if err := p.expect("("); err != nil {
					return err
				}
				v, err := p.expectKind(tokVar)
				if err != nil {
					return err
				}
				if err := p.expect(")"); err != nil {
					return err
				}
				p.q.OrderBy = append(p.q.OrderBy, OrderCondition{Var: v.val, Desc: t.is("DESC")})
				continue
			}
			break
		}
		if len(p.q.OrderBy) == 0 {
			return p.errorf(p.peek(), "ORDER BY needs at least one variable")
		}
	}
	for i := 0; i < 2; i++ {
		switch {
		case p.accept("LIMIT"):
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			p.q.Limit = n
		case p.accept("OFFSET"):
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			p.q.Offset = n
		}
	}
	return nil
}

func (p *parser) parseCount() (int, error) {
	t, err := p.expectKind(tokInteger)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := fmt.Sscanf(t.val, "%d", &n); err != nil {
		return 0, p.errorf(t, "bad number %s", t.val)
	}
	return n, nil
}

func (p *parser) checkProjection() error {
	aggregated := len(p.q.GroupBy) > 0
	for _, proj := range p.q.Projection {
		if proj.Agg != nil {
			aggregated = true
		}
	}
	if !aggregated {
		return nil
	}
	if p.q.Star {
		return &SyntaxError{Line: 1, Col: 1, Msg: "SELECT * cannot be combined with GROUP BY"}
	}
	for _, proj := range p.q.Projection {
		if proj.Agg == nil && !contains(p.q.GroupBy, proj.Var) {
			return &SyntaxError{Line: 1, Col: 1, Msg: fmt.Sprintf("variable ?%s must appear in GROUP BY", proj.Var)}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (p *parser) parseGroup() (*Group, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	g := &Group{}
	for {
		t := p.peek()
		switch {
		case t.is("}"):
			p.next()
			return g, nil
		case t.kind == tokEOF:
			return nil, p.errorf(t, "unterminated group, expected '}'")
		case t.is("."):
			p.next()
		case t.is("OPTIONAL"):
			p.next()
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &OptionalPattern{Group: sub})
		case t.is("FILTER"):
			p.next()
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &FilterPattern{Expr: e})
		case t.is("{"):
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			if p.peek().is("UNION") {
				return nil, p.errorf(p.peek(), "UNION is not supported")
			}
			g.Elements = append(g.Elements, &SubGroup{Group: sub})
		default:
			if err := p.checkUnsupported(t); err != nil {
				return nil, err
			}
			if err := p.parseTriples(g); err != nil {
				return nil, err
			}
		}
	}
}

func (p *parser) parseTriples(g *Group) error {
	subj, err := p.parseSubject(g)
	if err != nil {
		return err
	}
	// "[ p o ] ." stands alone; any other subject needs a predicate
	if p.peek().is(".") || p.peek().is("}") {
		if p.anonProps {
			return nil
		}
		return p.errorf(p.peek(), "expected predicate, found %s", p.peek())
	}
	return p.parsePropertyList(g, subj)
}

func (p *parser) parsePropertyList(g *Group, subj Node) error {
	for {
		if err := p.parseVerbObjects(g, subj); err != nil {
			return err
		}
		if !p.accept(";") {
			return nil
		}
		for p.accept(";") {
		}
		t := p.peek()
		if t.is(".") || t.is("}") || t.is("]") {
			return nil
		}
	}
}

func (p *parser) parseVerbObjects(g *Group, subj Node) error {
	if t := p.peek(); t.kind == tokVar {
		p.next()
		p.useVar(t.val)
		pred := varNode(t.val)
		return p.parseObjects(g, func(obj Node) {
			g.Elements = append(g.Elements, &TriplePattern{Subj: subj, Pred: pred, Obj: obj})
		})
	}
	steps, err := p.parsePath()
	if err != nil {
		return err
	}
	return p.parseObjects(g, func(obj Node) {
		p.emitPath(g, subj, steps, obj)
	})
}

func (p *parser) parseObjects(g *Group, emit func(Node)) error {
	for {
		obj, err := p.parseObject(g)
		if err != nil {
			return err
		}
		emit(obj)
		if !p.accept(",") {
			return nil
		}
	}
}

type pathStep struct {
	pred    Term
	inverse bool
	mod     byte
}

// parsePath parses elt ( '/' elt )* where elt is ['^'] iri [* + ?].
func (p *parser) parsePath() ([]pathStep, error) {
	var steps []pathStep
	for {
		step := pathStep{}
		if p.accept("^") {
			step.inverse = true
		}
		t := p.next()
		switch {
		case t.kind == tokWord && t.val == "a":
			step.pred = IRI(RDFType)
		case t.kind == tokIRI || t.kind == tokPName:
			iri, err := p.resolveIRI(t)
			if err != nil {
				return nil, err
			}
			step.pred = IRI(iri)
		case t.is("("):
			return nil, p.errorf(t, "grouped property paths are not supported")
		default:
			return nil, p.errorf(t, "expected predicate, found %s", t)
		}
		if m := p.peek(); m.is("*") || m.is("+") || m.is("?") {
			p.next()
			step.mod = m.val[0]
		}
		steps = append(steps, step)
		if p.peek().is("|") {
			return nil, p.errorf(p.peek(), "alternative property paths are not supported")
		}
		if !p.accept("/") {
			return steps, nil
		}
	}
}

// emitPath desugars a path sequence into triple patterns joined through
// hidden variables.
func (p *parser) emitPath(g *Group, subj Node, steps []pathStep, obj Node) {
	cur := subj
	for i, step := range steps {
		next := obj
		if i < len(steps)-1 {
			next = varNode(p.freshVar())
		}
		s, o := cur, next
		if step.inverse {
			s, o = o, s
		}
		g.Elements = append(g.Elements, &TriplePattern{Subj: s, Pred: termNode(step.pred), Mod: step.mod, Obj: o})
		cur = next
	}
}

func (p *parser) parseSubject(g *Group) (Node, error) {
	p.anonProps = false
	t := p.peek()
	switch {
	case t.kind == tokString || t.kind == tokInteger || t.kind == tokDecimal:
		return Node{}, p.errorf(t, "literal %s cannot be a subject", t)
	}
	return p.parseObject(g)
}

func (p *parser) parseObject(g *Group) (Node, error) {
	t := p.next()
	switch {
	case t.kind == tokVar:
		p.useVar(t.val)
		return varNode(t.val), nil
	case t.kind == tokIRI || t.kind == tokPName:
		iri, err := p.resolveIRI(t)
		if err != nil {
			return Node{}, err
		}
		return termNode(IRI(iri)), nil
	case t.kind == tokBlank:
		return varNode(hiddenPrefix + "b_" + t.val), nil
	case t.is("["):
		anon := varNode(p.freshVar())
		if p.accept("]") {
			return anon, nil
		}
		if g == nil {
			return Node{}, p.errorf(t, "blank node property lists are not allowed here")
		}
		if err := p.parsePropertyList(g, anon); err != nil {
			return Node{}, err
		}
		p.anonProps = true
		return anon, p.expect("]")
	case t.kind == tokString:
		return p.parseLiteralTail(t)
	case t.kind == tokInteger:
		return termNode(Literal(t.val, XSDInteger)), nil
	case t.kind == tokDecimal:
		return termNode(Literal(t.val, XSDDecimal)), nil
	case t.is("true") || t.is("false"):
		return termNode(Literal(strings.ToLower(t.val), XSDBoolean)), nil
	}
	return Node{}, p.errorf(t, "expected term, found %s", t)
}

func (p *parser) parseLiteralTail(str token) (Node, error) {
	switch t := p.peek(); {
	case t.kind == tokLangTag:
		p.next()
		return termNode(LangLiteral(str.val, t.val)), nil
	case t.is("^^"):
		p.next()
		dt := p.next()
		if dt.kind != tokIRI && dt.kind != tokPName {
			return Node{}, p.errorf(dt, "expected datatype IRI, found %s", dt)
		}
		iri, err := p.resolveIRI(dt)
		if err != nil {
			return Node{}, err
		}
		return termNode(Literal(str.val, iri)), nil
	}
	return termNode(Literal(str.val, XSDString)), nil
}

func (p *parser) resolveIRI(t token) (string, error) {
	if t.kind == tokIRI {
		return t.val, nil
	}
	prefix, local, _ := strings.Cut(t.val, ":")
	if ns, ok := p.q.Prefixes[prefix]; ok {
		return ns + local, nil
	}
	if ns, ok := p.defaults[prefix]; ok {
		return ns + local, nil
	}
	return "", p.errorf(t, "unknown prefix %q", prefix+":")
}

// parseConstraint parses what follows FILTER.
func (p *parser) parseConstraint() (Expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case t.is("EXISTS"), t.is("NOT"), t.is("BOUND"):
		return p.parsePrimary()
	}
	return nil, p.errorf(t, "expected filter constraint, found %s", t)
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.is("=") || t.is("!=") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: t.val, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.accept("!") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case t.is("EXISTS"):
		p.next()
		g, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return &ExistsExpr{Group: g}, nil
	case t.is("NOT"):
		p.next()
		if err := p.expect("EXISTS"); err != nil {
			return nil, err
		}
		g, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return &ExistsExpr{Not: true, Group: g}, nil
	case t.is("BOUND"):
		p.next()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		v, err := p.expectKind(tokVar)
		if err != nil {
			return nil, err
		}
		return &BoundExpr{Var: v.val}, p.expect(")")
	case t.kind == tokBlank:
		return nil, p.errorf(t, "blank nodes are not allowed in filters")
	case t.kind == tokWord && !t.is("true") && !t.is("false"):
		return nil, p.errorf(t, "function %s is not supported", t.val)
	}
	n, err := p.parseObject(nil)
	if err != nil {
		return nil, err
	}
	return &NodeExpr{Node: n}, nil
}
