package memory

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/graphrules/engine/ast"
)

type matchClause struct {
	alias      string
	entityType string
}

type parsedQuery struct {
	matches []matchClause
	where   whereNode
	returns []string
}

// whereNode is the query language's own tiny expression tree, distinct
// from ast.Expr: it operates over query text emitted by package
// translate, not over DSL source.
type whereNode interface{ whereNode() }

type valueNode interface{ valueNode() }

type pathValue struct{ alias, prop string }
type paramValue struct{ name string }

func (pathValue) valueNode()  {}
func (paramValue) valueNode() {}

type cmpNode struct {
	op          string
	left, right valueNode
}
type inNode struct {
	left  valueNode
	param string
}
type nullNode struct {
	left   valueNode
	negate bool
}
type matchesNode struct {
	left  valueNode
	param string
}
type notNode struct{ inner whereNode }
type boolOpNode struct {
	op    string // AND / OR
	parts []whereNode
}
type existsNode struct {
	head, rel, tail string
	where           whereNode
}

func (cmpNode) whereNode()     {}
func (inNode) whereNode()      {}
func (nullNode) whereNode()    {}
func (matchesNode) whereNode() {}
func (notNode) whereNode()     {}
func (boolOpNode) whereNode()  {}
func (existsNode) whereNode()  {}

// --- lexer ---

type qtokKind int

const (
	qEOF qtokKind = iota
	qIdent
	qParam
	qLParen
	qRParen
	qLBracket
	qRBracket
	qDot
	qComma
	qColon
	qMinus
	qGt
	qEq
	qNe
	qLt
	qLe
	qGe
)

type qtoken struct {
	kind qtokKind
	text string
}

type qlexer struct {
	src []rune
	pos int
}

func (l *qlexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *qlexer) peekAt(n int) rune {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func isQIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isQIdentPart(r rune) bool {
	return isQIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *qlexer) next() (qtoken, error) {
	for l.pos < len(l.src) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			l.pos++
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return qtoken{kind: qEOF}, nil
	}
	r := l.peek()
	switch {
	case isQIdentStart(r):
		start := l.pos
		for l.pos < len(l.src) && isQIdentPart(l.peek()) {
			l.pos++
		}
		return qtoken{kind: qIdent, text: string(l.src[start:l.pos])}, nil
	case r == '$':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isQIdentPart(l.peek()) {
			l.pos++
		}
		return qtoken{kind: qParam, text: string(l.src[start:l.pos])}, nil
	case r == '(':
		l.pos++
		return qtoken{kind: qLParen, text: "("}, nil
	case r == ')':
		l.pos++
		return qtoken{kind: qRParen, text: ")"}, nil
	case r == '[':
		l.pos++
		return qtoken{kind: qLBracket, text: "["}, nil
	case r == ']':
		l.pos++
		return qtoken{kind: qRBracket, text: "]"}, nil
	case r == '.':
		l.pos++
		return qtoken{kind: qDot, text: "."}, nil
	case r == ',':
		l.pos++
		return qtoken{kind: qComma, text: ","}, nil
	case r == ':':
		l.pos++
		return qtoken{kind: qColon, text: ":"}, nil
	case r == '-':
		l.pos++
		return qtoken{kind: qMinus, text: "-"}, nil
	case r == '>':
		l.pos++
		return qtoken{kind: qGt, text: ">"}, nil
	case r == '=' && l.peekAt(1) == '=':
		l.pos += 2
		return qtoken{kind: qEq, text: "=="}, nil
	case r == '!' && l.peekAt(1) == '=':
		l.pos += 2
		return qtoken{kind: qNe, text: "!="}, nil
	case r == '<' && l.peekAt(1) == '=':
		l.pos += 2
		return qtoken{kind: qLe, text: "<="}, nil
	case r == '<':
		l.pos++
		return qtoken{kind: qLt, text: "<"}, nil
	}
	return qtoken{}, fmt.Errorf("memory: unexpected character %q in query", string(r))
}

// --- parser ---

type qparser struct {
	lx  *qlexer
	cur qtoken
}

func newQParser(src string) (*qparser, error) {
	p := &qparser{lx: &qlexer{src: []rune(src)}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *qparser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *qparser) isKeyword(kw string) bool {
	return p.cur.kind == qIdent && strings.EqualFold(p.cur.text, kw)
}

func (p *qparser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return fmt.Errorf("memory: expected %q in query, got %q", kw, p.cur.text)
	}
	return p.advance()
}

func (p *qparser) expectKind(k qtokKind) (qtoken, error) {
	if p.cur.kind != k {
		return qtoken{}, fmt.Errorf("memory: unexpected token %q in query", p.cur.text)
	}
	t := p.cur
	return t, p.advance()
}

func parseQuery(src string) (*parsedQuery, error) {
	p, err := newQParser(src)
	if err != nil {
		return nil, err
	}

	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	var matches []matchClause
	for {
		if _, err := p.expectKind(qLParen); err != nil {
			return nil, err
		}
		alias, err := p.expectKind(qIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qColon); err != nil {
			return nil, err
		}
		typ, err := p.expectKind(qIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qRParen); err != nil {
			return nil, err
		}
		matches = append(matches, matchClause{alias: alias.text, entityType: typ.text})
		if p.cur.kind == qComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	var where whereNode
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	var returns []string
	for {
		id, err := p.expectKind(qIdent)
		if err != nil {
			return nil, err
		}
		returns = append(returns, id.text)
		if p.cur.kind == qComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	return &parsedQuery{matches: matches, where: where, returns: returns}, nil
}

// parseWhere parses the boolean expression language emitted by package
// translate: fully parenthesized binary/unary forms and EXISTS
// patterns. A bare term with no operator is rejected.
func (p *qparser) parseWhere() (whereNode, error) {
	if p.isKeyword("EXISTS") {
		return p.parseExists()
	}
	if p.isKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qRParen); err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	if p.cur.kind == qLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		first, err := p.parseWhereOrValue()
		if err != nil {
			return nil, err
		}
		node, err := p.finishParenExpr(first)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qRParen); err != nil {
			return nil, err
		}
		return node, nil
	}
	return nil, fmt.Errorf("memory: expected a boolean expression in query")
}

// parseWhereOrValue parses either a nested boolean node (if it starts
// with '(' or a keyword) or a bare value term.
func (p *qparser) parseWhereOrValue() (interface{}, error) {
	if p.cur.kind == qLParen || p.isKeyword("NOT") || p.isKeyword("EXISTS") {
		return p.parseWhere()
	}
	return p.parseValue()
}

// finishParenExpr is called just after consuming the first operand
// inside a parenthesized group, and dispatches on what follows:
// a comparison operator, IN, IS [NOT] NULL, MATCHES, or AND/OR chains
// of already-parsed boolean nodes.
func (p *qparser) finishParenExpr(first interface{}) (whereNode, error) {
	if node, ok := first.(whereNode); ok {
		return p.continueBoolChain(node)
	}
	left := first.(valueNode)

	switch {
	case p.cur.kind == qEq || p.cur.kind == qNe || p.cur.kind == qLt || p.cur.kind == qGt || p.cur.kind == qLe || p.cur.kind == qGe:
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return cmpNode{op: op, left: left, right: right}, nil

	case p.isKeyword("IN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		param, err := p.expectKind(qParam)
		if err != nil {
			return nil, err
		}
		return inNode{left: left, param: param.text}, nil

	case p.isKeyword("IS"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.isKeyword("NOT") {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return nullNode{left: left, negate: negate}, nil

	case p.isKeyword("MATCHES"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		param, err := p.expectKind(qParam)
		if err != nil {
			return nil, err
		}
		return matchesNode{left: left, param: param.text}, nil
	}

	return nil, fmt.Errorf("memory: malformed comparison in query")
}

func (p *qparser) continueBoolChain(first whereNode) (whereNode, error) {
	if !p.isKeyword("AND") && !p.isKeyword("OR") {
		return first, nil
	}
	op := strings.ToUpper(p.cur.text)
	parts := []whereNode{first}
	for p.isKeyword(op) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qLParen); err != nil {
			return nil, err
		}
		next, err := p.parseWhereOrValue()
		if err != nil {
			return nil, err
		}
		nextNode, err := p.finishParenExpr(next)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qRParen); err != nil {
			return nil, err
		}
		parts = append(parts, nextNode)
	}
	return boolOpNode{op: op, parts: parts}, nil
}

func (p *qparser) parseExists() (whereNode, error) {
	if err := p.expectKeyword("EXISTS"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qLParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qLParen); err != nil {
		return nil, err
	}
	head, err := p.expectKind(qIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qRParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qMinus); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qLBracket); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qColon); err != nil {
		return nil, err
	}
	rel, err := p.expectKind(qIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qRBracket); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qMinus); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qGt); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qLParen); err != nil {
		return nil, err
	}
	tail, err := p.expectKind(qIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(qRParen); err != nil {
		return nil, err
	}
	var inner whereNode
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKind(qRParen); err != nil {
		return nil, err
	}
	return existsNode{head: head.text, rel: rel.text, tail: tail.text, where: inner}, nil
}

func (p *qparser) parseValue() (valueNode, error) {
	if p.cur.kind == qParam {
		name := p.cur.text
		return paramValue{name: name}, p.advance()
	}
	if p.cur.kind == qIdent {
		alias := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expectKind(qDot); err != nil {
			return nil, err
		}
		prop, err := p.expectKind(qIdent)
		if err != nil {
			return nil, err
		}
		return pathValue{alias: alias, prop: prop.text}, nil
	}
	return nil, fmt.Errorf("memory: expected a value in query")
}

// --- evaluation ---

func (s *Store) resolveValue(v valueNode, binding map[string]*ast.Entity, params map[string]interface{}) interface{} {
	switch n := v.(type) {
	case pathValue:
		e := binding[n.alias]
		if e == nil {
			return nil
		}
		if n.prop == "id" {
			return e.ID
		}
		return e.Get(n.prop)
	case paramValue:
		return params[n.name]
	}
	return nil
}

func (s *Store) evalBool(w whereNode, binding map[string]*ast.Entity, params map[string]interface{}) (bool, error) {
	if w == nil {
		return true, nil
	}
	switch n := w.(type) {
	case cmpNode:
		left := s.resolveValue(n.left, binding, params)
		right := s.resolveValue(n.right, binding, params)
		return compareValues(n.op, left, right), nil

	case inNode:
		left := s.resolveValue(n.left, binding, params)
		list, _ := params[n.param].([]interface{})
		for _, item := range list {
			if compareValues("==", left, item) {
				return true, nil
			}
		}
		return false, nil

	case nullNode:
		left := s.resolveValue(n.left, binding, params)
		isNull := left == nil
		if n.negate {
			return !isNull, nil
		}
		return isNull, nil

	case matchesNode:
		left := s.resolveValue(n.left, binding, params)
		pattern, _ := params[n.param].(string)
		str, ok := left.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return false, fmt.Errorf("memory: bad MATCHES pattern: %w", err)
		}
		return re.MatchString(str)

	case notNode:
		inner, err := s.evalBool(n.inner, binding, params)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case boolOpNode:
		if n.op == "AND" {
			for _, part := range n.parts {
				ok, err := s.evalBool(part, binding, params)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		}
		for _, part := range n.parts {
			ok, err := s.evalBool(part, binding, params)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case existsNode:
		head := binding[n.head]
		if head == nil {
			return false, nil
		}
		for _, rel := range s.relationships {
			if rel.Type != n.rel || rel.From != head.ID {
				continue
			}
			tail := s.findByID(rel.To)
			if tail == nil {
				continue
			}
			sub := map[string]*ast.Entity{n.head: head, n.tail: tail}
			for k, v := range binding {
				if _, exists := sub[k]; !exists {
					sub[k] = v
				}
			}
			ok, err := s.evalBool(n.where, sub, params)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("memory: unknown query node")
}

func (s *Store) findByID(id string) *ast.Entity {
	for _, bucket := range s.entities {
		if e, ok := bucket[id]; ok {
			return e
		}
	}
	return nil
}

func compareValues(op string, a, b interface{}) bool {
	switch op {
	case "==":
		return valuesEqual(a, b)
	case "!=":
		return !valuesEqual(a, b)
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case "<":
			return af < bf
		case ">":
			return af > bf
		case "<=":
			return af <= bf
		case ">=":
			return af >= bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case ">":
			return as > bs
		case "<=":
			return as <= bs
		case ">=":
			return as >= bs
		}
	}
	return false
}

func valuesEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
