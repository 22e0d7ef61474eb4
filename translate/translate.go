// Package translate compiles a FOR clause and its guard expression into
// a parameterized query string plus a parameter mapping. No literal
// from the source expression is ever written into the query text: every
// literal is replaced by a fresh "$param_N" placeholder and recorded in
// the returned parameter map.
//
// The emitted query language is a small Cypher-flavored subset: MATCH
// clauses for the loop variable and any outer-bound variables, a WHERE
// clause built from the guard, and a RETURN list. See graph/memory for
// the reference interpreter.
package translate

import (
	"fmt"
	"strings"

	"github.com/graphrules/engine/ast"
)

// Bound describes an outer variable already bound before this FOR is
// compiled — the triggering entity of a rule, or an enclosing loop
// variable.
type Bound struct {
	Var        string
	EntityType string
	ID         string
}

// Result is a compiled query ready to hand to a graph.Driver.
type Result struct {
	Query  string
	Params map[string]interface{}
}

// TranslationError reports a guard that cannot be expressed in the
// query language, or a label containing unsafe characters.
type TranslationError struct {
	Msg string
}

func (e *TranslationError) Error() string { return e.Msg }

type translator struct {
	params  map[string]interface{}
	counter int
}

func (t *translator) newParam(v interface{}) string {
	name := fmt.Sprintf("param_%d", t.counter)
	t.counter++
	t.params[name] = v
	return name
}

// Translate compiles a FOR clause over loop variable `forClause.Var` of
// type `forClause.EntityType`, with an optional guard, given the
// already-bound outer variables. Each call starts a fresh parameter
// counter at 0.
//
// pinID, when non-empty, constrains forClause.Var itself to the given
// id — used to compile a rule's outermost FOR against the entity that
// triggered the firing rather than the whole entity-type extent.
func Translate(forClause ast.ForStmt, outer []Bound, pinID string) (*Result, error) {
	if err := validateLabel(forClause.EntityType); err != nil {
		return nil, err
	}
	t := &translator{params: map[string]interface{}{}}

	var matches []string
	matches = append(matches, fmt.Sprintf("(%s:%s)", forClause.Var, forClause.EntityType))

	var whereClauses []string
	if pinID != "" {
		idParam := t.newParam(pinID)
		whereClauses = append(whereClauses, fmt.Sprintf("(%s.id == $%s)", forClause.Var, idParam))
	}
	for _, b := range outer {
		if err := validateLabel(b.EntityType); err != nil {
			return nil, err
		}
		matches = append(matches, fmt.Sprintf("(%s:%s)", b.Var, b.EntityType))
		idParam := t.newParam(b.ID)
		whereClauses = append(whereClauses, fmt.Sprintf("(%s.id == $%s)", b.Var, idParam))
	}

	if forClause.Guard != nil {
		g, err := t.translateExpr(forClause.Guard)
		if err != nil {
			return nil, err
		}
		whereClauses = append(whereClauses, "("+g+")")
	}

	returns := []string{forClause.Var}
	for _, b := range outer {
		returns = append(returns, b.Var)
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(strings.Join(matches, ", "))
	if len(whereClauses) > 0 {
		sb.WriteString(" WHERE (")
		sb.WriteString(strings.Join(whereClauses, " AND "))
		sb.WriteString(")")
	}
	sb.WriteString(" RETURN ")
	sb.WriteString(strings.Join(returns, ", "))

	return &Result{Query: sb.String(), Params: t.params}, nil
}

func validateLabel(s string) error {
	if s == "" {
		return &TranslationError{Msg: "empty label"}
	}
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !ok {
			return &TranslationError{Msg: fmt.Sprintf("label %q contains unsafe characters", s)}
		}
	}
	return nil
}

var compareText = map[ast.CompareOp]string{
	ast.Eq: "==", ast.Ne: "!=", ast.Lt: "<", ast.Gt: ">", ast.Le: "<=", ast.Ge: ">=",
}

func (t *translator) translateExpr(e ast.Expr) (string, error) {
	switch v := e.(type) {
	case ast.Path:
		return v.String(), nil

	case ast.Literal:
		p := t.newParam(v.Value)
		return "$" + p, nil

	case ast.Binary:
		left, err := t.translateExpr(v.Left)
		if err != nil {
			return "", err
		}
		right, err := t.translateExpr(v.Right)
		if err != nil {
			return "", err
		}
		op, ok := compareText[v.Op]
		if !ok {
			return "", &TranslationError{Msg: "unknown comparison operator"}
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil

	case ast.Membership:
		val, err := t.translateExpr(v.Value)
		if err != nil {
			return "", err
		}
		list := make([]interface{}, 0, len(v.List))
		for _, item := range v.List {
			lit, ok := item.(ast.Literal)
			if !ok {
				return "", &TranslationError{Msg: "IN list elements must be literals"}
			}
			list = append(list, lit.Value)
		}
		p := t.newParam(list)
		return fmt.Sprintf("(%s IN $%s)", val, p), nil

	case ast.NullCheck:
		val, err := t.translateExpr(v.Value)
		if err != nil {
			return "", err
		}
		if v.Negate {
			return fmt.Sprintf("(%s IS NOT NULL)", val), nil
		}
		return fmt.Sprintf("(%s IS NULL)", val), nil

	case ast.Logical:
		switch v.Op {
		case ast.Not:
			inner, err := t.translateExpr(v.Operands[0])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(NOT %s)", inner), nil
		case ast.And, ast.Or:
			op := "AND"
			if v.Op == ast.Or {
				op = "OR"
			}
			parts := make([]string, 0, len(v.Operands))
			for _, o := range v.Operands {
				s, err := t.translateExpr(o)
				if err != nil {
					return "", err
				}
				parts = append(parts, s)
			}
			return "(" + strings.Join(parts, " "+op+" ") + ")", nil
		}
		return "", &TranslationError{Msg: "unknown logical operator"}

	case ast.StringMatch:
		val, err := t.translateExpr(v.Value)
		if err != nil {
			return "", err
		}
		p := t.newParam(v.Pattern)
		return fmt.Sprintf("(%s MATCHES $%s)", val, p), nil

	case ast.Changed:
		return "", &TranslationError{Msg: "CHANGED cannot appear inside a FOR guard"}

	case ast.Call:
		return "", &TranslationError{Msg: fmt.Sprintf("function call %q cannot appear inside a FOR guard", v.Name)}

	case ast.Exists:
		if err := validateLabel(v.Relationship); err != nil {
			return "", err
		}
		inner := ""
		if v.Where != nil {
			s, err := t.translateExpr(v.Where)
			if err != nil {
				return "", err
			}
			inner = " WHERE " + s
		}
		return fmt.Sprintf("EXISTS((%s)-[:%s]->(%s)%s)", v.Head, v.Relationship, v.Tail, inner), nil
	}

	return "", &TranslationError{Msg: "unsupported expression in guard"}
}
