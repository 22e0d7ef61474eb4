package parser

import (
	"strings"

	"github.com/graphrules/engine/ast"
)

// parseExpr := disjunction over conjunction over (NOT? comparison).
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.Logical{Op: ast.Or, Operands: []ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.Logical{Op: ast.And, Operands: []ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.curIsKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.Logical{Op: ast.Not, Operands: []ast.Expr{operand}}, nil
	}
	return p.parseComparison()
}

var compareOps = map[tokenKind]ast.CompareOp{
	tEq: ast.Eq, tNe: ast.Ne, tLt: ast.Lt, tGt: ast.Gt, tLe: ast.Le, tGe: ast.Ge,
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	if p.curIsKeyword("EXISTS") {
		return p.parseExists()
	}
	if p.cur.kind == tLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	}

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	if op, ok := compareOps[p.cur.kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: op, Left: left, Right: right}, nil
	}

	switch {
	case p.curIsKeyword("IN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tLBracket, "'['"); err != nil {
			return nil, err
		}
		list, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tRBracket, "']'"); err != nil {
			return nil, err
		}
		return ast.Membership{Value: left, List: list}, nil

	case p.curIsKeyword("IS"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.curIsKeyword("NOT") {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return ast.NullCheck{Value: left, Negate: negate}, nil

	case p.curIsKeyword("MATCHES"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		strTok, err := p.expectKind(tString, "string")
		if err != nil {
			return nil, err
		}
		return ast.StringMatch{Value: left, Pattern: strTok.text}, nil

	case p.curIsKeyword("CHANGED"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		prop, ok := pathProperty(left)
		if !ok {
			return nil, p.errorf("CHANGED requires a property path on its left side")
		}
		var from, to ast.Expr
		if p.curIsKeyword("FROM") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			from, err = p.parseValue()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("TO"); err != nil {
				return nil, err
			}
			to, err = p.parseValue()
			if err != nil {
				return nil, err
			}
		}
		return ast.Changed{Property: prop, From: from, To: to}, nil
	}

	return left, nil
}

// pathProperty returns the last segment of a Path expression.
func pathProperty(e ast.Expr) (string, bool) {
	p, ok := e.(ast.Path)
	if !ok || len(p.Parts) == 0 {
		return "", false
	}
	return p.Parts[len(p.Parts)-1], true
}

func (p *Parser) parseExists() (ast.Expr, error) {
	if err := p.expectKeyword("EXISTS"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tLParen, "'('"); err != nil {
		return nil, err
	}
	head, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tMinus, "'-'"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tLBracket, "'['"); err != nil {
		return nil, err
	}
	rel, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tRBracket, "']'"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tMinus, "'-'"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tGt, "'>'"); err != nil {
		return nil, err
	}
	tail, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	var where ast.Expr
	if p.curIsKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKind(tRParen, "')'"); err != nil {
		return nil, err
	}
	return ast.Exists{Head: head, Relationship: rel, Tail: tail, Where: where}, nil
}

// parseTerm handles literals, function calls, and dotted paths.
func (p *Parser) parseTerm() (ast.Expr, error) {
	switch p.cur.kind {
	case tString:
		t := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Literal{Value: t.text}, nil

	case tNumber:
		t := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Literal{Value: t.num}, nil

	case tIdent:
		switch strings.ToUpper(p.cur.text) {
		case "TRUE":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return ast.Literal{Value: true}, nil
		case "FALSE":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return ast.Literal{Value: false}, nil
		case "NULL":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return ast.Literal{Value: nil}, nil
		}

		if p.peek.kind == tLParen {
			return p.parseCall()
		}
		return p.parsePath()
	}

	return nil, p.errorf("expected a value, got " + describe(p.cur))
}

func (p *Parser) parseCall() (ast.Expr, error) {
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tLParen, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.cur.kind != tRParen {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.cur.kind == tComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expectKind(tRParen, "')'"); err != nil {
		return nil, err
	}
	return ast.Call{Name: name, Args: args}, nil
}

// parseValue parses a bare literal: string, number, true, false, or null.
// Used where the grammar restricts a position to a literal (IN lists,
// CHANGED FROM/TO).
func (p *Parser) parseValue() (ast.Expr, error) {
	switch p.cur.kind {
	case tString, tNumber:
		return p.parseTerm()
	case tIdent:
		switch strings.ToUpper(p.cur.text) {
		case "TRUE", "FALSE", "NULL":
			return p.parseTerm()
		}
	}
	return nil, p.errorf("expected a literal value, got " + describe(p.cur))
}

func (p *Parser) parseValueList() ([]ast.Expr, error) {
	var list []ast.Expr
	for p.cur.kind != tRBracket {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		if p.cur.kind == tComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return list, nil
}
