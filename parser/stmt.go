package parser

import "github.com/graphrules/engine/ast"

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.curIsKeyword("SET"):
		return p.parseSetStmt()
	case p.curIsKeyword("TRIGGER"):
		return p.parseTriggerStmt()
	case p.curIsKeyword("FOR"):
		f, err := p.parseForClause()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, p.errorf("expected 'SET', 'TRIGGER', or 'FOR', got " + describe(p.cur))
	}
}

func (p *Parser) parsePath() (ast.Path, error) {
	first, err := p.expectIdentAny()
	if err != nil {
		return ast.Path{}, err
	}
	parts := []string{first}
	for p.cur.kind == tDot {
		if err := p.advance(); err != nil {
			return ast.Path{}, err
		}
		next, err := p.expectIdentAny()
		if err != nil {
			return ast.Path{}, err
		}
		parts = append(parts, next)
	}
	return ast.Path{Parts: parts}, nil
}

func (p *Parser) parseSetStmt() (ast.Stmt, error) {
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	target, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tAssign, "'='"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tSemi, "';'"); err != nil {
		return nil, err
	}
	return ast.SetStmt{Target: target, Value: value}, nil
}

func (p *Parser) parseTriggerStmt() (ast.Stmt, error) {
	if err := p.expectKeyword("TRIGGER"); err != nil {
		return nil, err
	}
	entityType, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tDot, "'.'"); err != nil {
		return nil, err
	}
	actionName, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	varName, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	var args map[string]ast.Expr
	if p.curIsKeyword("WITH") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err = p.parseObject()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKind(tSemi, "';'"); err != nil {
		return nil, err
	}
	return ast.TriggerStmt{Var: varName, EntityType: entityType, ActionName: actionName, Args: args}, nil
}

func (p *Parser) parseObject() (map[string]ast.Expr, error) {
	if _, err := p.expectKind(tLBrace, "'{'"); err != nil {
		return nil, err
	}
	obj := map[string]ast.Expr{}
	for p.cur.kind != tRBrace {
		key, err := p.expectIdentAny()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj[key] = val
		if p.cur.kind == tComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expectKind(tRBrace, "'}'"); err != nil {
		return nil, err
	}
	return obj, nil
}
