package parser

import "github.com/graphrules/engine/ast"

func (p *Parser) parseActionDef() (*ast.ActionDef, error) {
	doc := p.cur.leading
	if err := p.expectKeyword("ACTION"); err != nil {
		return nil, err
	}
	entityType, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tDot, "'.'"); err != nil {
		return nil, err
	}
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}

	var params []ast.Parameter
	if p.cur.kind == tLParen {
		params, err = p.parseParamList()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expectKind(tLBrace, "'{'"); err != nil {
		return nil, err
	}

	var preconditions []ast.Precondition
	for p.curIsKeyword("PRECONDITION") {
		pre, err := p.parsePrecondition()
		if err != nil {
			return nil, err
		}
		preconditions = append(preconditions, pre)
	}
	if len(preconditions) == 0 {
		return nil, p.errorf("ACTION requires at least one PRECONDITION")
	}

	var effect []ast.Stmt
	if p.curIsKeyword("EFFECT") {
		effect, err = p.parseEffectBlock()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expectKind(tRBrace, "'}'"); err != nil {
		return nil, err
	}

	return &ast.ActionDef{
		Doc:           doc,
		EntityType:    entityType,
		Name:          name,
		Parameters:    params,
		Preconditions: preconditions,
		Effect:        effect,
	}, nil
}

func (p *Parser) parseParamList() ([]ast.Parameter, error) {
	if _, err := p.expectKind(tLParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Parameter
	for p.cur.kind != tRParen {
		name, err := p.expectIdentAny()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tColon, "':'"); err != nil {
			return nil, err
		}
		typ, err := p.expectIdentAny()
		if err != nil {
			return nil, err
		}
		optional := false
		if p.cur.kind == tQuestion {
			optional = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		params = append(params, ast.Parameter{Name: name, Type: typ, Optional: optional})
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
	return params, nil
}

func (p *Parser) parsePrecondition() (ast.Precondition, error) {
	if err := p.expectKeyword("PRECONDITION"); err != nil {
		return ast.Precondition{}, err
	}
	label := ""
	if p.cur.kind != tColon {
		var err error
		label, err = p.expectIdentAny()
		if err != nil {
			return ast.Precondition{}, err
		}
	}
	if _, err := p.expectKind(tColon, "':'"); err != nil {
		return ast.Precondition{}, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Precondition{}, err
	}
	if err := p.expectKeyword("ON_FAILURE"); err != nil {
		return ast.Precondition{}, err
	}
	if _, err := p.expectKind(tColon, "':'"); err != nil {
		return ast.Precondition{}, err
	}
	msgTok, err := p.expectKind(tString, "string")
	if err != nil {
		return ast.Precondition{}, err
	}
	return ast.Precondition{Label: label, Condition: cond, OnFailure: msgTok.text}, nil
}

func (p *Parser) parseEffectBlock() ([]ast.Stmt, error) {
	if err := p.expectKeyword("EFFECT"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.cur.kind != tRBrace {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expectKind(tRBrace, "'}'"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseRuleDef() (*ast.RuleDef, error) {
	doc := p.cur.leading
	if err := p.expectKeyword("RULE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	priority := 0
	if p.curIsKeyword("PRIORITY") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		numTok, err := p.expectKind(tNumber, "number")
		if err != nil {
			return nil, err
		}
		priority = int(numTok.num)
	}
	if _, err := p.expectKind(tLBrace, "'{'"); err != nil {
		return nil, err
	}
	trigger, err := p.parseTrigger()
	if err != nil {
		return nil, err
	}
	body, err := p.parseForClause()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.RuleDef{Doc: doc, Name: name, Priority: priority, Trigger: trigger, Body: body}, nil
}

var triggerTypes = map[string]ast.TriggerType{
	"UPDATE": ast.TriggerUpdate,
	"CREATE": ast.TriggerCreate,
	"DELETE": ast.TriggerDelete,
	"LINK":   ast.TriggerLink,
	"SCAN":   ast.TriggerScan,
}

func (p *Parser) parseTrigger() (ast.Trigger, error) {
	if err := p.expectKeyword("ON"); err != nil {
		return ast.Trigger{}, err
	}
	typTok, err := p.expectIdentAny()
	if err != nil {
		return ast.Trigger{}, err
	}
	typ, ok := triggerTypes[typTok]
	if !ok {
		return ast.Trigger{}, p.errorf("unknown trigger type '" + typTok + "'")
	}
	if _, err := p.expectKind(tLParen, "'('"); err != nil {
		return ast.Trigger{}, err
	}
	entityType, err := p.expectIdentAny()
	if err != nil {
		return ast.Trigger{}, err
	}
	property := ""
	if p.cur.kind == tDot {
		if err := p.advance(); err != nil {
			return ast.Trigger{}, err
		}
		property, err = p.expectIdentAny()
		if err != nil {
			return ast.Trigger{}, err
		}
	}
	if _, err := p.expectKind(tRParen, "')'"); err != nil {
		return ast.Trigger{}, err
	}
	if typ == ast.TriggerUpdate && property == "" {
		return ast.Trigger{}, p.errorf("ON UPDATE trigger requires a property")
	}
	if typ != ast.TriggerUpdate && property != "" {
		return ast.Trigger{}, p.errorf("trigger type " + typTok + " does not take a property")
	}
	return ast.Trigger{Type: typ, EntityType: entityType, Property: property}, nil
}

func (p *Parser) parseForClause() (ast.ForStmt, error) {
	if err := p.expectKeyword("FOR"); err != nil {
		return ast.ForStmt{}, err
	}
	if _, err := p.expectKind(tLParen, "'('"); err != nil {
		return ast.ForStmt{}, err
	}
	varName, err := p.expectIdentAny()
	if err != nil {
		return ast.ForStmt{}, err
	}
	if _, err := p.expectKind(tColon, "':'"); err != nil {
		return ast.ForStmt{}, err
	}
	entityType, err := p.expectIdentAny()
	if err != nil {
		return ast.ForStmt{}, err
	}
	var guard ast.Expr
	if p.curIsKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return ast.ForStmt{}, err
		}
		guard, err = p.parseExpr()
		if err != nil {
			return ast.ForStmt{}, err
		}
	}
	if _, err := p.expectKind(tRParen, "')'"); err != nil {
		return ast.ForStmt{}, err
	}
	if _, err := p.expectKind(tLBrace, "'{'"); err != nil {
		return ast.ForStmt{}, err
	}
	var body []ast.Stmt
	for p.cur.kind != tRBrace {
		s, err := p.parseStmt()
		if err != nil {
			return ast.ForStmt{}, err
		}
		body = append(body, s)
	}
	if _, err := p.expectKind(tRBrace, "'}'"); err != nil {
		return ast.ForStmt{}, err
	}
	return ast.ForStmt{Var: varName, EntityType: entityType, Guard: guard, Body: body}, nil
}
