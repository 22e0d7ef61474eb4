// Package parser turns rule DSL text into the ast package's
// tagged-variant tree. The grammar is hand-rolled recursive descent
// with one token of lookahead; see DESIGN.md (C2) for why no
// parser-combinator or lexer-generator library from the reference
// corpus was used here.
package parser

import (
	"os"
)

// Parser consumes a token stream and builds AST nodes. It never emits
// a partial result: any error aborts with nothing returned.
type Parser struct {
	lx   *lexer
	cur  token
	peek token
}

// New creates a Parser over DSL source text.
func New(src string) (*Parser, error) {
	p := &Parser{lx: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.peek = t
	return nil
}

func (p *Parser) curIsKeyword(kw string) bool {
	return p.cur.kind == tIdent && p.cur.text == kw
}

func (p *Parser) errorf(msg string) *SyntaxError {
	return &SyntaxError{Line: p.cur.line, Col: p.cur.col, Msg: msg}
}

func (p *Parser) expectKind(k tokenKind, what string) (token, error) {
	if p.cur.kind != k {
		return token{}, p.errorf("expected " + what + ", got " + describe(p.cur))
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.curIsKeyword(kw) {
		return p.errorf("expected '" + kw + "', got " + describe(p.cur))
	}
	return p.advance()
}

func (p *Parser) expectIdentAny() (string, error) {
	t, err := p.expectKind(tIdent, "identifier")
	if err != nil {
		return "", err
	}
	return t.text, nil
}

func describe(t token) string {
	if t.kind == tEOF {
		return "end of input"
	}
	if t.text != "" {
		return "'" + t.text + "'"
	}
	return "token"
}

// Parse parses DSL text into a list of *ast.ActionDef / *ast.RuleDef.
func Parse(text string) ([]interface{}, error) {
	p, err := New(text)
	if err != nil {
		return nil, err
	}
	return p.ParseUnit()
}

// ParseFile reads and parses a DSL file.
func ParseFile(path string) ([]interface{}, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(bs))
}

// ParseUnit parses the whole token stream into top-level declarations
// and rejects duplicate ACTION or RULE names with a *SemanticError.
func (p *Parser) ParseUnit() ([]interface{}, error) {
	var items []interface{}
	actionNames := make(map[string]bool)
	ruleNames := make(map[string]bool)

	for p.cur.kind != tEOF {
		switch {
		case p.curIsKeyword("ACTION"):
			a, err := p.parseActionDef()
			if err != nil {
				return nil, err
			}
			key := a.EntityType + "." + a.Name
			if actionNames[key] {
				return nil, &SemanticError{Msg: "duplicate action '" + key + "'"}
			}
			actionNames[key] = true
			items = append(items, a)

		case p.curIsKeyword("RULE"):
			r, err := p.parseRuleDef()
			if err != nil {
				return nil, err
			}
			if ruleNames[r.Name] {
				return nil, &SemanticError{Msg: "duplicate rule '" + r.Name + "'"}
			}
			ruleNames[r.Name] = true
			items = append(items, r)

		default:
			return nil, p.errorf("expected 'ACTION' or 'RULE', got " + describe(p.cur))
		}
	}

	return items, nil
}
