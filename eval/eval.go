package eval

import (
	"github.com/graphrules/engine/ast"
)

// Eval walks an expression against a context and returns its value.
// Unresolved paths yield nil rather than an error. Hard failures are
// unknown functions, bad builtin arguments, invalid MATCHES patterns,
// malformed EXISTS patterns, and errors from the graph driver.
func Eval(e ast.Expr, ctx *Context) (interface{}, error) {
	switch v := e.(type) {
	case ast.Literal:
		return v.Value, nil

	case ast.Path:
		return evalPath(v, ctx), nil

	case ast.Binary:
		return evalBinary(v, ctx)

	case ast.Membership:
		return evalMembership(v, ctx)

	case ast.NullCheck:
		val, err := Eval(v.Value, ctx)
		if err != nil {
			return nil, err
		}
		if v.Negate {
			return val != nil, nil
		}
		return val == nil, nil

	case ast.Logical:
		return evalLogical(v, ctx)

	case ast.Call:
		return evalCall(v, ctx)

	case ast.Exists:
		return evalExists(v, ctx)

	case ast.StringMatch:
		return evalStringMatch(v, ctx)

	case ast.Changed:
		return evalChanged(v, ctx), nil
	}
	return nil, &UnknownVariable{Name: "<unrecognized expression>"}
}

// EvalBool evaluates an expression and coerces the result to a
// boolean per the two-valued collapse rule: nil (and any non-bool
// value produced by a malformed expression) is false.
func EvalBool(e ast.Expr, ctx *Context) (bool, error) {
	v, err := Eval(e, ctx)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func evalPath(p ast.Path, ctx *Context) interface{} {
	head := p.Head()
	if len(p.Parts) == 1 {
		if head == "this" {
			return nil
		}
		if v, ok := ctx.Params[head]; ok {
			return v
		}
		return nil
	}
	entity := ctx.resolve(head)
	if entity == nil {
		return nil
	}
	cur := entity.Get(p.Parts[1])
	for _, part := range p.Parts[2:] {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func evalBinary(b ast.Binary, ctx *Context) (interface{}, error) {
	left, err := Eval(b.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(b.Right, ctx)
	if err != nil {
		return nil, err
	}
	return compare(b.Op, left, right), nil
}

func compare(op ast.CompareOp, left, right interface{}) bool {
	if left == nil || right == nil {
		switch op {
		case ast.Eq:
			return left == nil && right == nil
		case ast.Ne:
			return !(left == nil && right == nil)
		default:
			return false
		}
	}

	if lf, lok := toNumber(left); lok {
		if rf, rok := toNumber(right); rok {
			switch op {
			case ast.Eq:
				return lf == rf
			case ast.Ne:
				return lf != rf
			case ast.Lt:
				return lf < rf
			case ast.Gt:
				return lf > rf
			case ast.Le:
				return lf <= rf
			case ast.Ge:
				return lf >= rf
			}
		}
	}

	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch op {
			case ast.Eq:
				return ls == rs
			case ast.Ne:
				return ls != rs
			case ast.Lt:
				return ls < rs
			case ast.Gt:
				return ls > rs
			case ast.Le:
				return ls <= rs
			case ast.Ge:
				return ls >= rs
			}
		}
	}

	if lb, lok := left.(bool); lok {
		if rb, rok := right.(bool); rok {
			switch op {
			case ast.Eq:
				return lb == rb
			case ast.Ne:
				return lb != rb
			}
		}
	}

	// Mixed types: equality is always decidable (false unless
	// identical), ordering operators are not.
	switch op {
	case ast.Eq:
		return false
	case ast.Ne:
		return true
	default:
		return false
	}
}

func toNumber(v interface{}) (float64, bool) {
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

func evalMembership(m ast.Membership, ctx *Context) (interface{}, error) {
	val, err := Eval(m.Value, ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range m.List {
		iv, err := Eval(item, ctx)
		if err != nil {
			return nil, err
		}
		if compare(ast.Eq, val, iv) {
			return true, nil
		}
	}
	return false, nil
}

func evalLogical(l ast.Logical, ctx *Context) (interface{}, error) {
	switch l.Op {
	case ast.Not:
		v, err := EvalBool(l.Operands[0], ctx)
		if err != nil {
			return nil, err
		}
		return !v, nil
	case ast.And:
		for _, op := range l.Operands {
			v, err := EvalBool(op, ctx)
			if err != nil {
				return nil, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case ast.Or:
		for _, op := range l.Operands {
			v, err := EvalBool(op, ctx)
			if err != nil {
				return nil, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func evalCall(c ast.Call, ctx *Context) (interface{}, error) {
	fn, ok := Builtins[c.Name]
	if !ok {
		return nil, &UnknownFunction{Name: c.Name}
	}
	args := make([]interface{}, len(c.Args))
	for i, a := range c.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(ctx, args)
}

func evalExists(e ast.Exists, ctx *Context) (interface{}, error) {
	head := ctx.resolve(e.Head)
	if head == nil {
		return false, &UnknownVariable{Name: e.Head}
	}
	if ctx.Driver == nil {
		return false, &UnknownVariable{Name: "<no graph driver bound to this context>"}
	}
	tails, err := ctx.Driver.Related(ctx.GoContext, head.Type, head.ID, e.Relationship)
	if err != nil {
		return false, err
	}
	if e.Where == nil {
		return len(tails) > 0, nil
	}
	for _, tail := range tails {
		sub := ctx.WithVar(e.Tail, tail)
		ok, err := EvalBool(e.Where, sub)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func evalStringMatch(m ast.StringMatch, ctx *Context) (interface{}, error) {
	val, err := Eval(m.Value, ctx)
	if err != nil {
		return nil, err
	}
	s, ok := val.(string)
	if !ok {
		return false, nil
	}
	return matchesPattern(s, m.Pattern)
}

// evalChanged implements the source's narrower behavior rather than an
// idealized one: the old/new pair carried by the context reflects only
// the property that triggered the enclosing firing. A CHANGED
// predicate over any other property is false, never an error — see
// DESIGN.md's notes on this open question.
func evalChanged(c ast.Changed, ctx *Context) bool {
	if !ctx.HasChange {
		return false
	}
	if ctx.Property != "" && c.Property != ctx.Property {
		return false
	}
	if c.From == nil && c.To == nil {
		return !compare(ast.Eq, ctx.OldValue, ctx.NewValue)
	}
	fromOk := true
	toOk := true
	if c.From != nil {
		fv, err := Eval(c.From, ctx)
		if err != nil {
			return false
		}
		fromOk = compare(ast.Eq, ctx.OldValue, fv)
	}
	if c.To != nil {
		tv, err := Eval(c.To, ctx)
		if err != nil {
			return false
		}
		toOk = compare(ast.Eq, ctx.NewValue, tv)
	}
	return fromOk && toOk
}
