package eval

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dlclark/regexp2"
)

// BuiltinFunc is the shape every entry in the built-in function table
// implements. Errors other than *BadArgument are reported verbatim to
// the caller; unknown names never reach here (Eval checks first).
type BuiltinFunc func(ctx *Context, args []interface{}) (interface{}, error)

// Builtins is the fixed table of functions callable from expressions.
// It is intentionally closed: the DSL has no mechanism for registering
// new functions at runtime.
var Builtins = map[string]BuiltinFunc{
	"NOW":    builtinNow,
	"DATE":   builtinDate,
	"DAYS":   builtinDays,
	"HOURS":  builtinHours,
	"CONCAT": builtinConcat,
	"UPPER":  builtinUpper,
	"LOWER":  builtinLower,
	"LENGTH": builtinLength,
	"ABS":    builtinAbs,
	"ROUND":  builtinRound,
	"MIN":    builtinMin,
	"MAX":    builtinMax,
}

func builtinNow(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 0 {
		return nil, &BadArgument{Func: "NOW", Msg: "takes no arguments"}
	}
	// A single "now" is frozen per firing in ctx.Now so that repeated
	// calls within one effect block agree (see SPEC_FULL.md's notes).
	if ctx.Now != nil {
		return ctx.Now, nil
	}
	return time.Now().UTC(), nil
}

func builtinDate(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "DATE", Msg: "takes exactly one argument"}
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, &BadArgument{Func: "DATE", Msg: "argument must be a string"}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil, &BadArgument{Func: "DATE", Msg: fmt.Sprintf("cannot parse %q: %v", s, err)}
	}
	return t, nil
}

func durationArg(name string, args []interface{}) (float64, error) {
	if len(args) != 1 {
		return 0, &BadArgument{Func: name, Msg: "takes exactly one argument"}
	}
	n, ok := toNumber(args[0])
	if !ok {
		return 0, &BadArgument{Func: name, Msg: "argument must be a number"}
	}
	return n, nil
}

func builtinDays(ctx *Context, args []interface{}) (interface{}, error) {
	n, err := durationArg("DAYS", args)
	if err != nil {
		return nil, err
	}
	return time.Duration(n * float64(24*time.Hour)), nil
}

func builtinHours(ctx *Context, args []interface{}) (interface{}, error) {
	n, err := durationArg("HOURS", args)
	if err != nil {
		return nil, err
	}
	return time.Duration(n * float64(time.Hour)), nil
}

func builtinConcat(ctx *Context, args []interface{}) (interface{}, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(stringify(a))
	}
	return sb.String(), nil
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", n), "0"), ".")
	default:
		return fmt.Sprintf("%v", n)
	}
}

func builtinUpper(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "UPPER", Msg: "takes exactly one argument"}
	}
	if args[0] == nil {
		return nil, nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, &BadArgument{Func: "UPPER", Msg: "argument must be a string"}
	}
	return strings.ToUpper(s), nil
}

func builtinLower(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "LOWER", Msg: "takes exactly one argument"}
	}
	if args[0] == nil {
		return nil, nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, &BadArgument{Func: "LOWER", Msg: "argument must be a string"}
	}
	return strings.ToLower(s), nil
}

func builtinLength(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "LENGTH", Msg: "takes exactly one argument"}
	}
	if args[0] == nil {
		return float64(0), nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, &BadArgument{Func: "LENGTH", Msg: "argument must be a string"}
	}
	return float64(len(s)), nil
}

func builtinAbs(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "ABS", Msg: "takes exactly one argument"}
	}
	n, ok := toNumber(args[0])
	if !ok {
		return nil, &BadArgument{Func: "ABS", Msg: "argument must be a number"}
	}
	return math.Abs(n), nil
}

func builtinRound(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgument{Func: "ROUND", Msg: "takes exactly one argument"}
	}
	n, ok := toNumber(args[0])
	if !ok {
		return nil, &BadArgument{Func: "ROUND", Msg: "argument must be a number"}
	}
	return math.Round(n), nil
}

func builtinMin(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, &BadArgument{Func: "MIN", Msg: "takes exactly two arguments"}
	}
	a, aok := toNumber(args[0])
	b, bok := toNumber(args[1])
	if !aok || !bok {
		return nil, &BadArgument{Func: "MIN", Msg: "arguments must be numbers"}
	}
	return math.Min(a, b), nil
}

func builtinMax(ctx *Context, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, &BadArgument{Func: "MAX", Msg: "takes exactly two arguments"}
	}
	a, aok := toNumber(args[0])
	b, bok := toNumber(args[1])
	if !aok || !bok {
		return nil, &BadArgument{Func: "MAX", Msg: "arguments must be numbers"}
	}
	return math.Max(a, b), nil
}

// matchesPattern implements the MATCHES operator using regexp2, which
// (unlike the standard library's RE2 engine) supports the backreference
// and lookaround constructs the DSL's pattern literals are documented
// to allow.
func matchesPattern(s, pattern string) (bool, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false, &BadArgument{Func: "MATCHES", Msg: err.Error()}
	}
	return re.MatchString(s)
}
