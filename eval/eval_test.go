package eval

import (
	"context"
	"testing"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/graph"
)

func entity(id, typ string, props map[string]interface{}) *ast.Entity {
	return &ast.Entity{ID: id, Type: typ, Properties: props}
}

func TestEvalPathThisAndVar(t *testing.T) {
	ctx := &Context{
		GoContext: context.Background(),
		This:      entity("S1", "Supplier", map[string]interface{}{"status": "Active"}),
		Vars:      map[string]*ast.Entity{"po": entity("PO1", "PurchaseOrder", map[string]interface{}{"status": "Open"})},
	}
	v, err := Eval(ast.Path{Parts: []string{"this", "status"}}, ctx)
	if err != nil || v != "Active" {
		t.Fatalf("got %v, %v", v, err)
	}
	v, err = Eval(ast.Path{Parts: []string{"po", "status"}}, ctx)
	if err != nil || v != "Open" {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestEvalPathUnknownVarYieldsNull(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", nil)}
	v, err := Eval(ast.Path{Parts: []string{"nope", "x"}}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil, got %v", v)
	}
}

func TestNullComparisonSemantics(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", map[string]interface{}{})}
	ok, err := EvalBool(ast.Binary{Op: ast.Eq, Left: ast.Literal{Value: nil}, Right: ast.Literal{Value: nil}}, ctx)
	if err != nil || !ok {
		t.Fatalf("null == null should be true, got %v, %v", ok, err)
	}
	ok, err = EvalBool(ast.Binary{Op: ast.Lt, Left: ast.Literal{Value: nil}, Right: ast.Literal{Value: 3.0}}, ctx)
	if err != nil || ok {
		t.Fatalf("null < 3 should be false, got %v, %v", ok, err)
	}
}

func TestMixedTypeOrderingIsFalse(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", nil)}
	ok, err := EvalBool(ast.Binary{Op: ast.Lt, Left: ast.Literal{Value: "3"}, Right: ast.Literal{Value: 3.0}}, ctx)
	if err != nil || ok {
		t.Fatalf("mixed-type ordering should be false, got %v, %v", ok, err)
	}
}

func TestShortCircuitAnd(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", nil)}
	v, err := Eval(ast.Logical{Op: ast.And, Operands: []ast.Expr{
		ast.Literal{Value: false},
		ast.Call{Name: "DOES_NOT_EXIST"},
	}}, ctx)
	if err != nil {
		t.Fatalf("AND should short-circuit before reaching the bad call: %v", err)
	}
	if v != false {
		t.Fatalf("expected false, got %v", v)
	}
}

func TestUnknownFunction(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", nil)}
	_, err := Eval(ast.Call{Name: "NOPE"}, ctx)
	if _, ok := err.(*UnknownFunction); !ok {
		t.Fatalf("expected *UnknownFunction, got %T: %v", err, err)
	}
}

func TestChangedNoClauses(t *testing.T) {
	ctx := &Context{
		This:      entity("S1", "Supplier", map[string]interface{}{"status": "Suspended"}),
		Property:  "status",
		HasChange: true,
		OldValue:  "Active",
		NewValue:  "Suspended",
	}
	ok, err := EvalBool(ast.Changed{Property: "status"}, ctx)
	if err != nil || !ok {
		t.Fatalf("expected changed=true, got %v, %v", ok, err)
	}
}

func TestChangedFromTo(t *testing.T) {
	ctx := &Context{Property: "status", HasChange: true, OldValue: "Active", NewValue: "Suspended"}
	ok, err := EvalBool(ast.Changed{
		Property: "status",
		From:     ast.Literal{Value: "Active"},
		To:       ast.Literal{Value: "Suspended"},
	}, ctx)
	if err != nil || !ok {
		t.Fatalf("expected true, got %v, %v", ok, err)
	}
}

func TestChangedWithoutTriggeringPropertyIsFalse(t *testing.T) {
	ctx := &Context{HasChange: false}
	ok, err := EvalBool(ast.Changed{Property: "status"}, ctx)
	if err != nil || ok {
		t.Fatalf("expected false when no change is in scope, got %v, %v", ok, err)
	}
}

// A CHANGED predicate naming a property other than the one that
// triggered the enclosing firing is ill-defined per spec and must
// evaluate false rather than comparing against an unrelated old/new
// pair.
func TestChangedForDifferentPropertyIsFalse(t *testing.T) {
	ctx := &Context{Property: "status", HasChange: true, OldValue: "Active", NewValue: "Suspended"}
	ok, err := EvalBool(ast.Changed{Property: "amount"}, ctx)
	if err != nil || ok {
		t.Fatalf("expected false for a non-triggering property, got %v, %v", ok, err)
	}
}

func TestBuiltinUpperLowerLength(t *testing.T) {
	ctx := &Context{}
	v, _ := Eval(ast.Call{Name: "UPPER", Args: []ast.Expr{ast.Literal{Value: "abc"}}}, ctx)
	if v != "ABC" {
		t.Fatalf("expected ABC, got %v", v)
	}
	v, _ = Eval(ast.Call{Name: "LENGTH", Args: []ast.Expr{ast.Literal{Value: "abcd"}}}, ctx)
	if v != float64(4) {
		t.Fatalf("expected 4, got %v", v)
	}
	v, _ = Eval(ast.Call{Name: "LENGTH", Args: []ast.Expr{ast.Literal{Value: nil}}}, ctx)
	if v != float64(0) {
		t.Fatalf("expected 0 for nil, got %v", v)
	}
}

func TestMatchesOperator(t *testing.T) {
	ctx := &Context{This: entity("S1", "Supplier", map[string]interface{}{"name": "Acme Corp"})}
	ok, err := EvalBool(ast.StringMatch{
		Value:   ast.Path{Parts: []string{"this", "name"}},
		Pattern: "^Acme",
	}, ctx)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v, %v", ok, err)
	}
}

type fakeDriver struct {
	related map[string][]*ast.Entity
}

func (f *fakeDriver) Run(ctx context.Context, query string, params map[string]interface{}) ([]graph.Row, error) {
	return nil, nil
}

func (f *fakeDriver) Write(ctx context.Context, entityType, id, property string, value interface{}) (interface{}, error) {
	return nil, nil
}

func (f *fakeDriver) Get(ctx context.Context, entityType, id string) (*ast.Entity, error) {
	return nil, nil
}

func (f *fakeDriver) Related(ctx context.Context, entityType, id, relType string) ([]*ast.Entity, error) {
	return f.related[entityType+"/"+id+"/"+relType], nil
}

func TestExistsEvaluatesAgainstDriver(t *testing.T) {
	head := entity("PO1", "PurchaseOrder", nil)
	tail := entity("S1", "Supplier", map[string]interface{}{"country": "US"})
	driver := &fakeDriver{related: map[string][]*ast.Entity{
		"PurchaseOrder/PO1/orderedFrom": {tail},
	}}
	ctx := &Context{
		GoContext: context.Background(),
		Vars:      map[string]*ast.Entity{"po": head},
		Driver:    driver,
	}
	ok, err := EvalBool(ast.Exists{
		Head: "po", Relationship: "orderedFrom", Tail: "s",
		Where: ast.Binary{Op: ast.Eq, Left: ast.Path{Parts: []string{"s", "country"}}, Right: ast.Literal{Value: "US"}},
	}, ctx)
	if err != nil || !ok {
		t.Fatalf("expected exists=true, got %v, %v", ok, err)
	}
}
