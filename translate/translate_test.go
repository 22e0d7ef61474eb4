package translate

import (
	"strings"
	"testing"

	"github.com/graphrules/engine/ast"
)

// TestParameterizationSafety is spec.md §8 scenario S6: no literal
// from the source expression may appear in the emitted query text;
// every literal must appear in the parameter map instead.
func TestParameterizationSafety(t *testing.T) {
	evil := `o'; DROP TABLE --`
	forClause := ast.ForStmt{
		Var:        "n",
		EntityType: "T",
		Guard: ast.Binary{
			Op:   ast.Eq,
			Left: ast.Path{Parts: []string{"n", "name"}},
			Right: ast.Literal{
				Value: evil,
			},
		},
	}

	result, err := Translate(forClause, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(result.Query, evil) {
		t.Fatalf("literal leaked into query text: %s", result.Query)
	}
	if !strings.Contains(result.Query, "n.name == $param_0") {
		t.Fatalf("expected parameterized comparison, got %s", result.Query)
	}
	if got := result.Params["param_0"]; got != evil {
		t.Fatalf("expected param_0 = %q, got %v", evil, got)
	}
}

func TestTranslateFreshCounterPerCall(t *testing.T) {
	forClause := ast.ForStmt{
		Var:        "n",
		EntityType: "T",
		Guard: ast.Binary{
			Op:    ast.Eq,
			Left:  ast.Path{Parts: []string{"n", "x"}},
			Right: ast.Literal{Value: "a"},
		},
	}
	r1, err := Translate(forClause, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := Translate(forClause, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.Params["param_0"] != "a" || r2.Params["param_0"] != "a" {
		t.Fatalf("expected independent param_0 in both calls, got %v and %v", r1.Params, r2.Params)
	}
}

func TestTranslateOuterBoundPinsIdentity(t *testing.T) {
	forClause := ast.ForStmt{
		Var:        "po",
		EntityType: "PurchaseOrder",
		Guard: ast.Exists{
			Head:         "po",
			Relationship: "orderedFrom",
			Tail:         "s",
		},
	}
	outer := []Bound{{Var: "s", EntityType: "Supplier", ID: "BP_10001"}}
	result, err := Translate(forClause, outer, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Query, "s.id == $param_0") {
		t.Fatalf("expected outer bound identity constraint, got %s", result.Query)
	}
	if result.Params["param_0"] != "BP_10001" {
		t.Fatalf("expected outer id bound as a parameter, got %v", result.Params)
	}
}

func TestTranslateRejectsUnsafeLabel(t *testing.T) {
	forClause := ast.ForStmt{Var: "n", EntityType: "Bad; DROP"}
	if _, err := Translate(forClause, nil, ""); err == nil {
		t.Fatal("expected translation error for unsafe label")
	}
}

func TestTranslateRejectsChangedInGuard(t *testing.T) {
	forClause := ast.ForStmt{
		Var:        "n",
		EntityType: "T",
		Guard:      ast.Changed{Property: "status"},
	}
	if _, err := Translate(forClause, nil, ""); err == nil {
		t.Fatal("expected translation error for CHANGED inside a FOR guard")
	}
}
