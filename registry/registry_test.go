package registry

import (
	"testing"

	"github.com/graphrules/engine/ast"
)

func TestActionRegistryDuplicateRejected(t *testing.T) {
	r := NewActionRegistry()
	a := &ast.ActionDef{EntityType: "Supplier", Name: "approve"}
	if err := r.Register(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Register(a)
	if _, ok := err.(*DuplicateAction); !ok {
		t.Fatalf("expected *DuplicateAction, got %T: %v", err, err)
	}
}

func TestActionRegistryLookup(t *testing.T) {
	r := NewActionRegistry()
	a := &ast.ActionDef{EntityType: "Supplier", Name: "approve"}
	_ = r.Register(a)
	if got := r.Lookup("Supplier", "approve"); got != a {
		t.Fatalf("expected to find registered action, got %v", got)
	}
	if got := r.Lookup("Supplier", "missing"); got != nil {
		t.Fatalf("expected nil for unregistered action, got %v", got)
	}
}

func TestRuleRegistryPriorityOrdering(t *testing.T) {
	r := NewRuleRegistry()
	trigger := ast.Trigger{Type: ast.TriggerUpdate, EntityType: "Supplier", Property: "status"}
	lo := &ast.RuleDef{Name: "lo", Priority: 10, Trigger: trigger}
	hi := &ast.RuleDef{Name: "hi", Priority: 50, Trigger: trigger}
	mid := &ast.RuleDef{Name: "mid", Priority: 50, Trigger: trigger}
	_ = r.Register(lo)
	_ = r.Register(hi)
	_ = r.Register(mid)

	got := r.GetByTrigger(trigger)
	if len(got) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(got))
	}
	if got[0].Priority < got[1].Priority || got[1].Priority < got[2].Priority {
		t.Fatalf("expected descending priority order, got %+v", got)
	}
	if got[0].Name != "hi" || got[1].Name != "mid" {
		t.Fatalf("expected equal-priority tie broken by insertion order, got %s then %s", got[0].Name, got[1].Name)
	}
}

func TestRuleRegistryDuplicateRejected(t *testing.T) {
	r := NewRuleRegistry()
	rule := &ast.RuleDef{Name: "R1", Trigger: ast.Trigger{Type: ast.TriggerCreate, EntityType: "Supplier"}}
	if err := r.Register(rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Register(rule)
	if _, ok := err.(*DuplicateRule); !ok {
		t.Fatalf("expected *DuplicateRule, got %T: %v", err, err)
	}
}

func TestGetByTriggerEmptyBucket(t *testing.T) {
	r := NewRuleRegistry()
	got := r.GetByTrigger(ast.Trigger{Type: ast.TriggerCreate, EntityType: "Nothing"})
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %+v", got)
	}
}

func TestRuleRegistryAllSortedByName(t *testing.T) {
	r := NewRuleRegistry()
	trigger := ast.Trigger{Type: ast.TriggerCreate, EntityType: "Supplier"}
	_ = r.Register(&ast.RuleDef{Name: "Zebra", Trigger: trigger})
	_ = r.Register(&ast.RuleDef{Name: "Apple", Trigger: trigger})
	all := r.All()
	if len(all) != 2 || all[0].Name != "Apple" || all[1].Name != "Zebra" {
		t.Fatalf("expected [Apple Zebra], got %+v", all)
	}
}

func TestActionRegistryAllSortedByEntityThenName(t *testing.T) {
	r := NewActionRegistry()
	_ = r.Register(&ast.ActionDef{EntityType: "Supplier", Name: "block"})
	_ = r.Register(&ast.ActionDef{EntityType: "PurchaseOrder", Name: "cancel"})
	all := r.All()
	if len(all) != 2 || all[0].EntityType != "PurchaseOrder" || all[1].EntityType != "Supplier" {
		t.Fatalf("expected PurchaseOrder before Supplier, got %+v", all)
	}
}
