package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/graph"
	"github.com/graphrules/engine/graph/memory"
	"github.com/graphrules/engine/registry"
)

func mustLoadRules(t *testing.T, rules *registry.RuleRegistry, dsl string) {
	t.Helper()
	if err := rules.LoadFromText(dsl); err != nil {
		t.Fatalf("LoadFromText: %v", err)
	}
}

// traceDriver wraps a memory.Store and records every written value, in
// call order, so tests can assert on firing order without depending
// on the store's internal row iteration order for anything but the
// sequence of writes.
type traceDriver struct {
	*memory.Store
	mu    sync.Mutex
	trace []interface{}
}

func (d *traceDriver) Write(ctx context.Context, entityType, id, property string, value interface{}) (interface{}, error) {
	old, err := d.Store.Write(ctx, entityType, id, property, value)
	d.mu.Lock()
	d.trace = append(d.trace, value)
	d.mu.Unlock()
	return old, err
}

var _ graph.Driver = (*traceDriver)(nil)

// TestSupplierBlockingCascade is spec.md §8 scenario S1: a Supplier
// going Suspended should lock every Open PurchaseOrder ordered from
// it, and the resulting write should surface as exactly one further
// cascade entry (PurchaseOrder.status, which no registered rule
// reacts to here).
func TestSupplierBlockingCascade(t *testing.T) {
	store := memory.New()
	supplier := &ast.Entity{ID: "BP_10001", Type: "Supplier", Properties: map[string]interface{}{"status": "Active"}}
	po := &ast.Entity{ID: "PO_001", Type: "PurchaseOrder", Properties: map[string]interface{}{"status": "Open"}}
	store.PutEntity(supplier)
	store.PutEntity(po)
	store.Link("orderedFrom", "PO_001", "BP_10001")

	rules := registry.NewRuleRegistry()
	mustLoadRules(t, rules, `
RULE R1 PRIORITY 100 {
	ON UPDATE(Supplier.status)
	FOR (s: Supplier WHERE s.status IN ["Expired", "Blacklisted", "Suspended"]) {
		FOR (po: PurchaseOrder WHERE EXISTS(po-[orderedFrom]->s) AND po.status == "Open") {
			SET po.status = "RiskLocked";
		}
	}
}
`)

	// A real change-producer persists the mutation before emitting the
	// event for it; the engine reads live graph state when it compiles
	// and runs the outer FOR, it does not replay event.NewValue itself.
	if _, err := store.Write(context.Background(), "Supplier", "BP_10001", "status", "Suspended"); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	eng := New(rules, registry.NewActionRegistry(), store, nil)
	report := eng.OnEvent(context.Background(), ast.ChangeEvent{
		EntityType: "Supplier",
		EntityID:   "BP_10001",
		Property:   "status",
		OldValue:   "Active",
		NewValue:   "Suspended",
	})

	got, err := store.Get(context.Background(), "PurchaseOrder", "PO_001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Properties["status"] != "RiskLocked" {
		t.Fatalf("expected PO_001.status = RiskLocked, got %v", got.Properties["status"])
	}
	// Two cascade entries processed: the triggering Supplier.status
	// event and the synthetic PurchaseOrder.status event it produced.
	if report.Processed != 2 {
		t.Fatalf("expected 2 cascade entries processed, got %d", report.Processed)
	}
	if report.Overflows != 0 {
		t.Fatalf("expected no overflow, got %d", report.Overflows)
	}
}

// TestPriorityOrdering is spec.md §8 scenario S4: the higher-priority
// rule completes every row of its own FOR before any row of the
// lower-priority rule begins.
func TestPriorityOrdering(t *testing.T) {
	store := memory.New()
	trigger := &ast.Entity{ID: "T1", Type: "Trigger", Properties: map[string]interface{}{"kick": 0.0}}
	store.PutEntity(trigger)
	store.PutEntity(&ast.Entity{ID: "I1", Type: "Item", Properties: map[string]interface{}{"tag": ""}})
	store.PutEntity(&ast.Entity{ID: "I2", Type: "Item", Properties: map[string]interface{}{"tag": ""}})

	driver := &traceDriver{Store: store}

	rules := registry.NewRuleRegistry()
	mustLoadRules(t, rules, `
RULE R_hi PRIORITY 50 {
	ON UPDATE(Trigger.kick)
	FOR (t: Trigger) {
		FOR (i: Item) {
			SET i.tag = "HI";
		}
	}
}
RULE R_lo PRIORITY 10 {
	ON UPDATE(Trigger.kick)
	FOR (t: Trigger) {
		FOR (i: Item) {
			SET i.tag = "LO";
		}
	}
}
`)

	eng := New(rules, registry.NewActionRegistry(), driver, nil)
	eng.OnEvent(context.Background(), ast.ChangeEvent{
		EntityType: "Trigger",
		EntityID:   "T1",
		Property:   "kick",
		OldValue:   0.0,
		NewValue:   1.0,
	})

	if len(driver.trace) != 4 {
		t.Fatalf("expected 4 writes, got %d: %v", len(driver.trace), driver.trace)
	}
	for i := 0; i < 2; i++ {
		if driver.trace[i] != "HI" {
			t.Fatalf("expected first two writes to be HI, got %v", driver.trace)
		}
	}
	for i := 2; i < 4; i++ {
		if driver.trace[i] != "LO" {
			t.Fatalf("expected last two writes to be LO, got %v", driver.trace)
		}
	}
}

// TestCascadeBound is spec.md §8 scenario S5: a rule that re-triggers
// itself on every write must stop at exactly MaxCascadeDepth writes,
// with the overflow past the bound logged and dropped.
func TestCascadeBound(t *testing.T) {
	store := memory.New()
	store.PutEntity(&ast.Entity{ID: "X1", Type: "X", Properties: map[string]interface{}{"p": ""}})

	rules := registry.NewRuleRegistry()
	mustLoadRules(t, rules, `
RULE R {
	ON UPDATE(X.p)
	FOR (x: X) {
		SET x.p = CONCAT(x.p, "x");
	}
}
`)

	eng := New(rules, registry.NewActionRegistry(), store, nil)
	report := eng.OnEvent(context.Background(), ast.ChangeEvent{
		EntityType: "X",
		EntityID:   "X1",
		Property:   "p",
		OldValue:   "",
		NewValue:   "x",
	})

	got, err := store.Get(context.Background(), "X", "X1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := "xxxxxxxxxx"; got.Properties["p"] != want {
		t.Fatalf("expected p = %q (10 writes), got %q", want, got.Properties["p"])
	}
	if report.Overflows != 1 {
		t.Fatalf("expected exactly 1 overflow, got %d", report.Overflows)
	}
	if report.Processed != DefaultMaxCascadeDepth {
		t.Fatalf("expected %d cascade entries processed, got %d", DefaultMaxCascadeDepth, report.Processed)
	}
}

// TestNoMatchingRowsIsANoop is spec.md §8 boundary behavior 9: a FOR
// with no matching rows executes zero statements and returns without
// error.
func TestNoMatchingRowsIsANoop(t *testing.T) {
	store := memory.New()
	store.PutEntity(&ast.Entity{ID: "S1", Type: "Supplier", Properties: map[string]interface{}{"status": "Active"}})

	rules := registry.NewRuleRegistry()
	mustLoadRules(t, rules, `
RULE R1 {
	ON UPDATE(Supplier.status)
	FOR (s: Supplier WHERE s.status == "Suspended") {
		SET s.status = "never";
	}
}
`)

	eng := New(rules, registry.NewActionRegistry(), store, nil)
	report := eng.OnEvent(context.Background(), ast.ChangeEvent{
		EntityType: "Supplier",
		EntityID:   "S1",
		Property:   "status",
		OldValue:   "PendingReview",
		NewValue:   "Active",
	})
	if report.Processed != 1 || report.Overflows != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	got, _ := store.Get(context.Background(), "Supplier", "S1")
	if got.Properties["status"] != "Active" {
		t.Fatalf("expected no write, status unchanged at Active, got %v", got.Properties["status"])
	}
}

// TestIdempotentReEmitWithFalseGuard covers spec.md §8 boundary 8: a
// rule whose guard is false on re-emission performs no writes, so
// re-emitting the same event is idempotent.
func TestIdempotentReEmitWithFalseGuard(t *testing.T) {
	store := memory.New()
	store.PutEntity(&ast.Entity{ID: "S1", Type: "Supplier", Properties: map[string]interface{}{"status": "Active"}})

	rules := registry.NewRuleRegistry()
	mustLoadRules(t, rules, `
RULE R1 {
	ON UPDATE(Supplier.status)
	FOR (s: Supplier WHERE s.status == "Suspended") {
		SET s.tag = "flagged";
	}
}
`)

	eng := New(rules, registry.NewActionRegistry(), store, nil)
	event := ast.ChangeEvent{EntityType: "Supplier", EntityID: "S1", Property: "status", OldValue: "Active", NewValue: "Active"}
	eng.OnEvent(context.Background(), event)
	eng.OnEvent(context.Background(), event)

	got, _ := store.Get(context.Background(), "Supplier", "S1")
	if _, ok := got.Properties["tag"]; ok {
		t.Fatalf("expected no write since guard never matches, got tag=%v", got.Properties["tag"])
	}
}
