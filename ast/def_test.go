package ast

import "testing"

func TestTriggerKeyUpdate(t *testing.T) {
	tr := Trigger{Type: TriggerUpdate, EntityType: "Supplier", Property: "status"}
	if got, want := tr.Key(), "UPDATE|Supplier|status"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestTriggerKeyNonUpdate(t *testing.T) {
	for _, typ := range []TriggerType{TriggerCreate, TriggerDelete, TriggerLink, TriggerScan} {
		tr := Trigger{Type: typ, EntityType: "PurchaseOrder"}
		want := string(typ) + "|PurchaseOrder"
		if got := tr.Key(); got != want {
			t.Errorf("Key() for %s = %q, want %q", typ, got, want)
		}
	}
}

func TestChangeEventTriggerKey(t *testing.T) {
	ev := ChangeEvent{EntityType: "Supplier", Property: "status"}
	if got, want := ev.TriggerKey(), "UPDATE|Supplier|status"; got != want {
		t.Errorf("TriggerKey() = %q, want %q", got, want)
	}
}

func TestPathString(t *testing.T) {
	p := Path{Parts: []string{"this", "status"}}
	if got, want := p.String(), "this.status"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := p.Head(), "this"; got != want {
		t.Errorf("Head() = %q, want %q", got, want)
	}
}
