package memory

import (
	"context"
	"testing"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/translate"
)

func TestGetWriteRoundTrip(t *testing.T) {
	s := New()
	s.PutEntity(&ast.Entity{ID: "S1", Type: "Supplier", Properties: map[string]interface{}{"status": "Active"}})

	ctx := context.Background()
	old, err := s.Write(ctx, "Supplier", "S1", "status", "Suspended")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if old != "Active" {
		t.Fatalf("expected prior value Active, got %v", old)
	}

	got, err := s.Get(ctx, "Supplier", "S1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Properties["status"] != "Suspended" {
		t.Fatalf("expected status Suspended, got %v", got.Properties["status"])
	}
}

func TestWriteUnknownEntityErrors(t *testing.T) {
	s := New()
	if _, err := s.Write(context.Background(), "Supplier", "missing", "status", "x"); err == nil {
		t.Fatal("expected error writing an unknown entity")
	}
}

func TestRelatedFollowsOutgoingEdges(t *testing.T) {
	s := New()
	s.PutEntity(&ast.Entity{ID: "PO_1", Type: "PurchaseOrder"})
	s.PutEntity(&ast.Entity{ID: "BP_1", Type: "Supplier"})
	s.Link("orderedFrom", "PO_1", "BP_1")

	related, err := s.Related(context.Background(), "PurchaseOrder", "PO_1", "orderedFrom")
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(related) != 1 || related[0].ID != "BP_1" {
		t.Fatalf("expected [BP_1], got %+v", related)
	}
}

func TestRunExecutesTranslatedQuery(t *testing.T) {
	s := New()
	s.PutEntity(&ast.Entity{ID: "PO_1", Type: "PurchaseOrder", Properties: map[string]interface{}{"status": "Open"}})
	s.PutEntity(&ast.Entity{ID: "PO_2", Type: "PurchaseOrder", Properties: map[string]interface{}{"status": "Cancelled"}})

	forClause := ast.ForStmt{
		Var:        "po",
		EntityType: "PurchaseOrder",
		Guard: ast.Binary{
			Op:    ast.Eq,
			Left:  ast.Path{Parts: []string{"po", "status"}},
			Right: ast.Literal{Value: "Open"},
		},
	}
	compiled, err := translate.Translate(forClause, nil, "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	rows, err := s.Run(context.Background(), compiled.Query, compiled.Params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %+v", len(rows), rows)
	}
	if rows[0]["po"].ID != "PO_1" {
		t.Fatalf("expected PO_1 to match, got %s", rows[0]["po"].ID)
	}
}

func TestAllGroupsByType(t *testing.T) {
	s := New()
	s.PutEntity(&ast.Entity{ID: "PO_1", Type: "PurchaseOrder"})
	s.PutEntity(&ast.Entity{ID: "BP_1", Type: "Supplier"})

	all := s.All()
	if len(all["PurchaseOrder"]) != 1 || len(all["Supplier"]) != 1 {
		t.Fatalf("expected one entity per type, got %+v", all)
	}
}
