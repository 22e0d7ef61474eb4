package docgen

import (
	"strings"
	"testing"

	"github.com/graphrules/engine/ast"
)

func TestRenderIncludesDocAndTriggerText(t *testing.T) {
	rule := &ast.RuleDef{
		Doc:      "Locks open purchase orders when their supplier is blocked.",
		Name:     "R1",
		Priority: 100,
		Trigger:  ast.Trigger{Type: ast.TriggerUpdate, EntityType: "Supplier", Property: "status"},
		Body:     ast.ForStmt{Var: "s", EntityType: "Supplier"},
	}
	action := &ast.ActionDef{
		Doc:        "Cancels an open purchase order.",
		EntityType: "PurchaseOrder",
		Name:       "cancel",
		Preconditions: []ast.Precondition{
			{Label: "isOpen", Condition: ast.Literal{Value: true}, OnFailure: "Must be open"},
		},
	}

	md := Render([]*ast.ActionDef{action}, []*ast.RuleDef{rule})

	if !strings.Contains(md, "### R1 (priority 100)") {
		t.Fatalf("expected rule heading, got:\n%s", md)
	}
	if !strings.Contains(md, "ON UPDATE(Supplier.status)") {
		t.Fatalf("expected trigger text, got:\n%s", md)
	}
	if !strings.Contains(md, "Locks open purchase orders") {
		t.Fatalf("expected rule doc text, got:\n%s", md)
	}
	if !strings.Contains(md, "### PurchaseOrder.cancel") {
		t.Fatalf("expected action heading, got:\n%s", md)
	}
	if !strings.Contains(md, "Must be open") {
		t.Fatalf("expected precondition failure text, got:\n%s", md)
	}
}

func TestRenderHTMLProducesHeadingTag(t *testing.T) {
	html := string(RenderHTML("# Title\n\nbody text\n"))
	if !strings.Contains(html, "<h1>") {
		t.Fatalf("expected blackfriday to render an h1, got:\n%s", html)
	}
}

func TestRenderEmptyRegistriesProducesBareHeader(t *testing.T) {
	md := Render(nil, nil)
	if !strings.Contains(md, "# Rule and Action Reference") {
		t.Fatalf("expected top-level header even with nothing registered, got:\n%s", md)
	}
	if strings.Contains(md, "## Rules") || strings.Contains(md, "## Actions") {
		t.Fatalf("expected no section headers when nothing registered, got:\n%s", md)
	}
}
