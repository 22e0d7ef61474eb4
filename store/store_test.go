package store

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exec.db")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	entries := []Entry{
		{Type: "action", Name: "PurchaseOrder.cancel", EntityID: "PO_1", Success: true, At: time.Unix(1, 0)},
		{Type: "rule", Name: "R1", EntityID: "BP_1", Success: true, At: time.Unix(2, 0)},
		{Type: "action", Name: "PurchaseOrder.submit", EntityID: "PO_2", Success: false, Detail: "Must be draft", At: time.Unix(3, 0)},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := log.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Name != "PurchaseOrder.submit" {
		t.Fatalf("expected newest entry first, got %s", recent[0].Name)
	}
	if recent[1].Name != "R1" {
		t.Fatalf("expected second-newest next, got %s", recent[1].Name)
	}
}

func TestNilLogIsNoop(t *testing.T) {
	var log *Log
	if err := log.Append(Entry{Name: "x"}); err != nil {
		t.Fatalf("nil log Append should no-op, got %v", err)
	}
	recent, err := log.Recent(5)
	if err != nil || recent != nil {
		t.Fatalf("nil log Recent should return (nil, nil), got (%v, %v)", recent, err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("nil log Close should no-op, got %v", err)
	}
}
