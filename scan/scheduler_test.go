package scan

import (
	"context"
	"testing"
	"time"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/events"
)

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	_, err := New(events.New(), nil, map[string]string{"Supplier": "not a cron expr"})
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRunEmitsScanEventAndStopsOnContextCancel(t *testing.T) {
	emitter := events.New()
	var got []ast.ChangeEvent
	emitter.Subscribe(events.SubscriberFunc(func(e ast.ChangeEvent) {
		got = append(got, e)
	}))

	sched, err := New(emitter, nil, map[string]string{"Supplier": "* * * * * * *"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	if len(got) == 0 {
		t.Fatal("expected at least one SCAN event within the window")
	}
	for _, e := range got {
		if e.Kind != ast.TriggerScan || e.EntityType != "Supplier" {
			t.Fatalf("unexpected event: %+v", e)
		}
	}
}
