package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/engine"
	"github.com/graphrules/engine/graph/memory"
	"github.com/graphrules/engine/registry"
)

// diagnosticsRecorder implements engine.Observer by collecting every
// notification as a printable line, for "rulesctl run" to surface the
// emitted diagnostics alongside the resulting graph (SPEC_FULL.md
// §4.19) without standing up the websocket Hub a long-running serve
// process would use.
type diagnosticsRecorder struct {
	entries []string
}

func (d *diagnosticsRecorder) RuleMatched(string)  {}
func (d *diagnosticsRecorder) CascadeFinished(int) {}

func (d *diagnosticsRecorder) RuleFailed(rule, entityType, entityID string, err error) {
	d.entries = append(d.entries, fmt.Sprintf("rule_failed rule=%s entity=%s/%s error=%q", rule, entityType, entityID, err.Error()))
}

func (d *diagnosticsRecorder) Overflow(o *engine.CascadeOverflow) {
	d.entries = append(d.entries, fmt.Sprintf("overflow entity=%s/%s.%s depth=%d reason=%s", o.EntityType, o.EntityID, o.Property, o.Depth, o.Reason))
}

func (d *diagnosticsRecorder) TranslateError(kind string) {
	d.entries = append(d.entries, "translate_error kind="+kind)
}

func (d *diagnosticsRecorder) EvalError(kind string) {
	d.entries = append(d.entries, "eval_error kind="+kind)
}

var _ engine.Observer = (*diagnosticsRecorder)(nil)

// fixture is the JSON shape rulesctl run seeds an in-memory graph
// from: the scriptable equivalent of spec.md §8's S1–S6 scenario
// setup, usable as a regression fixture without a real graph database.
type fixture struct {
	Entities []struct {
		ID         string                 `json:"id"`
		Type       string                 `json:"type"`
		Properties map[string]interface{} `json:"properties"`
	} `json:"entities"`
	Relationships []struct {
		Type string `json:"type"`
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"relationships"`
}

func newRunCommand() *cobra.Command {
	var fixturePath, eventJSON string

	cmd := &cobra.Command{
		Use:   "run <file.dsl>",
		Short: "Run the engine against an in-memory graph seeded from a fixture, firing one event.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := memory.New()
			if fixturePath != "" {
				if err := seedFixture(store, fixturePath); err != nil {
					return err
				}
			}

			var event ast.ChangeEvent
			if err := json.Unmarshal([]byte(eventJSON), &event); err != nil {
				return fmt.Errorf("--event: %w", err)
			}

			rules := registry.NewRuleRegistry()
			if err := rules.LoadFromFile(args[0]); err != nil {
				return err
			}
			actions := registry.NewActionRegistry()
			_ = actions.LoadFromFile(args[0]) // a rules-only file has none; ignore

			diag := &diagnosticsRecorder{}
			eng := engine.New(rules, actions, store, nil)
			eng.Observers = []engine.Observer{diag}
			report := eng.OnEvent(context.Background(), event)

			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d overflows=%d\n", report.Processed, report.Overflows)
			js, err := json.MarshalIndent(store.All(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(js))

			fmt.Fprintln(cmd.OutOrStdout(), "diagnostics:")
			if len(diag.entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "  (none)")
			}
			for _, e := range diag.entries {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "JSON file seeding the in-memory graph (entities + relationships)")
	cmd.Flags().StringVar(&eventJSON, "event", "{}", "JSON-encoded ast.ChangeEvent to fire")
	return cmd
}

func seedFixture(store *memory.Store, path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fx fixture
	if err := json.Unmarshal(bs, &fx); err != nil {
		return err
	}
	for _, e := range fx.Entities {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		store.PutEntity(&ast.Entity{ID: id, Type: e.Type, Properties: e.Properties})
	}
	for _, r := range fx.Relationships {
		store.Link(r.Type, r.From, r.To)
	}
	return nil
}
