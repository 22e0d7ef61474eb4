package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/registry"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Load every .dsl file in a directory and report duplicate names and dangling action triggers.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := registry.NewRuleRegistry()
			actions := registry.NewActionRegistry()

			files, err := dslFiles(args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := rules.LoadFromFile(f); err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				if err := actions.LoadFromFile(f); err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
			}

			var problems []string
			for _, rule := range rules.All() {
				for _, bad := range danglingTriggers(rule.Body.Body, actions) {
					problems = append(problems, fmt.Sprintf("rule %s: TRIGGER references unknown action %s", rule.Name, bad))
				}
			}

			if len(problems) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d rule(s), %d action(s), no dangling triggers\n", len(rules.All()), len(actions.All()))
				return nil
			}
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return fmt.Errorf("%d problem(s) found", len(problems))
		},
	}
}

// danglingTriggers walks a statement tree (recursing into nested FORs)
// and returns "EntityType.ActionName" for every TRIGGER statement whose
// action is not registered.
func danglingTriggers(stmts []ast.Stmt, actions *registry.ActionRegistry) []string {
	var out []string
	for _, s := range stmts {
		switch v := s.(type) {
		case ast.TriggerStmt:
			if actions.Lookup(v.EntityType, v.ActionName) == nil {
				out = append(out, v.EntityType+"."+v.ActionName)
			}
		case ast.ForStmt:
			out = append(out, danglingTriggers(v.Body, actions)...)
		}
	}
	return out
}

func dslFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".dsl" {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
