// Package docgen renders the Doc comments the parser captures on
// ACTION and RULE declarations (SPEC_FULL.md §3 SUPPLEMENT) into
// Markdown, for the rulesctl describe command. blackfriday/v2 — a
// direct teacher dependency — is used only by RenderHTML, for the
// describe --html flag; Render's Markdown output is not passed
// through blackfriday or otherwise checked.
package docgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/graphrules/engine/ast"
)

// Render walks actions and rules and emits one Markdown section per
// declaration: name, parameters/trigger, preconditions, and the
// captured Doc text.
func Render(actions []*ast.ActionDef, rules []*ast.RuleDef) string {
	var b strings.Builder

	b.WriteString("# Rule and Action Reference\n\n")

	if len(rules) > 0 {
		b.WriteString("## Rules\n\n")
		sortedRules := append([]*ast.RuleDef(nil), rules...)
		sort.Slice(sortedRules, func(i, j int) bool { return sortedRules[i].Name < sortedRules[j].Name })
		for _, r := range sortedRules {
			renderRule(&b, r)
		}
	}

	if len(actions) > 0 {
		b.WriteString("## Actions\n\n")
		sortedActions := append([]*ast.ActionDef(nil), actions...)
		sort.Slice(sortedActions, func(i, j int) bool {
			if sortedActions[i].EntityType != sortedActions[j].EntityType {
				return sortedActions[i].EntityType < sortedActions[j].EntityType
			}
			return sortedActions[i].Name < sortedActions[j].Name
		})
		for _, a := range sortedActions {
			renderAction(&b, a)
		}
	}

	return b.String()
}

func renderRule(b *strings.Builder, r *ast.RuleDef) {
	fmt.Fprintf(b, "### %s (priority %d)\n\n", r.Name, r.Priority)
	fmt.Fprintf(b, "Trigger: `%s`\n\n", triggerText(r.Trigger))
	if r.Doc != "" {
		fmt.Fprintf(b, "%s\n\n", r.Doc)
	}
}

func renderAction(b *strings.Builder, a *ast.ActionDef) {
	fmt.Fprintf(b, "### %s.%s\n\n", a.EntityType, a.Name)
	if a.Doc != "" {
		fmt.Fprintf(b, "%s\n\n", a.Doc)
	}
	if len(a.Parameters) > 0 {
		b.WriteString("Parameters:\n\n")
		for _, p := range a.Parameters {
			opt := ""
			if p.Optional {
				opt = " (optional)"
			}
			fmt.Fprintf(b, "- `%s: %s`%s\n", p.Name, p.Type, opt)
		}
		b.WriteString("\n")
	}
	if len(a.Preconditions) > 0 {
		b.WriteString("Preconditions:\n\n")
		for _, pre := range a.Preconditions {
			label := pre.Label
			if label == "" {
				label = "(unlabeled)"
			}
			fmt.Fprintf(b, "- **%s**: on failure, %q\n", label, pre.OnFailure)
		}
		b.WriteString("\n")
	}
}

func triggerText(t ast.Trigger) string {
	if t.Type == ast.TriggerUpdate {
		return fmt.Sprintf("ON UPDATE(%s.%s)", t.EntityType, t.Property)
	}
	return fmt.Sprintf("ON %s(%s)", t.Type, t.EntityType)
}

// RenderHTML renders markdown to HTML via blackfriday, for rulesctl's
// describe --html flag — a terminal-unfriendly doc bundle rendered for
// a human reading it in a browser.
func RenderHTML(markdown string) []byte {
	return blackfriday.Run([]byte(markdown))
}
