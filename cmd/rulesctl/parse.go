package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/parser"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.dsl>",
		Short: "Parse a DSL file and print its AST as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parser.ParseFile(args[0])
			if err != nil {
				return err
			}
			out := make([]map[string]interface{}, 0, len(items))
			for _, item := range items {
				switch v := item.(type) {
				case *ast.RuleDef:
					out = append(out, map[string]interface{}{"kind": "rule", "def": v})
				case *ast.ActionDef:
					out = append(out, map[string]interface{}{"kind": "action", "def": v})
				}
			}
			js, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(js))
			return nil
		},
	}
}
