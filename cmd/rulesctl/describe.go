package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphrules/engine/docgen"
	"github.com/graphrules/engine/registry"
)

func newDescribeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <dir>",
		Short: "Render every ACTION/RULE doc comment in a directory as Markdown (or HTML with --html).",
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

			markdown := docgen.Render(actions.All(), rules.All())
			if opts.HTML {
				fmt.Fprintln(cmd.OutOrStdout(), string(docgen.RenderHTML(markdown)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), markdown)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "render to HTML via blackfriday instead of raw Markdown")
	return cmd
}
