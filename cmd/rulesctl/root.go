// Package main is rulesctl (C19), a small cobra-based CLI grounded on
// the corpus's root-command pattern (a shared RootOptions struct
// threaded into every subcommand constructor, rather than package
// globals). It offers parse/validate/describe/run, the scriptable
// equivalents of spec.md §8's S1–S6 scenarios for regression fixtures
// without a real graph database, plus serve, which wires config,
// metrics, the execution log, diagnostics, scan, and changebridge into
// one running engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared across every subcommand.
type RootOptions struct {
	HTML bool
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rulesctl",
		Short:         "Inspect, validate, and run reactive graph rule DSL files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newParseCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newDescribeCommand(opts))
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeCommand())

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
