/*
Package main is the entry point for policyctl, the operator CLI for the
policy summary service.

Usage:

	policyctl [command]

Available Commands:

	corpus validate  Validate a policy corpus YAML file
	analyze          Score a profile against the corpus without an AI call
	render           Render a stored summary as a PDF or text report
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"policypulse/backend/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "policyctl",
		Short:         "Operator tools for the policy summary service",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewCorpusCmd())
	rootCmd.AddCommand(cli.NewAnalyzeCmd())
	rootCmd.AddCommand(cli.NewRenderCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
