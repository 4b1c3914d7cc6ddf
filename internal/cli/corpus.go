package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"policypulse/backend/internal/policy"
)

// NewCorpusCmd creates the 'corpus' command group.
func NewCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect and validate the policy corpus",
	}
	cmd.AddCommand(newCorpusValidateCmd())
	return cmd
}

func newCorpusValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a policy corpus YAML file",
		Long:  `Checks unique section ids, impact levels, timeline years and budget totals.`,
		Example: `  policyctl corpus validate
  policyctl corpus validate --file corpus-2026.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpusValidate(cmd.Context(), cmd.OutOrStdout(), file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Corpus YAML file (default: built-in corpus)")
	return cmd
}

func runCorpusValidate(ctx context.Context, out io.Writer, file string) error {
	corpus, err := loadCorpus(ctx, file)
	if err != nil {
		return err
	}

	var allocated float64
	for _, s := range corpus.Sections {
		if s.BudgetAllocation != nil {
			allocated += *s.BudgetAllocation
		}
	}
	fmt.Fprintf(out, "%s (%d)\n", corpus.Title, corpus.Year)
	fmt.Fprintf(out, "  Sections:   %d\n", len(corpus.Sections))
	fmt.Fprintf(out, "  Categories: %s\n", strings.Join(corpus.Categories(), ", "))
	fmt.Fprintf(out, "  Budget:     %.0f of %.0f allocated\n", allocated, corpus.TotalBudget)
	fmt.Fprintln(out, "✓ corpus is valid")
	return nil
}

func loadCorpus(ctx context.Context, file string) (policy.Corpus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(file) == "" {
		return policy.EmbeddedSource{}.Load(ctx)
	}
	return policy.FileSource{Path: file}.Load(ctx)
}
