package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"policypulse/backend/internal/report"
	"policypulse/backend/internal/summary"
)

// NewRenderCmd creates the 'render' command, which turns a stored summary
// JSON into a downloadable report.
func NewRenderCmd() *cobra.Command {
	var (
		summaryPath string
		format      string
		outDir      string
		reportID    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a summary JSON as a PDF or text report",
		Example: `  policyctl render --summary summary.json
  policyctl render --summary summary.json --format txt --out ./reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSummary(summaryPath)
			if err != nil {
				return err
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return runRender(cmd.OutOrStdout(), s, f, outDir, reportID)
		},
	}

	cmd.Flags().StringVarP(&summaryPath, "summary", "s", "", "Summary JSON file")
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatPDF), "Report format: pdf or txt")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().StringVar(&reportID, "report-id", "", "Report id (default: random)")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func readSummary(path string) (summary.PersonalizedSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return summary.PersonalizedSummary{}, fmt.Errorf("read summary: %w", err)
	}
	var s summary.PersonalizedSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return summary.PersonalizedSummary{}, fmt.Errorf("decode summary: %w", err)
	}
	if err := summary.Validate(s); err != nil {
		return summary.PersonalizedSummary{}, err
	}
	return summary.Sanitize(s), nil
}

func runRender(out io.Writer, s summary.PersonalizedSummary, format report.Format, outDir, reportID string) error {
	artifact, err := report.Render(s, reportID, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(out, "✓ wrote %s (%d bytes)\n", path, len(artifact.Data))
	return nil
}
