package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"policypulse/backend/internal/policy"
	"policypulse/backend/internal/profile"
)

// NewAnalyzeCmd creates the 'analyze' command, which scores a profile
// against the corpus without calling an AI provider.
func NewAnalyzeCmd() *cobra.Command {
	var (
		profilePath string
		profileID   string
		corpusFile  string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a user profile against the policy corpus",
		Example: `  policyctl analyze --profile profile.json
  policyctl analyze --profile profile.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProfile(profilePath)
			if err != nil {
				return err
			}
			corpus, err := loadCorpus(cmd.Context(), corpusFile)
			if err != nil {
				return err
			}
			if profileID == "" {
				profileID = strings.TrimSuffix(filepath.Base(profilePath), filepath.Ext(profilePath))
			}
			return runAnalyze(cmd.OutOrStdout(), profileID, p, corpus, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile JSON file")
	cmd.Flags().StringVar(&profileID, "id", "", "Profile id recorded in the analysis (default: profile file name)")
	cmd.Flags().StringVarP(&corpusFile, "corpus", "c", "", "Corpus YAML file (default: built-in corpus)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func readProfile(path string) (profile.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.UserProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var p profile.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return profile.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return profile.UserProfile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func runAnalyze(out io.Writer, profileID string, p profile.UserProfile, corpus policy.Corpus, jsonOutput bool) error {
	analysis := policy.AnalyzeForUser(profileID, p, corpus)

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Fprintf(out, "Profile: %s\n", analysis.UserProfileID)
	fmt.Fprintf(out, "Overall relevance: %d/100\n", analysis.OverallScore)
	fmt.Fprintf(out, "Profile tags: %v\n\n", profile.DemographicTags(p))
	if len(analysis.RelevantSections) == 0 {
		fmt.Fprintln(out, "No section passed the relevance cutoff.")
	}
	for i, r := range analysis.RelevantSections {
		fmt.Fprintf(out, "%2d. [%s] %s  score=%d\n", i+1, r.Category, r.Title, r.Score)
		if r.ImpactAssessment != "" {
			fmt.Fprintf(out, "    %s\n", r.ImpactAssessment)
		}
	}
	if len(analysis.RecommendedActions) > 0 {
		fmt.Fprintln(out, "\nRecommended actions:")
		for _, action := range analysis.RecommendedActions {
			fmt.Fprintf(out, "  - %s\n", action)
		}
	}
	return nil
}
