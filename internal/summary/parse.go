package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"policypulse/backend/internal/sanitize"
)

// ErrInvalidOutput marks a provider reply that failed parsing or validation.
// It is a generation failure the user may retry.
var ErrInvalidOutput = errors.New("invalid AI output")

type wireSummary struct {
	OverallScore  float64 `json:"overallScore"`
	RelevantAreas []struct {
		Category       string   `json:"category"`
		Title          string   `json:"title"`
		RelevanceScore float64  `json:"relevanceScore"`
		Summary        string   `json:"summary"`
		Details        string   `json:"details"`
		ActionItems    []string `json:"actionItems"`
		Impact         string   `json:"impact"`
	} `json:"relevantAreas"`
	MajorUpdates    []MajorUpdate    `json:"majorUpdates"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ParseSummary decodes the provider text into a summary. Markdown code
// fences and prose around the JSON object are ignored.
func ParseSummary(raw string) (PersonalizedSummary, error) {
	content := cleanMarkdownWrapper(raw)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return PersonalizedSummary{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidOutput)
	}

	var wire wireSummary
	if err := json.Unmarshal([]byte(content[start:end+1]), &wire); err != nil {
		return PersonalizedSummary{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	// The overall score is checked before conversion so a fractional value
	// cannot round into range.
	if wire.OverallScore != math.Trunc(wire.OverallScore) {
		return PersonalizedSummary{}, fmt.Errorf("%w: overallScore %v is not an integer", ErrInvalidOutput, wire.OverallScore)
	}
	if wire.OverallScore < 70 || wire.OverallScore > 100 {
		return PersonalizedSummary{}, fmt.Errorf("%w: overallScore %v outside 70-100", ErrInvalidOutput, wire.OverallScore)
	}

	out := PersonalizedSummary{
		OverallScore:    int(wire.OverallScore),
		MajorUpdates:    wire.MajorUpdates,
		Recommendations: wire.Recommendations,
	}
	for _, a := range wire.RelevantAreas {
		out.RelevantAreas = append(out.RelevantAreas, RelevantArea{
			Category:       a.Category,
			Title:          a.Title,
			RelevanceScore: clampScore(int(math.Round(a.RelevanceScore))),
			Summary:        a.Summary,
			Details:        a.Details,
			ActionItems:    a.ActionItems,
			Impact:         a.Impact,
		})
	}
	for i := range out.MajorUpdates {
		if strings.TrimSpace(out.MajorUpdates[i].ID) == "" {
			out.MajorUpdates[i].ID = fmt.Sprintf("update-%d", i+1)
		}
	}
	for i := range out.Recommendations {
		if strings.TrimSpace(out.Recommendations[i].ID) == "" {
			out.Recommendations[i].ID = fmt.Sprintf("rec-%d", i+1)
		}
	}
	return out, nil
}

func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// Validate enforces the structural and numeric rules a summary must meet
// before it may be stored.
func Validate(s PersonalizedSummary) error {
	if s.OverallScore < 70 || s.OverallScore > 100 {
		return fmt.Errorf("%w: overallScore %d outside 70-100", ErrInvalidOutput, s.OverallScore)
	}
	if len(s.RelevantAreas) == 0 {
		return fmt.Errorf("%w: relevantAreas is empty", ErrInvalidOutput)
	}
	if len(s.Recommendations) == 0 {
		return fmt.Errorf("%w: recommendations is empty", ErrInvalidOutput)
	}
	for i, a := range s.RelevantAreas {
		if strings.TrimSpace(a.Title) == "" {
			return fmt.Errorf("%w: relevantAreas[%d] has no title", ErrInvalidOutput, i)
		}
	}
	for i, r := range s.Recommendations {
		if strings.TrimSpace(r.Title) == "" {
			return fmt.Errorf("%w: recommendations[%d] has no title", ErrInvalidOutput, i)
		}
	}
	return nil
}

// Sanitize cleans every free-text field. Provider output is untrusted.
func Sanitize(s PersonalizedSummary) PersonalizedSummary {
	out := s
	out.RelevantAreas = make([]RelevantArea, len(s.RelevantAreas))
	for i, a := range s.RelevantAreas {
		out.RelevantAreas[i] = RelevantArea{
			Category:       sanitize.Input(a.Category),
			Title:          sanitize.Input(a.Title),
			RelevanceScore: a.RelevanceScore,
			Summary:        sanitize.Input(a.Summary),
			Details:        sanitize.Input(a.Details),
			ActionItems:    sanitize.Strings(a.ActionItems),
			Impact:         sanitize.Input(a.Impact),
		}
	}
	out.MajorUpdates = make([]MajorUpdate, len(s.MajorUpdates))
	for i, u := range s.MajorUpdates {
		out.MajorUpdates[i] = MajorUpdate{
			ID:              sanitize.Input(u.ID),
			Title:           sanitize.Input(u.Title),
			Description:     sanitize.Input(u.Description),
			RelevanceToUser: sanitize.Input(u.RelevanceToUser),
			Timeline:        sanitize.Input(u.Timeline),
			Impact:          sanitize.Input(u.Impact),
		}
	}
	out.Recommendations = make([]Recommendation, len(s.Recommendations))
	for i, r := range s.Recommendations {
		out.Recommendations[i] = Recommendation{
			ID:          sanitize.Input(r.ID),
			Title:       sanitize.Input(r.Title),
			Description: sanitize.Input(r.Description),
			ActionSteps: sanitize.Strings(r.ActionSteps),
			Priority:    sanitize.Input(r.Priority),
			Category:    sanitize.Input(r.Category),
		}
	}
	out.AIProvider = sanitize.Input(s.AIProvider)
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
