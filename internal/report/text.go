package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"policypulse/backend/internal/summary"
)

// TextRenderer writes a plain UTF-8 report.
type TextRenderer struct{}

func (TextRenderer) Format() Format      { return FormatText }
func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (TextRenderer) Render(w io.Writer, s summary.PersonalizedSummary, reportID string) error {
	out := bufio.NewWriter(w)
	line := func(format string, args ...any) {
		fmt.Fprintf(out, format+"\n", args...)
	}
	rule := strings.Repeat("=", 60)

	line("PERSONALIZED POLICY SUMMARY")
	line("%s", rule)
	line("Report ID: %s", reportID)
	line("Generated: %s", s.GeneratedAt.UTC().Format(time.RFC3339))
	line("Overall relevance: %d/100", s.OverallScore)
	line("")

	line("RELEVANT AREAS")
	line("%s", rule)
	for i, area := range s.RelevantAreas {
		line("%d. %s [%s] relevance %d, impact %s", i+1, area.Title, area.Category, area.RelevanceScore, area.Impact)
		writeParagraph(line, area.Summary)
		writeParagraph(line, area.Details)
		for _, item := range area.ActionItems {
			line("   - %s", item)
		}
		line("")
	}

	if len(s.MajorUpdates) > 0 {
		line("MAJOR UPDATES")
		line("%s", rule)
		for _, u := range s.MajorUpdates {
			line("* %s (%s, impact %s)", u.Title, u.Timeline, u.Impact)
			writeParagraph(line, u.Description)
			writeParagraph(line, u.RelevanceToUser)
			line("")
		}
	}

	line("RECOMMENDATIONS")
	line("%s", rule)
	for i, r := range s.Recommendations {
		line("%d. %s (priority %s)", i+1, r.Title, r.Priority)
		writeParagraph(line, r.Description)
		for n, step := range r.ActionSteps {
			line("   %d) %s", n+1, step)
		}
		line("")
	}

	if s.AIProvider != "" {
		line("Prepared with %s.", s.AIProvider)
	}
	return out.Flush()
}

func writeParagraph(line func(string, ...any), text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	line("   %s", text)
}
