package summary

import (
	"fmt"
	"strings"

	"policypulse/backend/internal/policy"
	"policypulse/backend/internal/profile"
)

const maxPromptSections = 8

// BuildMessages turns a profile and its relevance analysis into the system
// and user messages sent to the provider.
func BuildMessages(p profile.UserProfile, analysis policy.Analysis, corpus policy.Corpus, opts Options) []Message {
	return []Message{
		{Role: RoleSystem, Content: buildSystemPrompt(corpus, opts)},
		{Role: RoleUser, Content: buildUserPrompt(p, analysis, corpus)},
	}
}

func buildSystemPrompt(corpus policy.Corpus, opts Options) string {
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = "English"
	}
	detail := "standard"
	switch strings.ToLower(strings.TrimSpace(opts.DetailLevel)) {
	case "brief":
		detail = "brief: one sentence per field"
	case "detailed":
		detail = "detailed: up to four sentences per field"
	}

	lines := []string{
		fmt.Sprintf("You explain the %s to individual residents.", nonEmpty(corpus.Title, "policy address")),
		"Use only the policy sections provided. Do not invent programmes, amounts or dates.",
		"Write in " + language + ". Detail level: " + detail + ".",
		"Reply with a single JSON object and nothing else, using this shape:",
		`{"overallScore": 70-100, "relevantAreas": [{"category", "title", "relevanceScore": 0-100, "summary", "details", "actionItems": [], "impact": "high|medium|low"}],`,
		` "majorUpdates": [{"id", "title", "description", "relevanceToUser", "timeline", "impact"}],`,
		` "recommendations": [{"id", "title", "description", "actionSteps": [], "priority": "high|medium|low", "category"}]}`,
		"overallScore must be between 70 and 100. relevantAreas and recommendations must not be empty.",
		"Plain text only inside fields: no HTML, no markdown, no links.",
	}
	return strings.Join(lines, "\n")
}

func buildUserPrompt(p profile.UserProfile, analysis policy.Analysis, corpus policy.Corpus) string {
	lines := []string{"Resident profile:"}
	lines = append(lines, describeProfile(p)...)
	lines = append(lines, "", fmt.Sprintf("Computed overall relevance: %d", analysis.OverallScore))
	if len(analysis.TopCategories) > 0 {
		lines = append(lines, "Top categories: "+strings.Join(analysis.TopCategories, ", "))
	}

	lines = append(lines, "", "Relevant policy sections:")
	for i, r := range analysis.RelevantSections {
		if i >= maxPromptSections {
			break
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s (score %d)", r.Category, r.Title, r.Score))
		if section, ok := corpus.Section(r.SectionID); ok {
			lines = append(lines, "  Summary: "+section.Summary)
			lines = append(lines, "  Timeline: "+section.ImplementationTimeline)
			if len(section.KeyBenefits) > 0 {
				lines = append(lines, "  Key benefits: "+strings.Join(section.KeyBenefits, "; "))
			}
		}
		if len(r.Reasons) > 0 {
			lines = append(lines, "  Why it matters: "+strings.Join(r.Reasons, "; "))
		}
	}
	if len(analysis.RelevantSections) == 0 {
		lines = append(lines, "- none scored above the relevance cutoff; focus on measures for all residents")
	}

	if len(analysis.RecommendedActions) > 0 {
		lines = append(lines, "", "Suggested actions:")
		for _, action := range analysis.RecommendedActions {
			lines = append(lines, "- "+action)
		}
	}
	return strings.Join(lines, "\n")
}

func describeProfile(p profile.UserProfile) []string {
	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, value))
		}
	}
	if p.Age != nil {
		add("Age", fmt.Sprint(*p.Age))
	}
	add("Gender", p.Gender)
	add("Marital status", p.MaritalStatus)
	add("District", p.District)
	add("Monthly household income", p.IncomeRange)
	add("Employment", p.EmploymentStatus)
	add("Housing", p.HousingType)
	add("Education", p.EducationLevel)
	if p.HasChildren != nil {
		if *p.HasChildren {
			ages := make([]string, len(p.ChildrenAges))
			for i, a := range p.ChildrenAges {
				ages[i] = fmt.Sprint(a)
			}
			add("Children", "yes, aged "+strings.Join(ages, ", "))
		} else {
			add("Children", "none")
		}
	}
	add("Transport", strings.Join(p.TransportationMode, ", "))
	add("Health", strings.Join(p.HealthConditions, ", "))
	if len(lines) == 0 {
		lines = append(lines, "- not provided")
	}
	return lines
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
