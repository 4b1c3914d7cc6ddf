package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
)

const mockModel = "mock-policy-v1"

var sectionLinePattern = regexp.MustCompile(`(?m)^- \[([^\]]+)\] (.+) \(score (\d+)\)$`)

// MockProvider builds a deterministic summary from the relevant sections
// listed in the prompt. Tests can override the reply with Reply.
type MockProvider struct {
	Reply func(messages []Message) (Response, error)
	calls atomic.Int64
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string         { return "mock" }
func (m *MockProvider) Model() string        { return mockModel }
func (m *MockProvider) ValidateConfig() bool { return true }

// Calls reports how many times GenerateResponse ran.
func (m *MockProvider) Calls() int64 {
	return m.calls.Load()
}

func (m *MockProvider) GenerateResponse(ctx context.Context, messages []Message) (Response, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if m.Reply != nil {
		return m.Reply(messages)
	}

	prompt := ""
	for _, msg := range messages {
		if msg.Role == RoleUser {
			prompt = msg.Content
		}
	}

	var (
		areas   []RelevantArea
		updates []MajorUpdate
		recs    []Recommendation
		total   int
	)
	for i, match := range sectionLinePattern.FindAllStringSubmatch(prompt, 3) {
		category, title := match[1], match[2]
		score, _ := strconv.Atoi(match[3])
		total += score
		areas = append(areas, RelevantArea{
			Category:       category,
			Title:          title,
			RelevanceScore: score,
			Summary:        fmt.Sprintf("%s measures that match your profile.", title),
			Details:        fmt.Sprintf("This %s measure targets groups you belong to.", category),
			ActionItems:    []string{"Read the eligibility rules for " + title},
			Impact:         impactFor(score),
		})
		updates = append(updates, MajorUpdate{
			ID:              fmt.Sprintf("update-%d", i+1),
			Title:           title,
			Description:     title + " is part of this year's policy address.",
			RelevanceToUser: "Matches your household circumstances.",
			Timeline:        "This year",
			Impact:          impactFor(score),
		})
		recs = append(recs, Recommendation{
			ID:          fmt.Sprintf("rec-%d", i+1),
			Title:       "Follow up on " + title,
			Description: "Check whether you qualify and when applications open.",
			ActionSteps: []string{"Review the official announcement", "Prepare supporting documents"},
			Priority:    "high",
			Category:    category,
		})
	}
	if len(areas) == 0 {
		areas = []RelevantArea{{
			Category:       "general",
			Title:          "Measures for all residents",
			RelevanceScore: 70,
			Summary:        "General measures that apply to every resident.",
			Details:        "No targeted measures matched your profile closely.",
			ActionItems:    []string{"Review the full policy address"},
			Impact:         "low",
		}}
		recs = []Recommendation{{
			ID:          "rec-1",
			Title:       "Stay informed",
			Description: "Keep an eye on announcements that may affect you.",
			ActionSteps: []string{"Subscribe to government updates"},
			Priority:    "medium",
			Category:    "general",
		}}
		total = 70
	}

	overall := total / len(areas)
	if overall < 70 {
		overall = 70
	}
	if overall > 100 {
		overall = 100
	}
	body, err := json.Marshal(map[string]any{
		"overallScore":    overall,
		"relevantAreas":   areas,
		"majorUpdates":    updates,
		"recommendations": recs,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Content:      string(body),
		Model:        mockModel,
		FinishReason: "stop",
		Usage: &Usage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(body) / 4,
			TotalTokens:      len(strings.Fields(prompt)) + len(body)/4,
		},
	}, nil
}

func impactFor(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 45:
		return "medium"
	default:
		return "low"
	}
}
