package summary

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *Usage
}

type RelevantArea struct {
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	RelevanceScore int      `json:"relevanceScore"`
	Summary        string   `json:"summary"`
	Details        string   `json:"details"`
	ActionItems    []string `json:"actionItems"`
	Impact         string   `json:"impact"`
}

type MajorUpdate struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	RelevanceToUser string `json:"relevanceToUser"`
	Timeline        string `json:"timeline"`
	Impact          string `json:"impact"`
}

type Recommendation struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ActionSteps []string `json:"actionSteps"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
}

// PersonalizedSummary is the validated payload stored on a session and
// consumed by the report renderers.
type PersonalizedSummary struct {
	OverallScore     int              `json:"overallScore"`
	RelevantAreas    []RelevantArea   `json:"relevantAreas"`
	MajorUpdates     []MajorUpdate    `json:"majorUpdates"`
	Recommendations  []Recommendation `json:"recommendations"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	AIProvider       string           `json:"aiProvider,omitempty"`
	ProcessingTimeMs int64            `json:"processingTimeMs,omitempty"`
}

type Options struct {
	// Language of the generated text; defaults to English.
	Language string
	// DetailLevel is brief, standard or detailed.
	DetailLevel string
}
