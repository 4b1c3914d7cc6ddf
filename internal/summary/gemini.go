package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"policypulse/backend/internal/config"
)

// GeminiProvider generates summaries through the Gemini API.
type GeminiProvider struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

func NewGeminiProvider(ctx context.Context, cfg config.Config) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	maxTokens := cfg.AIMaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2400
	}
	return &GeminiProvider{
		client:          client,
		model:           model,
		maxOutputTokens: int32(maxTokens),
	}, nil
}

func (g *GeminiProvider) Name() string  { return "gemini" }
func (g *GeminiProvider) Model() string { return g.model }

func (g *GeminiProvider) ValidateConfig() bool {
	return g.client != nil && g.model != ""
}

func (g *GeminiProvider) GenerateResponse(ctx context.Context, messages []Message) (Response, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, msg := range messages {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		switch msg.Role {
		case RoleSystem:
			system = append(system, text)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return Response{}, errors.New("AI request input is empty")
	}

	generateConfig := &genai.GenerateContentConfig{
		MaxOutputTokens:  g.maxOutputTokens,
		Temperature:      genai.Ptr[float32](0.3),
		ResponseMIMEType: "application/json",
	}
	if len(system) > 0 {
		generateConfig.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, generateConfig)
	if err != nil {
		return Response{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return Response{}, errors.New("gemini response answer is empty")
	}

	resp := Response{
		Content:      text,
		Model:        g.model,
		FinishReason: "stop",
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
		resp.FinishReason = strings.ToLower(string(result.Candidates[0].FinishReason))
	}
	if meta := result.UsageMetadata; meta != nil {
		resp.Usage = &Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return resp, nil
}
