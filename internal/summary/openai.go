package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"policypulse/backend/internal/config"
)

const (
	minOpenAIOutputTokens = 256
	maxOpenAIOutputTokens = 8000
)

// OpenAIProvider talks to the OpenAI Responses API over plain HTTP.
type OpenAIProvider struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewOpenAIProvider(cfg config.Config) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		httpClient: &http.Client{
			Timeout: cfg.AITimeout(),
		},
	}
}

func (c *OpenAIProvider) Name() string  { return "openai" }
func (c *OpenAIProvider) Model() string { return c.model }

func (c *OpenAIProvider) ValidateConfig() bool {
	return c.apiKey != "" && c.baseURL != "" && c.model != ""
}

type responsesInputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesInputBlock struct {
	Role    string               `json:"role"`
	Content []responsesInputText `json:"content"`
}

func (c *OpenAIProvider) GenerateResponse(ctx context.Context, messages []Message) (Response, error) {
	if c.apiKey == "" {
		return Response{}, errors.New("OPENAI_API_KEY is not configured")
	}
	if c.baseURL == "" {
		return Response{}, errors.New("OPENAI_BASE_URL is not configured")
	}
	if c.model == "" {
		return Response{}, errors.New("OPENAI_MODEL is not configured")
	}

	input := buildResponsesInput(messages)
	if len(input) == 0 {
		return Response{}, errors.New("AI request input is empty")
	}

	maxTokens := c.maxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2400
	}
	if maxTokens < minOpenAIOutputTokens {
		maxTokens = minOpenAIOutputTokens
	}

	// One extra attempt on a 5xx, and one with a doubled budget when the
	// model stopped at max_output_tokens.
	var (
		statusCode   int
		responseBody []byte
		parsed       map[string]any
		serverRetry  bool
		budgetRetry  bool
	)
	for {
		var err error
		statusCode, responseBody, err = c.callResponses(ctx, input, maxTokens)
		if err != nil {
			return Response{}, err
		}
		if statusCode >= 500 && !serverRetry {
			serverRetry = true
			continue
		}
		if statusCode < 200 || statusCode >= 300 {
			return Response{}, fmt.Errorf("openai responses error (%d): %s", statusCode, strings.TrimSpace(string(responseBody)))
		}
		parsed = parseJSONStringMap(responseBody)
		if extractResponseAnswer(parsed) == "" && isMaxOutputTokenIncomplete(parsed) && !budgetRetry && maxTokens < maxOpenAIOutputTokens {
			budgetRetry = true
			maxTokens *= 2
			if maxTokens > maxOpenAIOutputTokens {
				maxTokens = maxOpenAIOutputTokens
			}
			continue
		}
		break
	}

	answer := extractResponseAnswer(parsed)
	if answer == "" {
		if isMaxOutputTokenIncomplete(parsed) {
			return Response{}, errors.New("openai response incomplete due max_output_tokens")
		}
		return Response{}, errors.New("openai response answer is empty")
	}

	usageMap, _ := parsed["usage"].(map[string]any)
	usage := &Usage{
		PromptTokens:     int(extractNumberFromMap(usageMap, "input_tokens", "prompt_tokens")),
		CompletionTokens: int(extractNumberFromMap(usageMap, "output_tokens", "completion_tokens")),
		TotalTokens:      int(extractNumberFromMap(usageMap, "total_tokens")),
	}
	if usage.TotalTokens <= 0 {
		usage = nil
	}

	modelName := strings.TrimSpace(toString(parsed["model"]))
	if modelName == "" {
		modelName = c.model
	}
	finish := strings.TrimSpace(toString(parsed["status"]))
	if finish == "" || finish == "completed" {
		finish = "stop"
	}

	return Response{
		Content:      answer,
		Model:        modelName,
		FinishReason: finish,
		Usage:        usage,
	}, nil
}

func (c *OpenAIProvider) callResponses(ctx context.Context, input []responsesInputBlock, maxTokens int) (int, []byte, error) {
	payload := map[string]any{
		"model":             c.model,
		"input":             input,
		"max_output_tokens": maxTokens,
		"reasoning": map[string]any{
			"effort": "low",
		},
		"text": map[string]any{
			"verbosity": "low",
			"format": map[string]any{
				"type": "json_object",
			},
		},
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/responses",
		bytes.NewReader(bodyRaw),
	)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, responseBody, nil
}

func buildResponsesInput(messages []Message) []responsesInputBlock {
	input := make([]responsesInputBlock, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		contentType := "input_text"
		switch role {
		case RoleSystem, RoleUser:
		case RoleAssistant:
			contentType = "output_text"
		default:
			continue
		}
		input = append(input, responsesInputBlock{
			Role:    role,
			Content: []responsesInputText{{Type: contentType, Text: content}},
		})
	}
	return input
}

func extractResponseAnswer(data map[string]any) string {
	direct := strings.TrimSpace(toString(data["output_text"]))
	if direct != "" {
		return direct
	}

	outputs, ok := data["output"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range outputs {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		contentList, ok := block["content"].([]any)
		if !ok {
			continue
		}
		for _, contentItem := range contentList {
			contentMap, ok := contentItem.(map[string]any)
			if !ok {
				continue
			}
			contentType := strings.ToLower(strings.TrimSpace(toString(contentMap["type"])))
			if contentType != "output_text" && contentType != "text" {
				continue
			}
			if text := strings.TrimSpace(toString(contentMap["text"])); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func isMaxOutputTokenIncomplete(parsed map[string]any) bool {
	if parsed == nil {
		return false
	}
	details, ok := parsed["incomplete_details"].(map[string]any)
	if !ok {
		return false
	}
	reason := strings.ToLower(strings.TrimSpace(toString(details["reason"])))
	return reason == "max_output_tokens"
}

func parseJSONStringMap(input []byte) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(input, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}

func extractNumberFromMap(data map[string]any, keys ...string) float64 {
	if data == nil {
		return 0
	}
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
