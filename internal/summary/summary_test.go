package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policypulse/backend/internal/config"
	"policypulse/backend/internal/policy"
	"policypulse/backend/internal/profile"
)

const validReply = `{
  "overallScore": 82,
  "relevantAreas": [{"category":"housing","title":"Public housing","relevanceScore":88.4,"summary":"s","details":"d","actionItems":["a"],"impact":"high"}],
  "majorUpdates": [{"title":"u","description":"d","relevanceToUser":"r","timeline":"2025","impact":"high"}],
  "recommendations": [{"title":"Apply","description":"d","actionSteps":["x"],"priority":"high","category":"housing"}]
}`

func testProfile() profile.UserProfile {
	return profile.UserProfile{
		Age:              profile.IntPtr(34),
		Gender:           "female",
		District:         "sha-tin",
		IncomeRange:      "20k-30k",
		EmploymentStatus: "employed-full-time",
		HousingType:      "public-rental",
		HasChildren:      profile.BoolPtr(true),
		ChildrenAges:     []int{4},
	}
}

func newTestService(provider Provider) *Service {
	return NewService(provider, policy.EmbeddedSource{}, nil, time.Second)
}

func TestParseSummaryStripsFencesAndFillsIDs(t *testing.T) {
	s, err := ParseSummary("Here you go:\n```json\n" + validReply + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 82, s.OverallScore)
	assert.Equal(t, 88, s.RelevantAreas[0].RelevanceScore)
	assert.Equal(t, "update-1", s.MajorUpdates[0].ID)
	assert.Equal(t, "rec-1", s.Recommendations[0].ID)
}

func TestParseSummaryRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{not json}"} {
		_, err := ParseSummary(raw)
		assert.ErrorIs(t, err, ErrInvalidOutput, raw)
	}
}

func TestParseSummaryRejectsFractionalOverallScore(t *testing.T) {
	for _, score := range []string{"69.5", "99.9", "100.2", "69"} {
		raw := strings.Replace(validReply, `"overallScore": 82`, `"overallScore": `+score, 1)
		_, err := ParseSummary(raw)
		assert.ErrorIs(t, err, ErrInvalidOutput, score)
	}

	s, err := ParseSummary(strings.Replace(validReply, `"overallScore": 82`, `"overallScore": 70.0`, 1))
	require.NoError(t, err)
	assert.Equal(t, 70, s.OverallScore)
}

func TestValidate(t *testing.T) {
	base, err := ParseSummary(validReply)
	require.NoError(t, err)
	require.NoError(t, Validate(base))

	low := base
	low.OverallScore = 50
	assert.ErrorIs(t, Validate(low), ErrInvalidOutput)

	high := base
	high.OverallScore = 101
	assert.ErrorIs(t, Validate(high), ErrInvalidOutput)

	noAreas := base
	noAreas.RelevantAreas = nil
	assert.ErrorIs(t, Validate(noAreas), ErrInvalidOutput)

	noRecs := base
	noRecs.Recommendations = nil
	assert.ErrorIs(t, Validate(noRecs), ErrInvalidOutput)
}

func TestSanitizeCleansEveryTextField(t *testing.T) {
	s, err := ParseSummary(validReply)
	require.NoError(t, err)
	s.RelevantAreas[0].Title = `<b>Public</b> housing<script>alert(1)</script>`
	s.RelevantAreas[0].ActionItems = []string{`<a href="javascript:x()">apply</a>`}
	s.MajorUpdates[0].Description = `<img src=x onerror=steal()>update`
	s.Recommendations[0].ActionSteps = []string{"<i>step</i>", "<script>x</script>"}

	out := Sanitize(s)
	assert.Equal(t, "Public housing", out.RelevantAreas[0].Title)
	assert.Equal(t, []string{"apply"}, out.RelevantAreas[0].ActionItems)
	assert.Equal(t, "update", out.MajorUpdates[0].Description)
	assert.Equal(t, []string{"step"}, out.Recommendations[0].ActionSteps)
	assert.Contains(t, s.RelevantAreas[0].Title, "<script>")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{errors.New("openai responses error (429): Rate limit reached"), KindRateLimit},
		{errors.New("dial tcp: lookup api.openai.com: no such host"), KindNetwork},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindNetwork},
		{errors.New("openai responses error (401): Incorrect API key provided"), KindAuth},
		{&ConfigError{Provider: "anthropic", Reason: "provider is not implemented"}, KindAuth},
		{fmt.Errorf("%w: bad", ErrInvalidOutput), KindInvalidOutput},
		{errors.New("something odd"), KindGeneric},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.err), tc.err.Error())
	}
	assert.NotEqual(t, UserMessage(KindRateLimit), UserMessage(KindNetwork))
	assert.NotEqual(t, UserMessage(KindAuth), UserMessage(KindNetwork))
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(context.Background(), config.Config{AIProvider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", provider.Name())

	provider, err = NewProvider(context.Background(), config.Config{
		AIProvider:    "openai",
		OpenAIAPIKey:  "sk-test",
		OpenAIModel:   "gpt-5-mini",
		OpenAIBaseURL: "https://api.openai.com/v1",
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())

	for _, name := range []string{"anthropic", "watson"} {
		_, err := NewProvider(context.Background(), config.Config{AIProvider: name})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr, name)
		assert.Equal(t, name, cfgErr.Provider)
	}

	_, err = NewProvider(context.Background(), config.Config{AIProvider: "openai"})
	assert.Error(t, err)
	_, err = NewProvider(context.Background(), config.Config{AIProvider: "gemini"})
	assert.Error(t, err)
}

func TestServiceGenerateWithMockProvider(t *testing.T) {
	provider := NewMockProvider()
	svc := newTestService(provider)

	s, err := svc.Generate(context.Background(), "session-1", testProfile(), Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.OverallScore, 70)
	assert.LessOrEqual(t, s.OverallScore, 100)
	assert.NotEmpty(t, s.RelevantAreas)
	assert.NotEmpty(t, s.Recommendations)
	assert.Equal(t, "mock", s.AIProvider)
	assert.False(t, s.GeneratedAt.IsZero())
	assert.Equal(t, int64(1), provider.Calls())
}

func TestServiceRejectsOutOfRangeScore(t *testing.T) {
	provider := NewMockProvider()
	provider.Reply = func([]Message) (Response, error) {
		return Response{Content: strings.Replace(validReply, `"overallScore": 82`, `"overallScore": 50`, 1)}, nil
	}
	_, err := newTestService(provider).Generate(context.Background(), "session-1", testProfile(), Options{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindInvalidOutput, genErr.Kind)
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Equal(t, UserMessage(KindInvalidOutput), err.Error())
}

func TestServiceHidesProviderErrorText(t *testing.T) {
	provider := NewMockProvider()
	provider.Reply = func([]Message) (Response, error) {
		return Response{}, errors.New("openai responses error (401): key sk-live-abcdefghijklmnopqrstuvwxyz rejected")
	}
	_, err := newTestService(provider).Generate(context.Background(), "session-1", testProfile(), Options{})
	require.Error(t, err)
	assert.Equal(t, UserMessage(KindAuth), err.Error())
	assert.NotContains(t, err.Error(), "sk-live")
}

func TestServiceAppliesTimeout(t *testing.T) {
	provider := NewMockProvider()
	provider.Reply = func([]Message) (Response, error) {
		time.Sleep(50 * time.Millisecond)
		return Response{}, context.DeadlineExceeded
	}
	svc := NewService(provider, policy.EmbeddedSource{}, nil, 10*time.Millisecond)
	_, err := svc.Generate(context.Background(), "session-1", testProfile(), Options{})
	assert.Equal(t, UserMessage(KindNetwork), err.Error())
}

func TestServiceAnalyzeRecordsProfileID(t *testing.T) {
	analysis, corpus, err := newTestService(NewMockProvider()).Analyze(context.Background(), "session-42", testProfile())
	require.NoError(t, err)
	assert.Equal(t, "session-42", analysis.UserProfileID)
	assert.NotEmpty(t, corpus.Sections)
}

func TestBuildMessagesListsRelevantSections(t *testing.T) {
	corpus, err := policy.DefaultCorpus()
	require.NoError(t, err)
	p := testProfile()
	analysis := policy.AnalyzeForUser("session-1", p, corpus)

	messages := BuildMessages(p, analysis, corpus, Options{DetailLevel: "brief"})
	require.Len(t, messages, 2)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "between 70 and 100")
	assert.Contains(t, messages[1].Content, "- District: sha-tin")
	assert.Regexp(t, sectionLinePattern, messages[1].Content)
}
