package summary

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"policypulse/backend/internal/logger"
	"policypulse/backend/internal/policy"
	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/sanitize"
)

// Service runs the pipeline: relevance analysis, prompt, provider call,
// parse, validate, sanitize. It holds no per-session state.
type Service struct {
	provider Provider
	corpus   policy.Source
	log      *logger.Logger
	timeout  time.Duration
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(provider Provider, corpus policy.Source, log *logger.Logger, timeout time.Duration) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		provider: provider,
		corpus:   corpus,
		log:      log.With("service", "SummaryService"),
		timeout:  timeout,
		tracer:   otel.Tracer("policypulse/summary"),
		now:      time.Now,
	}
}

func (s *Service) Provider() Provider {
	return s.provider
}

// Analyze runs only the relevance step.
func (s *Service) Analyze(ctx context.Context, profileID string, p profile.UserProfile) (policy.Analysis, policy.Corpus, error) {
	corpus, err := s.corpus.Load(ctx)
	if err != nil {
		return policy.Analysis{}, policy.Corpus{}, fmt.Errorf("load policy corpus: %w", err)
	}
	return policy.AnalyzeForUser(profileID, p, corpus), corpus, nil
}

// Generate produces a validated, sanitized summary for the profile p stored
// under profileID. Every failure is returned as a *GenerationError whose
// message is safe to show to users.
func (s *Service) Generate(ctx context.Context, profileID string, p profile.UserProfile, opts Options) (PersonalizedSummary, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "summary.generate", trace.WithAttributes(
		attribute.String("ai.provider", s.provider.Name()),
		attribute.String("ai.model", s.provider.Model()),
	))
	defer span.End()

	fail := func(kind ErrorKind, err error) (PersonalizedSummary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		s.log.Warn("summary generation failed",
			"profile_id", profileID,
			"provider", s.provider.Name(),
			"kind", string(kind),
			"error", sanitize.ErrorMessage(err.Error()),
		)
		return PersonalizedSummary{}, &GenerationError{Kind: kind, Err: err}
	}

	analysis, corpus, err := s.Analyze(ctx, profileID, p)
	if err != nil {
		return fail(KindGeneric, err)
	}
	span.SetAttributes(
		attribute.Int("policy.relevant_sections", len(analysis.RelevantSections)),
		attribute.Int("policy.overall_score", analysis.OverallScore),
	)

	messages := BuildMessages(p, analysis, corpus, opts)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.provider.GenerateResponse(callCtx, messages)
	if err != nil {
		if callCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", callCtx.Err(), err)
		}
		return fail(Classify(err), err)
	}
	if resp.Usage != nil {
		span.SetAttributes(attribute.Int("ai.total_tokens", resp.Usage.TotalTokens))
	}

	parsed, err := ParseSummary(resp.Content)
	if err != nil {
		return fail(KindInvalidOutput, err)
	}
	if err := Validate(parsed); err != nil {
		return fail(KindInvalidOutput, err)
	}
	cleaned := Sanitize(parsed)
	if err := Validate(cleaned); err != nil {
		return fail(KindInvalidOutput, err)
	}

	cleaned.GeneratedAt = s.now().UTC()
	cleaned.AIProvider = s.provider.Name()
	cleaned.ProcessingTimeMs = s.now().Sub(started).Milliseconds()

	s.log.Info("summary generated",
		"profile_id", analysis.UserProfileID,
		"provider", s.provider.Name(),
		"model", resp.Model,
		"overall_score", cleaned.OverallScore,
		"duration_ms", cleaned.ProcessingTimeMs,
	)
	return cleaned, nil
}
