package actions

import (
	"errors"
	"fmt"
	"math"
	"time"

	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/sanitize"
	"policypulse/backend/internal/summary"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindRateLimited Kind = "rate_limited"
	KindCSRF        Kind = "csrf"
	KindSession     Kind = "session"
	KindAI          Kind = "ai"
	KindOutput      Kind = "output"
	KindInternal    Kind = "internal"
)

const (
	msgMissingFields  = "Missing required fields"
	msgInvalidToken   = "Invalid token"
	msgInvalidSession = "Invalid session"
	msgExpired        = "Your session has expired. Please start the assessment again."
	msgIncomplete     = "Please complete all required steps before continuing."
	msgInternal       = "Something went wrong. Please try again."
)

// Error is the only failure shape an action returns. Message is always safe
// to show to the user.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string { return e.Message }

// RetryAfterSeconds rounds the hint up to whole seconds.
func (e *Error) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// Redirect is the navigation signal of a successful action. It is a result,
// not a failure.
type Redirect struct {
	Location string
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: sanitize.ErrorMessage(message)}
}

func rateLimited(retryAfter time.Duration) *Error {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	message := fmt.Sprintf("Too many requests. Please try again in %d seconds.", seconds)
	if seconds >= 120 {
		message = fmt.Sprintf("Too many requests. Please try again in %d minutes.", int(math.Ceil(float64(seconds)/60)))
	}
	return &Error{Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}

func validationError(err error) *Error {
	if errors.Is(err, profile.ErrUnknownStep) {
		return newError(KindValidation, "Invalid form step")
	}
	var vErr *profile.ValidationError
	if errors.As(err, &vErr) {
		return newError(KindValidation, vErr.Error())
	}
	return newError(KindValidation, "Invalid form data")
}

func generationError(err error) *Error {
	var genErr *summary.GenerationError
	if errors.As(err, &genErr) {
		if genErr.Kind == summary.KindInvalidOutput {
			return &Error{Kind: KindOutput, Message: genErr.Error()}
		}
		return &Error{Kind: KindAI, Message: genErr.Error()}
	}
	return &Error{Kind: KindAI, Message: summary.UserMessage(summary.KindGeneric)}
}
