package llm

import (
	"context"
	"fmt"
	"time"
)

// Generation parameters are fixed: a low temperature favors deterministic,
// parseable output, and the token cap bounds response size and cost.
const (
	Temperature     = 0.2
	MaxOutputTokens = 1024

	// RequestTimeout bounds a single upstream call. The upstream is the only
	// suspension point in the request pipeline and must not block indefinitely.
	RequestTimeout = 30 * time.Second
)

// Generator produces the raw text returned by a generative model for a prompt.
// Implementations perform exactly one upstream attempt per call; retrying is
// the caller's concern.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Kind classifies a failed upstream call.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTimeout       Kind = "timeout"
	KindRateLimited   Kind = "rate_limited"
	KindAccessDenied  Kind = "access_denied"
	KindBadRequest    Kind = "bad_request"
	KindUnavailable   Kind = "unavailable"
)

// Error describes why an upstream call failed. Status carries the upstream
// HTTP status when one was received, 0 otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
}

// Code returns the machine code exposed to API clients.
func (e *Error) Code() string {
	switch e.Kind {
	case KindConfiguration:
		return "CONFIGURATION"
	case KindTimeout:
		return "GEMINI_TIMEOUT"
	default:
		if e.Status != 0 {
			return fmt.Sprintf("GEMINI_%d", e.Status)
		}
		return "GEMINI_UNAVAILABLE"
	}
}

// classifyStatus maps a non-2xx upstream status to an Error.
func classifyStatus(status int, message string) *Error {
	kind := KindUnavailable
	switch status {
	case 429:
		kind = KindRateLimited
	case 403:
		kind = KindAccessDenied
	case 400:
		kind = KindBadRequest
	}
	return &Error{Kind: kind, Status: status, Message: message}
}
