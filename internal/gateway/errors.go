package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/comigor/meditranslate-go/internal/llm"
)

// Kind classifies a failed remote call.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// Error is returned by every gateway operation that could not produce a result.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classify(op string, err error) error {
	kind := KindOther
	switch llm.StatusCode(err) {
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of a gateway error, and false for any other error.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return KindOther, false
}

// UserMessage renders err the way it is shown inline in the conversation.
func UserMessage(err error) string {
	var ge *Error
	if !errors.As(err, &ge) {
		return fmt.Sprintf("AI Error: %v", err)
	}
	switch ge.Kind {
	case KindRateLimited:
		return "⚠️ Quota Exceeded/Rate Limited. Please wait a few seconds and try again. AI is currently busy."
	case KindNotFound:
		return "⚠️ Model not found. Please check API settings."
	default:
		return fmt.Sprintf("AI Error: %v", ge.Err)
	}
}
