package provider

import (
	"errors"
	"fmt"
	"time"
)

// TransportError covers network failures and per-call timeouts. Transient:
// callers retry it under their retry policy.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response that does not match the expected
// structured shape. Callers retry with a stricter follow-up instruction.
type MalformedResponseError struct {
	Backend string
	Reason  string
	Raw     string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Backend, e.Reason)
}

// RateLimitError reports upstream rate limiting. Transient.
type RateLimitError struct {
	Backend    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Backend, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Backend)
}

// IsRetryable reports whether err is a transient failure (transport or rate
// limit). Malformed responses are handled separately because the retry
// carries a stricter instruction.
func IsRetryable(err error) bool {
	var te *TransportError
	var re *RateLimitError
	return errors.As(err, &te) || errors.As(err, &re)
}

// IsMalformed reports whether err is a malformed-response failure.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
