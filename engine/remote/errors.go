package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConflict means the target already is in the desired state.
	ErrConflict = errors.New("remote conflict")
	// ErrRateLimited means the remote service asked us to slow down.
	ErrRateLimited = errors.New("remote rate limited")
	// ErrTransient is any other single-operation failure.
	ErrTransient = errors.New("remote operation failed")
)

// Error carries the failing operation and the gateway response.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrTransient
	}
}

var (
	rateLimitSignatures = []string{"rate-overlimit", "rate limit", "too many requests", "429"}
	conflictSignatures  = []string{"409", "already", "sudah ada"}
)

// IsRateLimit reports whether err signals throttling. A gateway *Error is
// classified by its status only; message text is checked for untyped errors.
func IsRateLimit(err error) bool {
	return classify(err, ErrRateLimited, rateLimitSignatures)
}

// IsConflict reports whether err means the target is already present. A
// gateway *Error is classified by its status only.
func IsConflict(err error) bool {
	return classify(err, ErrConflict, conflictSignatures)
}

func classify(err, kind error, signatures []string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kind) {
		return true
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return false
	}
	return containsAny(err.Error(), signatures)
}

func containsAny(msg string, needles []string) bool {
	msg = strings.ToLower(msg)
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
