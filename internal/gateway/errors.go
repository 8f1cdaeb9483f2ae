package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/setlist/internal/shared"
)

// HTTPError is a non-2xx response. Its message renders as "{status}-{message}".
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte

	// sessionCleared is set when a 401 on a protected call ended the session.
	sessionCleared bool
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d-%s", e.StatusCode, e.Message)
}

// Is matches [shared.ErrAPIRequest] for every HTTPError and
// [shared.ErrAuthExpired] for a 401 that cleared the session.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrAuthExpired:
		return e.sessionCleared
	}
	return false
}

// SessionCleared reports whether this error logged the user out.
func (e *HTTPError) SessionCleared() bool { return e.sessionCleared }

// NetworkError is returned when no attempt produced a response.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", shared.ErrNetwork, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == shared.ErrNetwork }

// AsHTTPError unwraps err to an [HTTPError].
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func newHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{StatusCode: status, Message: errorMessage(status, body), Body: body}
}

// errorMessage pulls a human message out of an error body. It understands
// {"message": "..."}, {"message": ["a", "b"]}, {"error": "..."} and
// {"detail": "..."}, then falls back to short plain text or the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, raw := range []json.RawMessage{payload.Message, payload.Error, payload.Detail} {
			if msg := flattenMessage(raw); msg != "" {
				return msg
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

func flattenMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Message
	}
	return ""
}
