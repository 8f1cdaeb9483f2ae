// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const redactedToken = "[REDACTED_TOKEN]"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ConfigureLogger applies a level name from config ("debug", "info", ...).
//
// Unknown names leave the level unchanged and are reported as a warning.
func ConfigureLogger(l *log.Logger, level string) {
	if level == "" {
		return
	}
	ll, err := log.ParseLevel(level)
	if err != nil {
		l.Warn("unknown log level", "level", level)
		return
	}
	SetLogLevel(l, ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// RedactToken hides a bearer credential for logs, keeping a short prefix so
// two tokens can still be told apart.
func RedactToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 12 {
		return redactedToken
	}
	return token[:6] + "..." + redactedToken
}
