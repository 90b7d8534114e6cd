package diagnostics

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Router is the Manager-overrideable diagnostic surface described in
// spec.md §6. Integrators supply their own Router (e.g. to forward
// output-updated notifications to an IDE); NewLogRouter wires the defaults
// spec.md prescribes.
type Router interface {
	AddMessage(input string, m Message)
	ClearMessages(input string)
	OutputUpdated(outputs []string)
}

// LogRouter is the default Router: it formats messages per spec.md §6 and
// logs them through a zerolog.Logger, and treats ClearMessages/OutputUpdated
// as no-ops (integrators override for IDE refresh, etc).
type LogRouter struct {
	Logger zerolog.Logger
}

// NewLogRouter returns a LogRouter writing through logger. A zero-value
// zerolog.Logger is a valid no-op sink, so NewLogRouter(zerolog.Nop()) is
// the safe default for a Manager constructed without explicit logging.
func NewLogRouter(logger zerolog.Logger) *LogRouter {
	return &LogRouter{Logger: logger}
}

// AddMessage implements Router using the format mandated by spec.md §6:
//
//	<absolute-path>[<line>[:<col>]]: <text-or-cause-or-"(unknown issue)">
func (r *LogRouter) AddMessage(input string, m Message) {
	text := formatMessage(input, m)
	switch m.Severity {
	case SeverityError:
		r.Logger.Error().Msg(text)
	case SeverityWarning:
		r.Logger.Warn().Msg(text)
	default:
		r.Logger.Debug().Msg(text)
	}
}

// ClearMessages is a no-op default; overriding Routers may use it to clear
// an IDE problem list.
func (r *LogRouter) ClearMessages(input string) {}

// OutputUpdated is a no-op default; overriding Routers may use it to notify
// an IDE that files changed on disk.
func (r *LogRouter) OutputUpdated(outputs []string) {}

func formatMessage(input string, m Message) string {
	var sb strings.Builder
	sb.WriteString(input)
	if m.Line > 0 {
		sb.WriteString(" [")
		fmt.Fprintf(&sb, "%d", m.Line)
		if m.Column > 0 {
			sb.WriteByte(':')
			fmt.Fprintf(&sb, "%d", m.Column)
		}
		sb.WriteByte(']')
	}
	sb.WriteString(": ")
	text := m.Text
	if text == "" {
		text = m.Cause
	}
	if text == "" {
		text = "(unknown issue)"
	}
	sb.WriteString(text)
	return sb.String()
}
