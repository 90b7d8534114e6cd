package incrementum

import "incrementum/internal/diagnostics"

// Severity classifies a diagnostic Message.
type Severity = diagnostics.Severity

const (
	SeverityWarning = diagnostics.SeverityWarning
	SeverityError   = diagnostics.SeverityError
)

// Message is a diagnostic attached to one input (spec.md §3).
type Message = diagnostics.Message

// Router is the Manager-overrideable diagnostic surface (spec.md §6).
type Router = diagnostics.Router
