package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used throughout invgrid
var (
	ErrRowNotFound     = errors.New("row not found")
	ErrNoSelection     = errors.New("no rows selected")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoData          = errors.New("no data loaded")
)

// InvgridError is a structured error with context and suggestions
type InvgridError struct {
	Title       string   // Short error title
	Message     string   // Detailed message
	Context     string   // What was being attempted
	Causes      []string // Possible causes
	Suggestions []string // Actionable suggestions with commands
	Err         error    // Wrapped error
}

func (e *InvgridError) Error() string {
	return e.Title
}

func (e *InvgridError) Unwrap() error {
	return e.Err
}

// Format returns a nicely formatted error message
func (e *InvgridError) Format() string {
	var sb strings.Builder

	// Title
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Title))

	// Context/message
	if e.Message != "" {
		sb.WriteString(fmt.Sprintf("\n  %s\n", e.Message))
	}
	if e.Context != "" {
		sb.WriteString(fmt.Sprintf("\n  %s\n", e.Context))
	}

	// Causes
	if len(e.Causes) > 0 {
		sb.WriteString("\n  Possible causes:\n")
		for _, cause := range e.Causes {
			sb.WriteString(fmt.Sprintf("    • %s\n", cause))
		}
	}

	// Suggestions
	if len(e.Suggestions) > 0 {
		sb.WriteString("\n  Try:\n")
		for _, sug := range e.Suggestions {
			sb.WriteString(fmt.Sprintf("    $ %s\n", sug))
		}
	}

	return sb.String()
}

// NewError creates a new InvgridError
func NewError(title string) *InvgridError {
	return &InvgridError{Title: title}
}

// WithMessage adds a detailed message
func (e *InvgridError) WithMessage(msg string) *InvgridError {
	e.Message = msg
	return e
}

// WithContext adds context about what was being attempted
func (e *InvgridError) WithContext(ctx string) *InvgridError {
	e.Context = ctx
	return e
}

// WithCause adds a possible cause
func (e *InvgridError) WithCause(cause string) *InvgridError {
	e.Causes = append(e.Causes, cause)
	return e
}

// WithCauses adds multiple possible causes
func (e *InvgridError) WithCauses(causes ...string) *InvgridError {
	e.Causes = append(e.Causes, causes...)
	return e
}

// WithSuggestion adds an actionable suggestion
func (e *InvgridError) WithSuggestion(sug string) *InvgridError {
	e.Suggestions = append(e.Suggestions, sug)
	return e
}

// WithSuggestions adds multiple suggestions
func (e *InvgridError) WithSuggestions(sugs ...string) *InvgridError {
	e.Suggestions = append(e.Suggestions, sugs...)
	return e
}

// Wrap wraps an underlying error
func (e *InvgridError) Wrap(err error) *InvgridError {
	e.Err = err
	return e
}

// ══════════════════════════════════════════════════════════════════════════
// Pre-built error constructors for common cases
// ══════════════════════════════════════════════════════════════════════════

// ConnectionError returns a structured error for an unreachable backend
func ConnectionError(url string, err error) *InvgridError {
	return NewError("Cannot reach the invoice server").
		WithContext(url).
		WithCauses(
			"The server is not running",
			"api.base_url points at the wrong host or port",
			"Network connectivity issues",
		).
		WithSuggestions(
			"invgrid config api.base_url            # Show the configured URL",
			"invgrid config api.base_url <url>      # Point at another server",
			"invgrid --api-url <url> list           # Override for one command",
		).
		Wrap(err)
}

// ServerRejectedError returns a structured error for a request the server refused
func ServerRejectedError(action, message string, err error) *InvgridError {
	e := NewError(fmt.Sprintf("Server rejected %s", action)).Wrap(err)
	if message != "" {
		e.WithMessage(message)
	}
	return e
}

// ConfigError returns a structured error for an unreadable config file
func ConfigError(path string, err error) *InvgridError {
	return NewError("Cannot load configuration").
		WithContext(path).
		WithCauses("The file is not valid TOML", "A value has the wrong type").
		WithSuggestions(
			"invgrid config --list                  # Show all keys and values",
		).
		Wrap(err)
}

// RowNotFoundError returns a structured error for an unknown row id
func RowNotFoundError(id string) *InvgridError {
	return NewError(fmt.Sprintf("Invoice line '%s' not found", id)).
		WithCauses(
			"The id is incorrect",
			"The line was deleted by someone else",
		).
		WithSuggestions(
			"invgrid list                           # List invoice lines",
		).
		Wrap(ErrRowNotFound)
}

// InvalidArgumentError returns an error for a malformed argument
func InvalidArgumentError(arg, reason string) *InvgridError {
	return NewError(fmt.Sprintf("Invalid argument '%s'", arg)).
		WithMessage(reason).
		Wrap(ErrInvalidArgument)
}

// MissingArgumentError returns an error for missing required argument
func MissingArgumentError(argName, example string) *InvgridError {
	e := NewError(fmt.Sprintf("Missing required argument: <%s>", argName))
	if example != "" {
		e.WithSuggestion(example)
	}
	return e
}

// ActionFailedError is returned by one-shot commands whose operation ended
// without success. The details were already shown as notifications.
func ActionFailedError(action string) *InvgridError {
	return NewError(fmt.Sprintf("%s did not complete", action))
}
