// Package errors defines the error taxonomy shared by the preflight packages.
//
// Every failure carries a Kind so callers can branch with errors.Is against the
// exported sentinels:
//
//	if errors.Is(err, apperrors.ErrConfigurationInvalid) { ... }
//
// Field-level and cross-field configuration kinds are fatal to a preflight run.
// Bootstrap and probe kinds are recorded in the report and never abort it.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a preflight error.
type Kind string

const (
	KindInvalidConfigValue      Kind = "INVALID_CONFIG_VALUE"
	KindConfigurationInvalid    Kind = "CONFIGURATION_INVALID"
	KindBootstrapFailure        Kind = "BOOTSTRAP_FAILURE"
	KindInvalidConnectionString Kind = "INVALID_CONNECTION_STRING"
	KindProbeTimeout            Kind = "PROBE_TIMEOUT"
	KindProbeFailure            Kind = "PROBE_FAILURE"
	KindUnknownExchange         Kind = "UNKNOWN_EXCHANGE"
)

// Fatal reports whether errors of this kind stop a preflight run.
func (k Kind) Fatal() bool {
	switch k {
	case KindInvalidConfigValue, KindConfigurationInvalid, KindUnknownExchange:
		return true
	default:
		return false
	}
}

// Error is the structured error type used across the preflight packages.
type Error struct {
	Kind Kind

	// Field names the environment variable or input that was rejected, if any.
	Field string

	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidConfigValue      = &Error{Kind: KindInvalidConfigValue}
	ErrConfigurationInvalid    = &Error{Kind: KindConfigurationInvalid}
	ErrBootstrapFailure        = &Error{Kind: KindBootstrapFailure}
	ErrInvalidConnectionString = &Error{Kind: KindInvalidConnectionString}
	ErrProbeTimeout            = &Error{Kind: KindProbeTimeout}
	ErrProbeFailure            = &Error{Kind: KindProbeFailure}
	ErrUnknownExchange         = &Error{Kind: KindUnknownExchange}
)

// New creates an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// InvalidConfigValue reports a malformed single field.
func InvalidConfigValue(field, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidConfigValue,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ConfigurationInvalid reports blocking cross-field validation failures.
func ConfigurationInvalid(problems []string) *Error {
	return &Error{
		Kind:    KindConfigurationInvalid,
		Message: strings.Join(problems, "; "),
	}
}

// UnknownExchange reports an exchange identifier outside the known set.
func UnknownExchange(id string) *Error {
	return &Error{
		Kind:    KindUnknownExchange,
		Field:   id,
		Message: fmt.Sprintf("unknown exchange %q", id),
	}
}

// KindOf extracts the Kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf extracts the rejected field name, or "" when err carries none.
func FieldOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Field
	}
	return ""
}
