// Package check defines the outcome of a single preflight check. It is shared by the
// probes and the pipeline so that neither depends on the other.
package check

import (
	"fmt"
	"time"
)

// Status represents the result of a preflight check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusFail indicates the check failed.
	StatusFail
	// StatusSkip indicates the check was not applicable. Skips do not fail a run.
	StatusSkip
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusSkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status in lower case for JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusPass:
		return []byte("pass"), nil
	case StatusFail:
		return []byte("fail"), nil
	case StatusSkip:
		return []byte("skip"), nil
	default:
		return nil, fmt.Errorf("unknown check status %d", int(s))
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Passed reports whether the check passed or was skipped.
func (r Result) Passed() bool {
	return r.Status != StatusFail
}

// Pass builds a passing result.
func Pass(name, detail string) Result {
	return Result{Name: name, Status: StatusPass, Detail: detail}
}

// Fail builds a failing result.
func Fail(name, detail string) Result {
	return Result{Name: name, Status: StatusFail, Detail: detail}
}

// Skip builds a skipped result.
func Skip(name, detail string) Result {
	return Result{Name: name, Status: StatusSkip, Detail: detail}
}

// Timed sets Duration to the time elapsed since start.
func (r Result) Timed(start time.Time) Result {
	r.Duration = time.Since(start)
	return r
}

// AllPassed reports whether every result passed or was skipped.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}
