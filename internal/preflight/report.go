package preflight

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"crypto-trading-bot/internal/check"
)

// PrintReport writes the itemized report. Verbose also lists passing checks outside
// the exchanges stage.
func PrintReport(w io.Writer, r *Report, verbose bool) {
	_, _ = fmt.Fprintln(w, "Trading Bot Preflight")
	_, _ = fmt.Fprintln(w, "=====================")
	_, _ = fmt.Fprintf(w, "Run: %s  environment=%s  trading_mode=%s\n\n", r.RunID, r.Environment, r.TradingMode)

	for _, s := range r.Stages {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s (%s)\n", s.Status, s.Stage, s.Detail, s.Duration.Round(time.Millisecond))
		for _, c := range s.Checks {
			// exchange results are always itemized
			if c.Status == check.StatusPass && !verbose && s.Stage != StageExchanges {
				continue
			}
			_, _ = fmt.Fprintf(w, "      [%s] %s: %s\n", c.Status, c.Name, c.Detail)
		}
	}
	_, _ = fmt.Fprintln(w)

	status := "PASSED"
	if !r.Passed() {
		status = "FAILED"
	}
	_, _ = fmt.Fprintf(w, "Status: %s\n", status)

	if failures := r.Failures(); len(failures) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%d error(s):\n", len(failures))
		for _, f := range failures {
			_, _ = fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(r.Warnings) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%d warning(s):\n", len(r.Warnings))
		for _, warn := range r.Warnings {
			_, _ = fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*Report
		Passed bool `json:"passed"`
	}{r, r.Passed()})
}

// String returns the report as PrintReport writes it in non-verbose mode.
func (r *Report) String() string {
	var b strings.Builder
	PrintReport(&b, r, false)
	return b.String()
}
