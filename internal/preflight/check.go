package preflight

import (
	"time"

	"crypto-trading-bot/internal/check"
)

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageImports     Stage = "imports"
	StageEnvironment Stage = "environment"
	StageDirectories Stage = "directories"
	StageDatabase    Stage = "database"
	StageExchanges   Stage = "exchanges"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageImports, StageEnvironment, StageDirectories, StageDatabase, StageExchanges}

// CheckResult is the outcome of one check.
type CheckResult = check.Result

// StageResult is the outcome of a stage and the individual checks it ran.
type StageResult struct {
	Stage Stage `json:"stage"`
	check.Result
	Checks []CheckResult `json:"checks,omitempty"`
}

// Passed reports whether the stage and all its checks passed or were skipped.
func (s StageResult) Passed() bool {
	return s.Result.Passed() && check.AllPassed(s.Checks)
}

// Report is the result of one pipeline run.
type Report struct {
	RunID       string        `json:"run_id"`
	Environment string        `json:"environment,omitempty"`
	TradingMode string        `json:"trading_mode,omitempty"`
	Stages      []StageResult `json:"stages"`
	Warnings    []string      `json:"warnings,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Passed reports whether every recorded stage and check passed. Skips count as passed.
func (r *Report) Passed() bool {
	for _, s := range r.Stages {
		if !s.Passed() {
			return false
		}
	}
	return true
}

// Stage returns the result recorded for stage, if any.
func (r *Report) Stage(stage Stage) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

// Failures returns "stage/check: detail" for every failed check.
func (r *Report) Failures() []string {
	var out []string
	for _, s := range r.Stages {
		failedCheck := false
		for _, c := range s.Checks {
			if !c.Passed() {
				failedCheck = true
				out = append(out, string(s.Stage)+"/"+c.Name+": "+c.Detail)
			}
		}
		if !s.Result.Passed() && !failedCheck {
			out = append(out, string(s.Stage)+": "+s.Detail)
		}
	}
	return out
}

func stageResult(stage Stage, start time.Time, checks []CheckResult, passDetail string) StageResult {
	res := check.Pass(string(stage), passDetail)
	if !check.AllPassed(checks) {
		res = check.Fail(string(stage), "one or more checks failed")
	}
	return StageResult{Stage: stage, Result: res.Timed(start), Checks: checks}
}
