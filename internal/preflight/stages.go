package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/check"
	"crypto-trading-bot/internal/exchange"
	"crypto-trading-bot/internal/logging"

	"golang.org/x/sync/errgroup"
)

// runImports confirms the binary links every required module.
func (p *Pipeline) runImports(ctx context.Context) StageResult {
	start := time.Now()
	log := logging.StageContext(ctx, string(StageImports))

	info, ok := p.buildInfo()
	if !ok || info == nil {
		log.Warn("Build info unavailable, skipping module check")
		res := check.Skip(string(StageImports), "build info unavailable").Timed(start)
		return StageResult{Stage: StageImports, Result: res}
	}

	linked := make(map[string]string, len(info.Deps))
	for _, dep := range info.Deps {
		mod := dep
		if dep.Replace != nil {
			mod = dep.Replace
		}
		linked[dep.Path] = mod.Version
	}

	checks := make([]CheckResult, 0, len(p.requiredModules))
	for _, path := range p.requiredModules {
		if version, ok := linked[path]; ok {
			checks = append(checks, check.Pass(path, version))
			continue
		}
		log.Error("Required module not linked", "module", path)
		checks = append(checks, check.Fail(path, "module not linked into binary"))
	}

	return stageResult(StageImports, start, checks, fmt.Sprintf("%d modules linked", len(checks)))
}

// runEnvironment applies the cross-field rules. A non-nil error means the run must stop.
func (p *Pipeline) runEnvironment(ctx context.Context, cfg *config.Config, report *Report) (StageResult, error) {
	start := time.Now()
	log := logging.StageContext(ctx, string(StageEnvironment))
	outcome := config.Validate(cfg)
	log.Debug("Configuration loaded", "summary", cfg.Summary())

	for _, w := range outcome.Warnings {
		log.Warn(w)
		report.Warnings = append(report.Warnings, w)
	}

	allowMissing := p.allowMissing && cfg.TradingMode == config.ModePaper
	checks := []CheckResult{
		check.Pass("mode", fmt.Sprintf("environment=%s trading_mode=%s", cfg.Environment, cfg.TradingMode)),
	}
	for _, id := range cfg.ActiveExchanges() {
		name := "credentials:" + string(id)
		switch {
		case config.HasCredentials(cfg, id):
			checks = append(checks, check.Pass(name, "set"))
		case allowMissing:
			msg := config.MissingCredentialsMessage(id)
			log.Warn(msg)
			report.Warnings = append(report.Warnings, msg)
			checks = append(checks, check.Skip(name, "not set"))
		default:
			checks = append(checks, check.Fail(name, config.MissingCredentialsMessage(id)))
		}
	}

	stage := stageResult(StageEnvironment, start, checks, "configuration valid")
	if outcome.OK() || allowMissing {
		log.Info("Configuration valid", "credentialed_exchanges", joinOrNone(credentialNames(cfg)))
		return stage, nil
	}
	for _, e := range outcome.BlockingErrors {
		log.Error(e)
	}
	return stage, outcome.Err()
}

// runDirectories creates the working directories and confirms each is writable.
func (p *Pipeline) runDirectories(ctx context.Context, cfg *config.Config) StageResult {
	start := time.Now()
	log := logging.StageContext(ctx, string(StageDirectories))

	dirs := append([]string(nil), p.directories...)
	if cfg.Logging.FilePath != "" {
		dirs = append(dirs, filepath.Dir(cfg.Logging.FilePath))
	}

	seen := make(map[string]bool, len(dirs))
	checks := make([]CheckResult, 0, len(dirs))
	for _, dir := range dirs {
		path := dir
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.root, path)
		}
		path = filepath.Clean(path)
		if seen[path] {
			continue
		}
		seen[path] = true

		res := ensureDirectory(dir, path)
		if res.Passed() {
			log.Debug("Directory ready", "path", path, "detail", res.Detail)
		} else {
			log.Error("Directory not usable", "path", path, "error", res.Detail)
		}
		checks = append(checks, res)
	}

	return stageResult(StageDirectories, start, checks, fmt.Sprintf("%d directories ready", len(checks)))
}

func ensureDirectory(name, path string) CheckResult {
	start := time.Now()
	state := "exists"
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return check.Fail(name, fmt.Sprintf("cannot create: %v", err)).Timed(start)
		}
		state = "created"
	case err != nil:
		return check.Fail(name, fmt.Sprintf("cannot stat: %v", err)).Timed(start)
	case !info.IsDir():
		return check.Fail(name, "path exists and is not a directory").Timed(start)
	}

	f, err := os.CreateTemp(path, ".preflight-*")
	if err != nil {
		return check.Fail(name, fmt.Sprintf("not writable: %v", err)).Timed(start)
	}
	f.Close()
	os.Remove(f.Name())

	return check.Pass(name, state).Timed(start)
}

// runDatabase bootstraps PostgreSQL and pings Redis. Failures are recorded only.
func (p *Pipeline) runDatabase(ctx context.Context, cfg *config.Config, report *Report) StageResult {
	start := time.Now()
	log := logging.StageContext(ctx, string(StageDatabase))

	res := p.bootstrapper.EnsureDatabase(ctx, cfg)
	var pg CheckResult
	if res.OK {
		pg = check.Pass("postgres", fmt.Sprintf("%s, %d tables", res.Message, len(res.Tables)))
	} else {
		log.Error("Database bootstrap failed", "error", res.Message)
		pg = check.Fail("postgres", res.Message)
	}
	pg.Duration = res.Duration
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, "database: "+w)
	}

	checks := []CheckResult{pg, p.checkRedis(ctx, cfg.Redis.URL)}
	return stageResult(StageDatabase, start, checks, "datastore ready")
}

func (p *Pipeline) checkRedis(ctx context.Context, url string) CheckResult {
	start := time.Now()
	if url == "" {
		return check.Skip("redis", "REDIS_URL not set")
	}
	if err := p.redis.Ping(ctx, url); err != nil {
		logging.StageContext(ctx, string(StageDatabase)).Error("Redis ping failed", "error", err)
		return check.Fail("redis", err.Error()).Timed(start)
	}
	return check.Pass("redis", "PONG").Timed(start)
}

// runExchanges probes every active exchange, plus any stream and URL checks, concurrently.
// Results keep the order the tasks were declared in.
func (p *Pipeline) runExchanges(ctx context.Context, cfg *config.Config) StageResult {
	start := time.Now()
	log := logging.StageContext(ctx, string(StageExchanges))

	var tasks []func(context.Context) CheckResult
	for _, id := range cfg.ActiveExchanges() {
		tasks = append(tasks, p.exchangeTask(cfg, id))
	}
	if p.streamProbes {
		for _, id := range cfg.ActiveExchanges() {
			name, url := "stream:"+string(id), exchange.StreamURL(id)
			if url == "" {
				continue
			}
			tasks = append(tasks, func(ctx context.Context) CheckResult {
				return p.prober.ProbeStream(ctx, name, url, p.probeTimeout)
			})
		}
	}
	for _, u := range p.urlChecks {
		u := u
		tasks = append(tasks, func(ctx context.Context) CheckResult {
			return p.prober.ProbeURL(ctx, u.Name, u.URL, p.probeTimeout)
		})
	}

	checks := make([]CheckResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(len(tasks), 1))
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			checks[i] = task(gctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range checks {
		if !c.Passed() {
			log.Error("Connectivity check failed", "check", c.Name, "error", c.Detail)
		}
	}
	return stageResult(StageExchanges, start, checks, fmt.Sprintf("%d checks completed", len(checks)))
}

func (p *Pipeline) exchangeTask(cfg *config.Config, id config.Exchange) func(context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		spec, err := config.ConnectionSpec(cfg, id)
		if err != nil {
			return check.Fail(string(id), err.Error())
		}
		return p.prober.ProbeExchange(ctx, spec, cfg.TradingMode, p.probeTimeout)
	}
}

// credentialNames lists the active exchanges that have credentials.
func credentialNames(cfg *config.Config) []string {
	var names []string
	for _, id := range cfg.ActiveExchanges() {
		if config.HasCredentials(cfg, id) {
			names = append(names, id.DisplayName())
		}
	}
	return names
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
