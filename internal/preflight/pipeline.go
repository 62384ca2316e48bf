// Package preflight runs the ordered checks that must pass before the trading bot may
// start: build imports, configuration, directories, database and exchange connectivity.
//
// A Pipeline loads configuration from its Source on every Run. Field errors and blocking
// configuration problems abort the run; every later failure is recorded in the Report
// and the remaining stages still execute.
package preflight

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/check"
	"crypto-trading-bot/internal/database"
	"crypto-trading-bot/internal/logging"
	"crypto-trading-bot/internal/probe"
)

// Bootstrapper provisions the datastore.
type Bootstrapper interface {
	EnsureDatabase(ctx context.Context, cfg *config.Config) database.BootstrapResult
}

// RedisPinger checks Redis reachability.
type RedisPinger interface {
	Ping(ctx context.Context, url string) error
}

// Prober runs connectivity probes.
type Prober interface {
	ProbeExchange(ctx context.Context, spec config.ExchangeConnectionSpec, mode config.TradingMode, timeout time.Duration) check.Result
	ProbeURL(ctx context.Context, name, url string, timeout time.Duration) check.Result
	ProbeStream(ctx context.Context, name, url string, timeout time.Duration) check.Result
}

// Notifier receives the run summary.
type Notifier interface {
	SendPreflightSummary(ctx context.Context, runID string, passed bool, failures []string) error
}

// URLCheck is an extra HTTP reachability probe run in the exchanges stage.
type URLCheck struct {
	Name string
	URL  string
}

// DefaultProbeTimeout bounds each connectivity probe.
const DefaultProbeTimeout = 10 * time.Second

// DefaultDirectories are created relative to the working root.
var DefaultDirectories = []string{"logs", "data", "backups"}

// DefaultRequiredModules must be linked into the binary for the imports stage to pass.
var DefaultRequiredModules = []string{
	"github.com/jackc/pgx/v5",
	"github.com/redis/go-redis/v9",
	"github.com/shopspring/decimal",
	"github.com/golang-jwt/jwt/v5",
	"github.com/gorilla/websocket",
	"golang.org/x/time",
}

// Pipeline runs the preflight stages.
type Pipeline struct {
	src config.Source

	bootstrapper Bootstrapper
	redis        RedisPinger
	prober       Prober
	notifier     Notifier
	logger       *logging.Logger
	metricsPath  string

	probeTimeout    time.Duration
	allowMissing    bool
	streamProbes    bool
	urlChecks       []URLCheck
	root            string
	directories     []string
	requiredModules []string
	buildInfo       func() (*debug.BuildInfo, bool)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBootstrapper sets the datastore bootstrapper.
func WithBootstrapper(b Bootstrapper) Option {
	return func(p *Pipeline) { p.bootstrapper = b }
}

// WithRedis sets the Redis checker.
func WithRedis(r RedisPinger) Option {
	return func(p *Pipeline) { p.redis = r }
}

// WithProber sets the connectivity prober.
func WithProber(pr Prober) Option {
	return func(p *Pipeline) { p.prober = pr }
}

// WithNotifier sets where the run summary is sent.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the base logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.probeTimeout = d }
}

// WithAllowMissingCredentials reports missing exchange credentials as warnings instead
// of blocking errors. It has no effect in live mode.
func WithAllowMissingCredentials(allow bool) Option {
	return func(p *Pipeline) { p.allowMissing = allow }
}

// WithStreamProbes adds a websocket check per active exchange.
func WithStreamProbes(enabled bool) Option {
	return func(p *Pipeline) { p.streamProbes = enabled }
}

// WithURLChecks adds HTTP reachability checks to the exchanges stage.
func WithURLChecks(checks ...URLCheck) Option {
	return func(p *Pipeline) { p.urlChecks = append(p.urlChecks, checks...) }
}

// WithRoot sets the directory the directories stage works in.
func WithRoot(root string) Option {
	return func(p *Pipeline) { p.root = root }
}

// WithDirectories replaces the directories the pipeline ensures exist.
func WithDirectories(dirs ...string) Option {
	return func(p *Pipeline) { p.directories = dirs }
}

// WithRequiredModules replaces the modules the imports stage looks for.
func WithRequiredModules(modules ...string) Option {
	return func(p *Pipeline) { p.requiredModules = modules }
}

// WithBuildInfo replaces the build info reader, for tests.
func WithBuildInfo(fn func() (*debug.BuildInfo, bool)) Option {
	return func(p *Pipeline) { p.buildInfo = fn }
}

// WithMetricsFile writes run metrics in Prometheus text format to path after each run.
func WithMetricsFile(path string) Option {
	return func(p *Pipeline) { p.metricsPath = path }
}

// New creates a Pipeline reading configuration from src.
func New(src config.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:             src,
		probeTimeout:    DefaultProbeTimeout,
		root:            ".",
		directories:     DefaultDirectories,
		requiredModules: DefaultRequiredModules,
		buildInfo:       debug.ReadBuildInfo,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Default()
	}
	if p.prober == nil {
		p.prober = probe.New(nil)
	}
	if p.bootstrapper == nil {
		p.bootstrapper = database.NewBootstrapper(database.NewPostgresConnector(),
			database.FileSchema{Path: filepath.Join(p.root, database.DefaultSchemaPath)})
	}
	if p.redis == nil {
		p.redis = database.NewRedisChecker()
	}
	return p
}

// Run executes every stage in order and returns the report.
//
// The error is non-nil only when the run was aborted: the configuration could not be
// loaded (no report), or validation found blocking problems (a partial report up to
// and including the environment stage).
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	ctx, log, runID := logging.WithRunContext(ctx, p.logger)

	cfg, err := config.Load(p.src)
	if err != nil {
		log.Error("Configuration could not be loaded", "error", err)
		return nil, err
	}

	report := &Report{
		RunID:       runID,
		Environment: string(cfg.Environment),
		TradingMode: string(cfg.TradingMode),
		StartedAt:   time.Now(),
	}
	log.Info("Starting preflight", "environment", cfg.Environment, "trading_mode", cfg.TradingMode)

	report.Stages = append(report.Stages, p.runImports(ctx))

	envStage, err := p.runEnvironment(ctx, cfg, report)
	report.Stages = append(report.Stages, envStage)
	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		log.Error("Preflight aborted by configuration errors", "error", err)
		p.finish(ctx, report)
		return report, err
	}

	report.Stages = append(report.Stages, p.runDirectories(ctx, cfg))
	report.Stages = append(report.Stages, p.runDatabase(ctx, cfg, report))
	report.Stages = append(report.Stages, p.runExchanges(ctx, cfg))

	report.Duration = time.Since(report.StartedAt)
	if report.Passed() {
		log.Info("Preflight passed", "duration", report.Duration.String())
	} else {
		log.Error("Preflight failed", "failures", len(report.Failures()), "duration", report.Duration.String())
	}
	p.finish(ctx, report)
	return report, nil
}

// finish writes metrics and sends the summary. Neither affects the verdict.
func (p *Pipeline) finish(ctx context.Context, report *Report) {
	log := logging.FromContext(ctx)
	if p.metricsPath != "" {
		if err := WriteMetrics(p.metricsPath, report); err != nil {
			log.Warn("Failed to write metrics file", "path", p.metricsPath, "error", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.SendPreflightSummary(ctx, report.RunID, report.Passed(), report.Failures()); err != nil {
			log.Warn("Failed to send preflight summary", "error", err)
		}
	}
}
