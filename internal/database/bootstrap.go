package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"crypto-trading-bot/config"
	apperrors "crypto-trading-bot/internal/errors"
	"crypto-trading-bot/internal/logging"
)

// ErrDatabaseExists is returned by Conn.CreateDatabase when another session created the
// database first.
var ErrDatabaseExists = errors.New("database already exists")

// Conn is a single Postgres session used during provisioning.
type Conn interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	// ApplySchema runs script inside one transaction and commits it.
	ApplySchema(ctx context.Context, script string) error
	ListTables(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// Connector opens provisioning sessions.
type Connector interface {
	Connect(ctx context.Context, params ConnParams) (Conn, error)
}

// BootstrapResult reports the outcome of EnsureDatabase.
type BootstrapResult struct {
	OK       bool
	Created  bool
	Database string
	Message  string
	Warnings []string
	Tables   []string
	Duration time.Duration

	// Err is the BootstrapFailure cause when OK is false.
	Err error
}

// Bootstrapper provisions the configured database and applies the schema script.
type Bootstrapper struct {
	connector Connector
	schema    SchemaSource
}

// NewBootstrapper creates a Bootstrapper. A nil schema source means no script.
func NewBootstrapper(connector Connector, schema SchemaSource) *Bootstrapper {
	return &Bootstrapper{connector: connector, schema: schema}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

const maxIdentifierBytes = 63

// ValidIdentifier reports whether name is safe to use as a database name.
func ValidIdentifier(name string) bool {
	return len(name) <= maxIdentifierBytes && identifierPattern.MatchString(name)
}

// EnsureDatabase creates the configured database if missing and applies the schema.
// It never returns an error; failures are reported through the result.
// Running it again against a provisioned database yields OK with Created false.
func (b *Bootstrapper) EnsureDatabase(ctx context.Context, cfg *config.Config) BootstrapResult {
	start := time.Now()
	res := b.ensure(ctx, cfg.Database.URL)
	res.Duration = time.Since(start)

	log := logging.DatabaseContext(ctx, "bootstrap")
	if res.OK {
		log.Info("Database ready", "database", res.Database, "created", res.Created, "tables", len(res.Tables))
	} else {
		log.Error("Database bootstrap failed", "database", res.Database, "error", res.Err)
	}
	return res
}

func (b *Bootstrapper) ensure(ctx context.Context, rawURL string) BootstrapResult {
	params, err := ParseDatabaseURL(rawURL)
	if err != nil {
		return failed("", "invalid DATABASE_URL", err)
	}
	res := BootstrapResult{Database: params.Database}

	created, err := b.createIfMissing(ctx, params)
	if err != nil {
		return failed(params.Database, "database provisioning failed", err)
	}
	res.Created = created

	conn, err := b.connector.Connect(ctx, params)
	if err != nil {
		return failed(params.Database, fmt.Sprintf("failed to connect to %s", params.Redacted()), err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	script, ok, err := b.script()
	if err != nil {
		return failed(params.Database, "failed to read schema script", err)
	}
	if ok {
		if err := conn.ApplySchema(ctx, script); err != nil {
			return failed(params.Database, "schema script failed", err)
		}
	} else {
		res.Warnings = append(res.Warnings, "schema script not found, skipping schema creation")
	}

	tables, err := conn.ListTables(ctx)
	if err != nil {
		return failed(params.Database, "failed to list tables", err)
	}
	res.Tables = tables
	if len(tables) == 0 {
		res.Warnings = append(res.Warnings, "no tables found in public schema")
	}

	res.OK = true
	if res.Created {
		res.Message = fmt.Sprintf("database %s created", params.Database)
	} else {
		res.Message = fmt.Sprintf("database %s already exists", params.Database)
	}
	return res
}

// createIfMissing uses a short-lived admin session on the maintenance database.
func (b *Bootstrapper) createIfMissing(ctx context.Context, params ConnParams) (bool, error) {
	admin, err := b.connector.Connect(ctx, params.WithDatabase(MaintenanceDatabase))
	if err != nil {
		return false, fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer admin.Close(context.WithoutCancel(ctx))

	exists, err := admin.DatabaseExists(ctx, params.Database)
	if err != nil {
		return false, fmt.Errorf("failed to check for database %s: %w", params.Database, err)
	}
	if exists {
		return false, nil
	}

	if !ValidIdentifier(params.Database) {
		return false, fmt.Errorf("refusing to create database with unsafe name %q", params.Database)
	}
	if err := admin.CreateDatabase(ctx, params.Database); err != nil {
		if errors.Is(err, ErrDatabaseExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create database %s: %w", params.Database, err)
	}
	return true, nil
}

func (b *Bootstrapper) script() (string, bool, error) {
	if b.schema == nil {
		return "", false, nil
	}
	return b.schema.Script()
}

func failed(database, message string, cause error) BootstrapResult {
	err := apperrors.New(apperrors.KindBootstrapFailure, message, cause)
	return BootstrapResult{
		Database: database,
		Message:  err.Error(),
		Err:      err,
	}
}
