package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE returned when CREATE DATABASE races another creator.
const duplicateDatabaseCode = "42P04"

// PostgresConnector opens single pgx connections for provisioning. Pools are not used
// because a preflight run holds at most one session at a time.
type PostgresConnector struct {
	ConnectTimeout time.Duration
}

// NewPostgresConnector creates a connector with a default 10s connect timeout.
func NewPostgresConnector() *PostgresConnector {
	return &PostgresConnector{ConnectTimeout: 10 * time.Second}
}

var _ Connector = (*PostgresConnector)(nil)

// Connect parses the keyword/value DSN and opens a connection.
func (c *PostgresConnector) Connect(ctx context.Context, params ConnParams) (Conn, error) {
	connConfig, err := pgx.ParseConfig(params.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	if c.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = c.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", params.Redacted(), err)
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := c.conn.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *pgxConn) CreateDatabase(ctx context.Context, name string) error {
	// CREATE DATABASE cannot take a bind parameter; the name is quoted as an identifier.
	_, err := c.conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == duplicateDatabaseCode {
		return ErrDatabaseExists
	}
	return err
}

func (c *pgxConn) ApplySchema(ctx context.Context, script string) error {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	// simple protocol so multi-statement scripts run in one round trip
	if _, err := tx.Exec(ctx, script, pgx.QueryExecModeSimpleProtocol); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

func (c *pgxConn) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.conn.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
