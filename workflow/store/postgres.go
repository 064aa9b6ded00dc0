package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/workflow"
)

// PostgresStore archives reports in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresStore connects, pings, and creates the reports table if needed.
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = PostgresConfigFromEnv()
	}
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	store := NewPostgresStoreFromDB(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an open database handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS workflow_reports (
	session_id VARCHAR(64) PRIMARY KEY,
	success BOOLEAN NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflow_reports_created_at ON workflow_reports(created_at);
`

// EnsureSchema creates the reports table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save implements workflow.ReportStore. Saving the same session twice overwrites.
func (s *PostgresStore) Save(ctx context.Context, report *workflow.Report) error {
	raw, err := encode(report)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO workflow_reports (session_id, success, payload, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (session_id) DO UPDATE SET
		success = EXCLUDED.success,
		payload = EXCLUDED.payload`,
		report.SessionID,
		report.Success,
		string(raw),
		report.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save report to PostgreSQL: %w", err)
	}
	return nil
}

// Load implements workflow.ReportStore.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*workflow.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM workflow_reports WHERE session_id = $1`, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decode([]byte(payload))
}

// Delete removes a report.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workflow_reports WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
