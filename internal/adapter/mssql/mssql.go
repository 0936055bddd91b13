// Package mssql adapts a SQL Server instance, reached through
// database/sql and go-mssqldb, to the pool.Manager[*Session]
// capability contract. It is the external collaborator the generic
// pool core delegates session creation and liveness to — the Go
// analogue of the distilled source's sibling l337-postgres crate, and
// a generalization of the teacher's BucketPool.createConn/
// resetConnection pair into the Manager shape the pool expects.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/joao-brasil/go-connection-pool/pkg/pool"
)

// Config describes how to reach and dial one SQL Server instance.
type Config struct {
	Host           string
	Port           int
	Database       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// DSN renders the SQL Server connection string for this config.
func (c Config) DSN() string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s&connection+timeout=%d",
		c.Username, c.Password, c.Host, c.Port, c.Database, int(c.ConnectTimeout.Seconds()))
}

// Session is the managed unit this adapter hands to the pool: a
// single-connection *sql.DB (MaxOpenConns=1, so a Session maps 1:1 to
// one physical SQL Server connection, exactly as the teacher's
// PooledConn does), tagged with a diagnostic ID.
type Session struct {
	ID uuid.UUID
	DB *sql.DB

	createdAt time.Time
}

// Manager implements pool.Manager[*Session] against one Config.
type Manager struct {
	cfg Config
}

// NewManager builds a Manager for the given SQL Server instance.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

var _ pool.Manager[*Session] = (*Manager)(nil)

// Connect opens a fresh single-connection session and verifies it is
// reachable with a ping before handing it to the pool.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	db, err := sql.Open("sqlserver", m.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("mssql: sql.Open: %w", err)
	}

	// One Session, one physical connection: the pool itself is the
	// layer that multiplexes across many of these, so database/sql's
	// own pooling would only fight it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	return &Session{ID: uuid.New(), DB: db, createdAt: time.Now()}, nil
}

// IsValid runs SELECT 1 against the session. Never called by Acquire
// itself — available for an embedder's own periodic liveness sweep.
func (m *Manager) IsValid(ctx context.Context, s *Session) error {
	var result int
	if err := s.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("mssql: SELECT 1: %w", err)
	}
	return nil
}

// HasBroken is the cheap, non-suspending check Release calls: it
// reports whether the connection pool underlying the session has no
// known-good connections left, without issuing any query.
func (m *Manager) HasBroken(s *Session) bool {
	stats := s.DB.Stats()
	return stats.OpenConnections == 0 && stats.InUse == 0 && stats.Idle == 0
}

// TimedOut constructs the canonical timeout error for this adapter.
// The pool core never calls this itself.
func (m *Manager) TimedOut() error {
	return fmt.Errorf("mssql: timed out waiting for a session")
}

// Reset runs sp_reset_connection to clear session-scoped server state
// (temp tables, SET options, transaction context) before a session is
// handed to another caller. The teacher runs this unconditionally on
// every release; here it's exposed so an embedder can call it from
// its own release hook, since the generic pool core never touches
// session internals itself.
func Reset(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.DB.ExecContext(ctx, "EXEC sp_reset_connection")
	return err
}

// Close releases the underlying *sql.DB. Called by an embedder after
// a session is permanently discarded (e.g. once HasBroken reports true
// and the pool has already dropped it), never by the pool itself.
func (s *Session) Close() error {
	return s.DB.Close()
}
