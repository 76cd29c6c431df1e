/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the journal persistence interfaces (Store, BalanceStore) and
  keeps a record of simulation runs, using SQLite. In production the same
  patterns apply to PostgreSQL with minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  generic.Store:        Pool transaction journal
  generic.BalanceStore: Running pool amounts between runs

APPEND-ONLY ENFORCEMENT:
  The Store enforces append-only semantics:
  - No UPDATE statements on transactions table
  - No DELETE statements on transactions table (Reset aside)
  - Balances are a snapshot table and are upserted

KEY TABLES:
  transactions: Immutable journal of every pool mutation
  balances:     Last saved amount per pool
  runs:         One row per simulation run and its outcome

INDEXES:
  - idx_transactions_resource_step: Per pool history (hot path for the API)
  - idx_transactions_created:       Most recent first across pools

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/farm.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  journal := generic.NewJournal(store, clock)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/journal.go: Buffers pool transactions and flushes them here
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/farm-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only journal)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		resource_type TEXT NOT NULL,
		unit TEXT NOT NULL,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		activity TEXT,
		activity_type TEXT,
		reason TEXT,
		step TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_resource_step
		ON transactions(resource_type, step);
	CREATE INDEX IF NOT EXISTS idx_transactions_created
		ON transactions(created_at DESC);

	-- Balances (snapshot per pool)
	CREATE TABLE IF NOT EXISTS balances (
		pool TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Simulation runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		start_step TEXT NOT NULL,
		steps INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status
		ON runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

// Append adds a transaction to the journal.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, tx generic.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, resource_type, unit, debit, credit, activity, activity_type, reason, step, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		string(tx.ID),
		tx.ResourceType,
		string(tx.Unit),
		tx.Debit.String(),
		tx.Credit.String(),
		nullString(tx.Activity),
		nullString(tx.ActivityType),
		nullString(tx.Reason),
		nullString(stepString(tx.Step)),
		createdAt.Format(time.RFC3339Nano),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicate IDs within the batch first
	ids := make(map[generic.TransactionID]bool, len(txs))
	for _, tx := range txs {
		if ids[tx.ID] {
			return generic.ErrDuplicateTransaction
		}
		ids[tx.ID] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Load returns all transactions for a pool, oldest first.
func (s *Store) Load(ctx context.Context, pool string) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, resource_type, unit, debit, credit, activity, activity_type, reason, step, created_at
		FROM transactions
		WHERE resource_type = ?
		ORDER BY seq ASC
	`

	return s.queryTransactions(ctx, query, pool)
}

// LoadAll returns the most recent transactions across pools, newest first.
func (s *Store) LoadAll(ctx context.Context, limit int) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, resource_type, unit, debit, credit, activity, activity_type, reason, step, created_at
		FROM transactions
		ORDER BY seq DESC
	`
	if limit > 0 {
		query += " LIMIT ?"
		return s.queryTransactions(ctx, query, limit)
	}
	return s.queryTransactions(ctx, query)
}

// LoadStep returns every transaction stamped with step, oldest first.
func (s *Store) LoadStep(ctx context.Context, step generic.TimePoint) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, resource_type, unit, debit, credit, activity, activity_type, reason, step, created_at
		FROM transactions
		WHERE step = ?
		ORDER BY seq ASC
	`

	return s.queryTransactions(ctx, query, stepString(step))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx           generic.Transaction
		id           string
		unit         string
		debit        string
		credit       string
		activity     sql.NullString
		activityType sql.NullString
		reason       sql.NullString
		step         sql.NullString
		createdAt    string
	)

	err := rows.Scan(
		&id, &tx.ResourceType, &unit, &debit, &credit,
		&activity, &activityType, &reason, &step, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.ID = generic.TransactionID(id)
	tx.Unit = generic.Unit(unit)
	if tx.Debit, err = decimal.NewFromString(debit); err != nil {
		return tx, fmt.Errorf("invalid debit %q on %s: %w", debit, id, err)
	}
	if tx.Credit, err = decimal.NewFromString(credit); err != nil {
		return tx, fmt.Errorf("invalid credit %q on %s: %w", credit, id, err)
	}
	tx.Activity = activity.String
	tx.ActivityType = activityType.String
	tx.Reason = reason.String
	if step.Valid && step.String != "" {
		if tx.Step, err = generic.ParseTimePoint(step.String); err != nil {
			return tx, fmt.Errorf("invalid step %q on %s: %w", step.String, id, err)
		}
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return tx, fmt.Errorf("invalid created_at %q on %s: %w", createdAt, id, err)
	}

	return tx, nil
}

// =============================================================================
// BALANCE STORE (generic.BalanceStore interface)
// =============================================================================

// SaveBalance stores the pool's amount, replacing any earlier value.
func (s *Store) SaveBalance(ctx context.Context, pool string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO balances (pool, amount, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(pool) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, pool, amount.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save balance for %s: %w", pool, err)
	}
	return nil
}

// LoadBalance returns the saved amount for pool, if any.
func (s *Store) LoadBalance(ctx context.Context, pool string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var amount string
	err := s.db.QueryRowContext(ctx, "SELECT amount FROM balances WHERE pool = ?", pool).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to load balance for %s: %w", pool, err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid balance %q for %s: %w", amount, pool, err)
	}
	return d, true, nil
}

// =============================================================================
// RUNS STORE
// =============================================================================

// Run records one simulation run.
type Run struct {
	ID          string
	Scenario    string
	StartStep   string
	Steps       int
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveRun inserts or updates a run.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (id, scenario, start_step, steps, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			steps = excluded.steps,
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt sql.NullString
	if r.CompletedAt != nil {
		completedAt = sql.NullString{String: r.CompletedAt.Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Scenario, r.StartStep, r.Steps, r.Status, nullString(r.Error),
		r.StartedAt.Format(time.RFC3339), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, status string) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, scenario, start_step, steps, status, error, started_at, completed_at
		FROM runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY started_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var errText, startedAt, completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Scenario, &r.StartStep, &r.Steps, &r.Status, &errText, &startedAt, &completedAt); err != nil {
			return nil, err
		}

		r.Error = errText.String
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt.String); err != nil {
			return nil, fmt.Errorf("invalid started_at %q on run %s: %w", startedAt.String, r.ID, err)
		}
		if completedAt.Valid && completedAt.String != "" {
			t, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("invalid completed_at %q on run %s: %w", completedAt.String, r.ID, err)
			}
			r.CompletedAt = &t
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "balances", "runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func stepString(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format("2006-01-02")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

var _ generic.JournalStore = (*Store)(nil)
