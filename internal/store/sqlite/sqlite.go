// Package sqlite persists ledgers and saved themes in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/store/migrations"
)

// Store implements ledger.Store and vault.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Immediate transactions take the write lock on BEGIN, so a ledger update
	// reads the row it is about to write while other processes wait.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db, "sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) LoadAccount(ctx context.Context, id string) (ledger.Account, error) {
	return loadAccount(ctx, s.db, id)
}

func loadAccount(ctx context.Context, q queryer, id string) (ledger.Account, error) {
	var (
		acct             ledger.Account
		lastReset, added string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, balance, monthly_grant, last_reset_at, created_at FROM accounts WHERE id = ?`, id,
	).Scan(&acct.ID, &acct.Balance, &acct.MonthlyGrant, &lastReset, &added)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("load account: %w", err)
	}
	if acct.LastResetAt, err = parseTime(lastReset); err != nil {
		return ledger.Account{}, err
	}
	if acct.CreatedAt, err = parseTime(added); err != nil {
		return ledger.Account{}, err
	}
	return acct, nil
}

func (s *Store) CreateAccount(ctx context.Context, acct ledger.Account, opening ledger.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, balance, monthly_grant, last_reset_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		acct.ID, acct.Balance, acct.MonthlyGrant, formatTime(acct.LastResetAt), formatTime(acct.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if err := insertEntries(ctx, tx, opening); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Update(ctx context.Context, id string, fn ledger.Mutation) (ledger.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	acct, err := loadAccount(ctx, tx, id)
	if err != nil {
		return ledger.Account{}, err
	}
	next := acct
	entries, err := fn(&next)
	if err != nil {
		return ledger.Account{}, err
	}
	if len(entries) == 0 {
		return acct, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, monthly_grant = ?, last_reset_at = ? WHERE id = ?`,
		next.Balance, next.MonthlyGrant, formatTime(next.LastResetAt), id,
	); err != nil {
		return ledger.Account{}, fmt.Errorf("update account: %w", err)
	}
	if err := insertEntries(ctx, tx, entries...); err != nil {
		return ledger.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Account{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *Store) Entries(ctx context.Context, accountID string, limit int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, type, amount, balance_after, reference, description, created_at
		 FROM ledger_entries WHERE account_id = ? ORDER BY seq DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e  ledger.Entry
			at string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Reference, &e.Description, &at); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Timestamp, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries ...ledger.Entry) error {
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, account_id, type, amount, balance_after, reference, description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.AccountID, string(e.Type), e.Amount, e.BalanceAfter, e.Reference, e.Description, formatTime(e.Timestamp),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ledger.ErrDuplicateReference, e.Reference)
			}
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
