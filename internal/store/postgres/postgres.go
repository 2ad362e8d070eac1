// Package postgres persists ledgers and saved themes in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/store/migrations"
)

// Store implements ledger.Store and vault.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrations.Up(ctx, db, "postgres")
	db.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) LoadAccount(ctx context.Context, id string) (ledger.Account, error) {
	return loadAccount(ctx, s.pool, id, "")
}

// loadAccount reads one account; lock is appended to the query (e.g. "FOR UPDATE").
func loadAccount(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id, lock string) (ledger.Account, error) {
	var acct ledger.Account
	err := q.QueryRow(ctx,
		`SELECT id, balance, monthly_grant, last_reset_at, created_at FROM accounts WHERE id = $1 `+lock, id,
	).Scan(&acct.ID, &acct.Balance, &acct.MonthlyGrant, &acct.LastResetAt, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

func (s *Store) CreateAccount(ctx context.Context, acct ledger.Account, opening ledger.Entry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (id, balance, monthly_grant, last_reset_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
			acct.ID, acct.Balance, acct.MonthlyGrant, acct.LastResetAt, acct.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return insertEntries(ctx, tx, opening)
	})
}

func (s *Store) Update(ctx context.Context, id string, fn ledger.Mutation) (ledger.Account, error) {
	var out ledger.Account
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		acct, err := loadAccount(ctx, tx, id, "FOR UPDATE")
		if err != nil {
			return err
		}
		next := acct
		entries, err := fn(&next)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			out = acct
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = $1, monthly_grant = $2, last_reset_at = $3 WHERE id = $4`,
			next.Balance, next.MonthlyGrant, next.LastResetAt, id,
		); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if err := insertEntries(ctx, tx, entries...); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return out, nil
}

func (s *Store) Entries(ctx context.Context, accountID string, limit int) ([]ledger.Entry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, type, amount, balance_after, reference, description, created_at
		 FROM ledger_entries WHERE account_id = $1 ORDER BY seq DESC LIMIT $2`, accountID, lim)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var typ string
		if err := rows.Scan(&e.ID, &e.AccountID, &typ, &e.Amount, &e.BalanceAfter, &e.Reference, &e.Description, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = ledger.EntryType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertEntries(ctx context.Context, tx pgx.Tx, entries ...ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO ledger_entries (id, account_id, type, amount, balance_after, reference, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.AccountID, string(e.Type), e.Amount, e.BalanceAfter, e.Reference, e.Description, e.Timestamp,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_ledger_entries_purchase_ref" {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateReference, pgErr.Detail)
		}
		return fmt.Errorf("insert entries: %w", err)
	}
	return nil
}
