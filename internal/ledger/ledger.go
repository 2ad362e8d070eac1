// Package ledger tracks each account's spendable generation credits.
//
// A Ledger gates every generation attempt: renewal, balance check and debit
// run against the freshly locked stored row inside one store transaction, so
// no concurrent charge, in this process or another one sharing the store,
// can observe a stale balance. Every mutation is appended to the account's
// journal.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/anigen/anigen/internal/domain"
)

// ErrInvalidAmount is returned for zero or negative amounts.
var ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)

// ErrDuplicateReference is returned by Credit when a purchase with the same
// reference is already journaled for the account.
var ErrDuplicateReference = fmt.Errorf("%w: duplicate purchase reference", domain.ErrInvalidInput)

// EntryType is the business reason for a journal entry.
type EntryType string

const (
	EntryOpen     EntryType = "OPEN"
	EntrySpend    EntryType = "SPEND"
	EntryPurchase EntryType = "PURCHASE"
	EntryRenewal  EntryType = "RENEWAL"
)

// Account is the persisted state of one credit ledger.
type Account struct {
	ID           string    `json:"id"`
	Balance      int64     `json:"balance"`
	MonthlyGrant int64     `json:"monthly_grant"`
	LastResetAt  time.Time `json:"last_reset_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry is one row of the append-only journal. Amount is signed: spends are
// negative, grants and purchases positive.
type Entry struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Type         EntryType `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"`
	Description  string    `json:"description,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Mutation computes the next state of an account from its current stored
// state and returns the journal entries describing the change. Returning no
// entries leaves the account unwritten.
type Mutation func(acct *Account) ([]Entry, error)

// Store persists accounts and their journals.
type Store interface {
	// LoadAccount returns domain.ErrAccountNotFound for unknown ids.
	LoadAccount(ctx context.Context, id string) (Account, error)

	// CreateAccount inserts a new account and its opening entry.
	CreateAccount(ctx context.Context, acct Account, opening Entry) error

	// Update locks the account, applies fn to its stored state and persists
	// the result with fn's entries in one transaction. It returns the
	// account as stored afterwards. A PURCHASE entry whose non-empty
	// reference is already journaled for the account fails with
	// ErrDuplicateReference and nothing is written.
	Update(ctx context.Context, id string, fn Mutation) (Account, error)

	// Entries returns the most recent entries, newest first. limit <= 0
	// returns all of them.
	Entries(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

// Policy holds the renewal parameters.
type Policy struct {
	MonthlyGrant  int64
	RenewalPeriod time.Duration
}

// DefaultPolicy is 9 credits every 30 days.
func DefaultPolicy() Policy {
	return Policy{MonthlyGrant: domain.MonthlyGrant, RenewalPeriod: domain.RenewalPeriod}
}

// Snapshot is a point-in-time view of a ledger after renewal.
type Snapshot struct {
	AccountID    string    `json:"account_id"`
	Balance      int64     `json:"balance"`
	MonthlyGrant int64     `json:"monthly_grant"`
	LastResetAt  time.Time `json:"last_reset_at"`
	NextResetAt  time.Time `json:"next_reset_at"`
}

// Ledger is the credit ledger of a single account. Obtain one from a Book.
// The cached account is refreshed from the store on every operation, so
// other writers sharing the store are never overwritten.
type Ledger struct {
	id      string
	period  time.Duration
	store   Store
	now     func() time.Time
	entropy io.Reader

	mu   sync.Mutex
	acct Account
}

// EnsureRenewed applies the renewal rule at now: once a full period has
// elapsed since the last reset, the balance is raised to the monthly grant
// (never lowered) and the reset instant moves to now.
func (l *Ledger) EnsureRenewed(ctx context.Context, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.updateLocked(ctx, func(acct *Account) ([]Entry, error) {
		if renewal, ok := l.renew(acct, now); ok {
			return []Entry{renewal}, nil
		}
		return nil, nil
	})
}

// TryCharge debits amount if the post-renewal balance covers it. A false
// result leaves the balance untouched.
func (l *Ledger) TryCharge(ctx context.Context, amount int64) (bool, error) {
	return l.TryChargeFor(ctx, amount, "", "")
}

// TryChargeFor is TryCharge with a journal reference and description.
func (l *Ledger) TryChargeFor(ctx context.Context, amount int64, reference, description string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var charged bool
	err := l.updateLocked(ctx, func(acct *Account) ([]Entry, error) {
		charged = false
		var entries []Entry
		if renewal, ok := l.renew(acct, now); ok {
			entries = append(entries, renewal)
		}
		// A renewal may still need persisting even when the charge is refused.
		if acct.Balance < amount {
			return entries, nil
		}
		acct.Balance -= amount
		charged = true
		return append(entries, l.entry(acct, EntrySpend, -amount, reference, description, now)), nil
	})
	if err != nil {
		return false, err
	}

	if !charged {
		slog.Debug("charge refused", "account", l.id, "amount", amount, "balance", l.acct.Balance)
		return false, nil
	}
	slog.Debug("charged", "account", l.id, "amount", amount, "balance", l.acct.Balance)
	return true, nil
}

// Credit unconditionally adds amount to the balance. A non-empty reference
// is credited at most once per account.
func (l *Ledger) Credit(ctx context.Context, amount int64, reference string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	err := l.updateLocked(ctx, func(acct *Account) ([]Entry, error) {
		acct.Balance += amount
		return []Entry{l.entry(acct, EntryPurchase, amount, reference, "credit purchase", now)}, nil
	})
	if err != nil {
		return err
	}

	slog.Info("credits added", "account", l.id, "amount", amount, "balance", l.acct.Balance, "reference", reference)
	return nil
}

// Balance returns the post-renewal balance.
func (l *Ledger) Balance(ctx context.Context) (int64, error) {
	s, err := l.Current(ctx)
	if err != nil {
		return 0, err
	}
	return s.Balance, nil
}

// Current is Snapshot at the ledger's own clock.
func (l *Ledger) Current(ctx context.Context) (Snapshot, error) {
	return l.Snapshot(ctx, l.now())
}

// Snapshot renews at now and returns the resulting state.
func (l *Ledger) Snapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	if err := l.EnsureRenewed(ctx, now); err != nil {
		return Snapshot{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		AccountID:    l.acct.ID,
		Balance:      l.acct.Balance,
		MonthlyGrant: l.acct.MonthlyGrant,
		LastResetAt:  l.acct.LastResetAt,
		NextResetAt:  l.acct.LastResetAt.Add(l.period),
	}, nil
}

// Entries returns the account journal, newest first.
func (l *Ledger) Entries(ctx context.Context, limit int) ([]Entry, error) {
	return l.store.Entries(ctx, l.id, limit)
}

// AccountID returns the id of the ledger's account.
func (l *Ledger) AccountID() string {
	return l.id
}

// renew applies the renewal rule to acct.
func (l *Ledger) renew(acct *Account, now time.Time) (Entry, bool) {
	if now.Sub(acct.LastResetAt) < l.period {
		return Entry{}, false
	}

	delta := int64(0)
	if acct.Balance < acct.MonthlyGrant {
		delta = acct.MonthlyGrant - acct.Balance
		acct.Balance = acct.MonthlyGrant
	}
	acct.LastResetAt = now

	slog.Info("monthly credits renewed", "account", acct.ID, "granted", delta, "balance", acct.Balance)
	return l.entry(acct, EntryRenewal, delta, "", "monthly renewal", now), true
}

// updateLocked runs fn through the store and refreshes the cached account.
// On failure the cache is left as it was.
func (l *Ledger) updateLocked(ctx context.Context, fn Mutation) error {
	acct, err := l.store.Update(ctx, l.id, fn)
	if err != nil {
		slog.Warn("ledger mutation not applied", "account", l.id, "error", err)
		return fmt.Errorf("persisting ledger %s: %w", l.id, err)
	}
	l.acct = acct
	return nil
}

func (l *Ledger) entry(acct *Account, typ EntryType, amount int64, reference, description string, at time.Time) Entry {
	return Entry{
		ID:           ulid.MustNew(ulid.Timestamp(at), l.entropy).String(),
		AccountID:    acct.ID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: acct.Balance,
		Reference:    reference,
		Description:  description,
		Timestamp:    at,
	}
}
