package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/anigen/anigen/internal/domain"
)

// Book hands out exactly one Ledger per account, loading it from the store
// or opening it with the monthly grant on first use.
type Book struct {
	store  Store
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// BookOption configures a Book.
type BookOption func(*Book)

// WithClock overrides the time source used for renewals and journal stamps.
func WithClock(now func() time.Time) BookOption {
	return func(b *Book) { b.now = now }
}

// NewBook creates a Book over store.
func NewBook(store Store, policy Policy, opts ...BookOption) *Book {
	if policy.RenewalPeriod <= 0 {
		policy.RenewalPeriod = domain.RenewalPeriod
	}
	b := &Book{
		store:   store,
		policy:  policy,
		now:     time.Now,
		ledgers: make(map[string]*Ledger),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Policy returns the renewal policy new accounts are opened with.
func (b *Book) Policy() Policy {
	return b.policy
}

// Ledger returns the ledger for accountID, creating the account if needed.
func (b *Book) Ledger(ctx context.Context, accountID string) (*Ledger, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: empty account id", domain.ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.ledgers[accountID]; ok {
		return l, nil
	}

	l := &Ledger{
		id:      accountID,
		period:  b.policy.RenewalPeriod,
		store:   b.store,
		now:     b.now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	acct, err := b.store.LoadAccount(ctx, accountID)
	switch {
	case err == nil:
		l.acct = acct
	case errors.Is(err, domain.ErrAccountNotFound):
		now := b.now()
		acct = Account{
			ID:           accountID,
			Balance:      b.policy.MonthlyGrant,
			MonthlyGrant: b.policy.MonthlyGrant,
			LastResetAt:  now,
			CreatedAt:    now,
		}
		opening := l.entry(&acct, EntryOpen, b.policy.MonthlyGrant, "", "account opened", now)
		if err := b.store.CreateAccount(ctx, acct, opening); err != nil {
			// Another writer sharing the store may have opened it first.
			existing, lerr := b.store.LoadAccount(ctx, accountID)
			if lerr != nil {
				return nil, fmt.Errorf("creating account %s: %w", accountID, err)
			}
			acct = existing
		} else {
			slog.Info("account opened", "account", accountID, "balance", acct.Balance)
		}
		l.acct = acct
	default:
		return nil, fmt.Errorf("loading account %s: %w", accountID, err)
	}

	b.ledgers[accountID] = l
	return l, nil
}
