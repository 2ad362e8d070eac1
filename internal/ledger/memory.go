package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/anigen/anigen/internal/domain"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	journal  map[string][]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		journal:  make(map[string][]Entry),
	}
}

func (s *MemoryStore) LoadAccount(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return acct, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, acct Account, opening Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return fmt.Errorf("account %s already exists", acct.ID)
	}
	s.accounts[acct.ID] = acct
	s.journal[acct.ID] = []Entry{opening}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn Mutation) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	next := acct
	entries, err := fn(&next)
	if err != nil {
		return Account{}, err
	}
	if len(entries) == 0 {
		return acct, nil
	}
	for _, e := range entries {
		if e.Type != EntryPurchase || e.Reference == "" {
			continue
		}
		for _, prior := range s.journal[id] {
			if prior.Type == EntryPurchase && prior.Reference == e.Reference {
				return Account{}, fmt.Errorf("%w: %s", ErrDuplicateReference, e.Reference)
			}
		}
	}
	s.accounts[id] = next
	s.journal[id] = append(s.journal[id], entries...)
	return next, nil
}

func (s *MemoryStore) Entries(_ context.Context, accountID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.journal[accountID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
