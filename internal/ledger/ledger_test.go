package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anigen/anigen/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T, store Store) (*Ledger, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	book := NewBook(store, DefaultPolicy(), WithClock(clock.Now))
	l, err := book.Ledger(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Ledger() err = %v", err)
	}
	return l, clock
}

func mustBalance(t *testing.T, l *Ledger) int64 {
	t.Helper()
	b, err := l.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance() err = %v", err)
	}
	return b
}

func TestNewAccount_StartsWithGrant(t *testing.T) {
	l, clock := newTestLedger(t, NewMemoryStore())
	s, err := l.Snapshot(context.Background(), clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s.Balance != 9 || s.MonthlyGrant != 9 {
		t.Errorf("snapshot = %+v, want balance 9 grant 9", s)
	}
	if !s.LastResetAt.Equal(clock.Now()) {
		t.Errorf("LastResetAt = %v, want %v", s.LastResetAt, clock.Now())
	}
	if want := clock.Now().Add(30 * 24 * time.Hour); !s.NextResetAt.Equal(want) {
		t.Errorf("NextResetAt = %v, want %v", s.NextResetAt, want)
	}
}

func TestTryCharge_Sequence(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, NewMemoryStore())

	results := []struct {
		wantOK      bool
		wantBalance int64
	}{{true, 6}, {true, 3}, {true, 0}, {false, 0}}

	for i, r := range results {
		ok, err := l.TryCharge(ctx, 3)
		if err != nil {
			t.Fatalf("charge %d: err = %v", i, err)
		}
		if ok != r.wantOK {
			t.Errorf("charge %d: ok = %v, want %v", i, ok, r.wantOK)
		}
		if b := mustBalance(t, l); b != r.wantBalance {
			t.Errorf("charge %d: balance = %d, want %d", i, b, r.wantBalance)
		}
	}
}

func TestTryCharge_InsufficientLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l, _ := newTestLedger(t, store)

	if ok, _ := l.TryCharge(ctx, 8); !ok {
		t.Fatal("first charge refused")
	}
	before, _ := store.Entries(ctx, "acct-1", 0)

	ok, err := l.TryCharge(ctx, 3)
	if err != nil || ok {
		t.Fatalf("TryCharge() = %v, %v, want false, nil", ok, err)
	}
	if b := mustBalance(t, l); b != 1 {
		t.Errorf("balance = %d, want 1", b)
	}
	after, _ := store.Entries(ctx, "acct-1", 0)
	if len(after) != len(before) {
		t.Errorf("journal grew from %d to %d on refused charge", len(before), len(after))
	}
}

func TestInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, NewMemoryStore())

	for _, amount := range []int64{0, -1, -100} {
		if _, err := l.TryCharge(ctx, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("TryCharge(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
		if err := l.Credit(ctx, amount, ""); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Credit(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
		if !errors.Is(ErrInvalidAmount, domain.ErrInvalidInput) {
			t.Error("ErrInvalidAmount does not wrap ErrInvalidInput")
		}
	}
	if b := mustBalance(t, l); b != 9 {
		t.Errorf("balance = %d, want 9", b)
	}
}

func TestRenewal(t *testing.T) {
	tests := []struct {
		name        string
		spend       int64
		credit      int64
		advance     time.Duration
		wantBalance int64
		wantReset   bool
	}{
		{name: "depleted after full cycle", spend: 9, advance: 31 * 24 * time.Hour, wantBalance: 9, wantReset: true},
		{name: "exact boundary renews", spend: 6, advance: 30 * 24 * time.Hour, wantBalance: 9, wantReset: true},
		{name: "before boundary", spend: 6, advance: 29 * 24 * time.Hour, wantBalance: 3},
		{name: "above grant never lowered", credit: 20, advance: 31 * 24 * time.Hour, wantBalance: 29, wantReset: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, clock := newTestLedger(t, NewMemoryStore())
			start := clock.Now()

			if tt.spend > 0 {
				if ok, err := l.TryCharge(ctx, tt.spend); !ok || err != nil {
					t.Fatalf("TryCharge() = %v, %v", ok, err)
				}
			}
			if tt.credit > 0 {
				if err := l.Credit(ctx, tt.credit, "top-up"); err != nil {
					t.Fatal(err)
				}
			}

			clock.Advance(tt.advance)
			s, err := l.Snapshot(ctx, clock.Now())
			if err != nil {
				t.Fatal(err)
			}
			if s.Balance != tt.wantBalance {
				t.Errorf("balance = %d, want %d", s.Balance, tt.wantBalance)
			}
			wantReset := start
			if tt.wantReset {
				wantReset = clock.Now()
			}
			if !s.LastResetAt.Equal(wantReset) {
				t.Errorf("LastResetAt = %v, want %v", s.LastResetAt, wantReset)
			}
		})
	}
}

func TestRenewal_IdempotentWithinCycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l, clock := newTestLedger(t, store)

	if ok, _ := l.TryCharge(ctx, 9); !ok {
		t.Fatal("charge refused")
	}
	clock.Advance(31 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		if err := l.EnsureRenewed(ctx, clock.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if b := mustBalance(t, l); b != 9 {
		t.Errorf("balance = %d, want 9", b)
	}

	entries, _ := store.Entries(ctx, "acct-1", 0)
	renewals := 0
	for _, e := range entries {
		if e.Type == EntryRenewal {
			renewals++
		}
	}
	if renewals != 1 {
		t.Errorf("renewal entries = %d, want 1", renewals)
	}
}

func TestTryCharge_RenewsBeforeCheck(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger(t, NewMemoryStore())

	if ok, _ := l.TryCharge(ctx, 9); !ok {
		t.Fatal("charge refused")
	}
	if ok, _ := l.TryCharge(ctx, 3); ok {
		t.Fatal("charge accepted on empty balance")
	}
	clock.Advance(31 * 24 * time.Hour)
	ok, err := l.TryCharge(ctx, 3)
	if err != nil || !ok {
		t.Fatalf("TryCharge() after renewal = %v, %v, want true", ok, err)
	}
	if b := mustBalance(t, l); b != 6 {
		t.Errorf("balance = %d, want 6", b)
	}
}

func TestTryCharge_Concurrent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, NewMemoryStore())

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryCharge(ctx, 3)
			if err != nil {
				t.Error(err)
			}
			if ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := accepted.Load(); got != 3 {
		t.Errorf("accepted charges = %d, want 3", got)
	}
	if b := mustBalance(t, l); b != 0 {
		t.Errorf("balance = %d, want 0", b)
	}
}

func TestCredit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l, _ := newTestLedger(t, store)

	if err := l.Credit(ctx, 30, "cs_test_1"); err != nil {
		t.Fatalf("Credit() err = %v", err)
	}
	if b := mustBalance(t, l); b != 39 {
		t.Errorf("balance = %d, want 39", b)
	}

	entries, err := l.Entries(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Type != EntryPurchase || e.Amount != 30 || e.BalanceAfter != 39 || e.Reference != "cs_test_1" {
		t.Errorf("entry = %+v", e)
	}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, NewMemoryStore())

	if ok, _ := l.TryChargeFor(ctx, 3, "req-1", "music generation"); !ok {
		t.Fatal("charge refused")
	}
	entries, err := l.Entries(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != EntrySpend || entries[0].Amount != -3 || entries[0].BalanceAfter != 6 || entries[0].Reference != "req-1" {
		t.Errorf("newest = %+v", entries[0])
	}
	if entries[1].Type != EntryOpen || entries[1].Amount != 9 {
		t.Errorf("oldest = %+v", entries[1])
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Errorf("entry ids = %q, %q", entries[0].ID, entries[1].ID)
	}
}

type failingStore struct {
	*MemoryStore
	fail atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Update(ctx context.Context, id string, fn Mutation) (Account, error) {
	if s.fail.Load() {
		return Account{}, errDiskFull
	}
	return s.MemoryStore.Update(ctx, id, fn)
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}
	l, clock := newTestLedger(t, store)

	store.fail.Store(true)
	ok, err := l.TryCharge(ctx, 3)
	if !errors.Is(err, errDiskFull) || ok {
		t.Fatalf("TryCharge() = %v, %v, want false, disk full", ok, err)
	}
	if err := l.Credit(ctx, 5, ""); !errors.Is(err, errDiskFull) {
		t.Fatalf("Credit() err = %v, want disk full", err)
	}
	clock.Advance(31 * 24 * time.Hour)
	if err := l.EnsureRenewed(ctx, clock.Now()); !errors.Is(err, errDiskFull) {
		t.Fatalf("EnsureRenewed() err = %v, want disk full", err)
	}

	store.fail.Store(false)
	s, err := l.Snapshot(ctx, clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s.Balance != 9 {
		t.Errorf("balance = %d, want 9", s.Balance)
	}
	persisted, _ := store.LoadAccount(ctx, "acct-1")
	if persisted.Balance != s.Balance || !persisted.LastResetAt.Equal(s.LastResetAt) {
		t.Errorf("persisted = %+v, in memory = %+v", persisted, s)
	}
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	book := NewBook(store, DefaultPolicy())

	a, err := book.Ledger(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := book.Ledger(ctx, "alice")
	if a != b {
		t.Error("Ledger() returned distinct ledgers for one account")
	}
	if _, err := book.Ledger(ctx, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty id err = %v, want ErrInvalidInput", err)
	}

	if ok, _ := a.TryCharge(ctx, 3); !ok {
		t.Fatal("charge refused")
	}

	// A second book over the same store resumes the persisted balance.
	reopened, err := NewBook(store, DefaultPolicy()).Ledger(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bal := mustBalance(t, reopened); bal != 6 {
		t.Errorf("reopened balance = %d, want 6", bal)
	}
}

func TestMemoryStore_Unknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.LoadAccount(context.Background(), "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("LoadAccount() err = %v, want ErrAccountNotFound", err)
	}
	noop := func(*Account) ([]Entry, error) { return nil, nil }
	if _, err := s.Update(context.Background(), "ghost", noop); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("Update() err = %v, want ErrAccountNotFound", err)
	}
}

func TestSharedStore_WritersDoNotOverwriteEachOther(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := newFakeClock()

	daemon, err := NewBook(store, DefaultPolicy(), WithClock(clock.Now)).Ledger(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	cli, err := NewBook(store, DefaultPolicy(), WithClock(clock.Now)).Ledger(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	if err := cli.Credit(ctx, 100, "order-1"); err != nil {
		t.Fatalf("Credit() err = %v", err)
	}
	if ok, err := daemon.TryCharge(ctx, 3); !ok || err != nil {
		t.Fatalf("TryCharge() = %v, %v", ok, err)
	}

	stored, err := store.LoadAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Balance != 106 {
		t.Errorf("stored balance = %d, want 106", stored.Balance)
	}
	if bal := mustBalance(t, cli); bal != 106 {
		t.Errorf("other writer sees balance %d, want 106", bal)
	}
}

func TestCredit_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, NewMemoryStore())

	if err := l.Credit(ctx, 10, "evt_1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Credit(ctx, 10, "evt_1"); !errors.Is(err, ErrDuplicateReference) {
		t.Errorf("second Credit() err = %v, want ErrDuplicateReference", err)
	}
	if err := l.Credit(ctx, 1, ""); err != nil {
		t.Errorf("unreferenced Credit() err = %v", err)
	}
	if err := l.Credit(ctx, 1, ""); err != nil {
		t.Errorf("second unreferenced Credit() err = %v", err)
	}
	if bal := mustBalance(t, l); bal != 9+10+2 {
		t.Errorf("balance = %d, want 21", bal)
	}
}
