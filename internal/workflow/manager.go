package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/vault"
)

// Manager owns one Session per account, all sharing the same collaborators
// and ledger book.
type Manager struct {
	book *ledger.Book
	cfg  Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. The describer is required.
func NewManager(book *ledger.Book, cfg Config) (*Manager, error) {
	if book == nil {
		return nil, errors.New("workflow: nil ledger book")
	}
	if cfg.Describer == nil {
		return nil, errors.New("workflow: no describer configured")
	}
	cfg.setDefaults()
	return &Manager{
		book:     book,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}, nil
}

// Session returns the session of accountID, opening its ledger on first use.
func (m *Manager) Session(ctx context.Context, accountID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[accountID]; ok {
		return s, nil
	}
	l, err := m.book.Ledger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s := NewSession(l, m.cfg)
	m.sessions[accountID] = s
	return s, nil
}

// Book returns the ledger book backing every session.
func (m *Manager) Book() *ledger.Book { return m.book }

// Vault returns the configured theme vault, or nil.
func (m *Manager) Vault() vault.Store { return m.cfg.Vault }

// MusicCost returns the credit cost of a music request.
func (m *Manager) MusicCost() int64 { return m.cfg.MusicCost }

// ImageCost returns the credit cost of an image request.
func (m *Manager) ImageCost() int64 { return m.cfg.ImageCost }

// Close stops playback and releases the provider backends.
func (m *Manager) Close() error {
	m.mu.Lock()
	var errs []error
	for _, s := range m.sessions {
		errs = append(errs, s.close())
	}
	m.mu.Unlock()

	errs = append(errs, m.cfg.Describer.Close())
	if m.cfg.Speech != nil {
		errs = append(errs, m.cfg.Speech.Close())
	}
	if m.cfg.Imager != nil {
		errs = append(errs, m.cfg.Imager.Close())
	}
	return errors.Join(errs...)
}
