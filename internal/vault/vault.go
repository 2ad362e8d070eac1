// Package vault keeps the music themes a user chose to save.
package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anigen/anigen/internal/domain"
)

// Store persists saved themes per account.
type Store interface {
	// SaveTheme stores a theme. Saving an existing id replaces it.
	SaveTheme(ctx context.Context, theme domain.MusicTheme) error

	// Themes lists an account's themes, newest first. limit <= 0 means all.
	Themes(ctx context.Context, accountID string, limit int) ([]domain.MusicTheme, error)

	// DeleteTheme removes one theme; domain.ErrThemeNotFound if absent.
	DeleteTheme(ctx context.Context, accountID, id string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	themes map[string]domain.MusicTheme
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{themes: make(map[string]domain.MusicTheme)}
}

func (s *MemoryStore) SaveTheme(_ context.Context, theme domain.MusicTheme) error {
	if theme.ID == "" || theme.AccountID == "" {
		return fmt.Errorf("%w: theme id and account are required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[theme.ID] = theme
	return nil
}

func (s *MemoryStore) Themes(_ context.Context, accountID string, limit int) ([]domain.MusicTheme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.MusicTheme
	for _, t := range s.themes {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteTheme(_ context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.themes[id]
	if !ok || t.AccountID != accountID {
		return fmt.Errorf("%w: %s", domain.ErrThemeNotFound, id)
	}
	delete(s.themes, id)
	return nil
}
