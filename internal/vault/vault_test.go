package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anigen/anigen/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		theme := domain.MusicTheme{ID: id, AccountID: "alice", Genre: domain.GenreJazz, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveTheme(ctx, theme); err != nil {
			t.Fatalf("SaveTheme(%s) err = %v", id, err)
		}
	}
	_ = s.SaveTheme(ctx, domain.MusicTheme{ID: "x", AccountID: "bob", Timestamp: base})

	got, err := s.Themes(ctx, "alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Errorf("Themes() = %+v, want c,b,a", got)
	}
	if got, _ := s.Themes(ctx, "alice", 2); len(got) != 2 {
		t.Errorf("Themes(limit 2) len = %d", len(got))
	}

	if err := s.DeleteTheme(ctx, "bob", "a"); !errors.Is(err, domain.ErrThemeNotFound) {
		t.Errorf("cross-account delete err = %v, want ErrThemeNotFound", err)
	}
	if err := s.DeleteTheme(ctx, "alice", "a"); err != nil {
		t.Errorf("DeleteTheme() err = %v", err)
	}
	if err := s.DeleteTheme(ctx, "alice", "a"); !errors.Is(err, domain.ErrThemeNotFound) {
		t.Errorf("second delete err = %v, want ErrThemeNotFound", err)
	}
}

func TestMemoryStore_RejectsIncomplete(t *testing.T) {
	if err := NewMemoryStore().SaveTheme(context.Background(), domain.MusicTheme{ID: "a"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SaveTheme() err = %v, want ErrInvalidInput", err)
	}
}
