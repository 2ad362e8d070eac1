package sqlite

import (
	"context"
	"fmt"

	"github.com/anigen/anigen/internal/domain"
)

func (s *Store) SaveTheme(ctx context.Context, t domain.MusicTheme) error {
	if t.ID == "" || t.AccountID == "" {
		return fmt.Errorf("%w: theme id and account are required", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO themes (id, account_id, description, genre, mood, tempo, duration_minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET description = excluded.description, genre = excluded.genre,
		   mood = excluded.mood, tempo = excluded.tempo, duration_minutes = excluded.duration_minutes`,
		t.ID, t.AccountID, t.Description, string(t.Genre), string(t.Mood), string(t.Tempo), t.DurationMinutes, formatTime(t.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

func (s *Store) Themes(ctx context.Context, accountID string, limit int) ([]domain.MusicTheme, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, description, genre, mood, tempo, duration_minutes, created_at
		 FROM themes WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	var out []domain.MusicTheme
	for rows.Next() {
		var (
			t  domain.MusicTheme
			at string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Description, &t.Genre, &t.Mood, &t.Tempo, &t.DurationMinutes, &at); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		if t.Timestamp, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTheme(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM themes WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrThemeNotFound, id)
	}
	return nil
}
