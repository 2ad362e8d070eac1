package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anigen/anigen/internal/domain"
)

func (s *Store) SaveTheme(ctx context.Context, t domain.MusicTheme) error {
	if t.ID == "" || t.AccountID == "" {
		return fmt.Errorf("%w: theme id and account are required", domain.ErrInvalidInput)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO themes (id, account_id, description, genre, mood, tempo, duration_minutes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, genre = EXCLUDED.genre,
		   mood = EXCLUDED.mood, tempo = EXCLUDED.tempo, duration_minutes = EXCLUDED.duration_minutes`,
		t.ID, t.AccountID, t.Description, string(t.Genre), string(t.Mood), string(t.Tempo), t.DurationMinutes, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

func (s *Store) Themes(ctx context.Context, accountID string, limit int) ([]domain.MusicTheme, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, description, genre, mood, tempo, duration_minutes, created_at
		 FROM themes WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, lim)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MusicTheme, error) {
		var (
			t                  domain.MusicTheme
			genre, mood, tempo string
		)
		err := row.Scan(&t.ID, &t.AccountID, &t.Description, &genre, &mood, &tempo, &t.DurationMinutes, &t.Timestamp)
		t.Genre, t.Mood, t.Tempo = domain.Genre(genre), domain.Mood(mood), domain.Tempo(tempo)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan themes: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteTheme(ctx context.Context, accountID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM themes WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrThemeNotFound, id)
	}
	return nil
}
