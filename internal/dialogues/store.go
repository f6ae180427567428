// Package dialogues persists question/answer turns per user in Postgres so
// follow-up queries can be decided with context.
package dialogues

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/models"
)

const (
	recentQuery = `
		SELECT question, answer
		FROM user_dialogues
		WHERE user_id = $1
		ORDER BY create_time DESC, id DESC
		LIMIT $2`

	appendQuery = `
		INSERT INTO user_dialogues (user_id, question, answer, create_time, update_time)
		VALUES ($1, $2, $3, NOW(), NOW())`

	// Schema is the DDL the store expects.
	Schema = `
		CREATE TABLE IF NOT EXISTS user_dialogues (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			question    TEXT NOT NULL,
			answer      TEXT NOT NULL,
			create_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			update_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_dialogues_user_time ON user_dialogues (user_id, create_time DESC);`
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the dialogue table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return apperrors.NewDatabaseError("dialogues.schema", err)
	}
	return nil
}

// Recent returns up to limit turns for userID, oldest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]models.HistoryTurn, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, recentQuery, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("dialogues.recent", err)
	}
	defer rows.Close()

	var turns []models.HistoryTurn
	for rows.Next() {
		var t models.HistoryTurn
		if err := rows.Scan(&t.Question, &t.Answer); err != nil {
			return nil, apperrors.NewDatabaseError("dialogues.recent", fmt.Errorf("scan: %w", err))
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("dialogues.recent", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) Append(ctx context.Context, userID, question, answer string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, appendQuery, userID, question, answer); err != nil {
		return apperrors.NewDatabaseError("dialogues.append", err)
	}
	return nil
}
