package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chess-story-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StoryLoader loads authored story markdown and the navigation index from
// Postgres. Each row carries the raw document plus its index entry as JSONB;
// the position column preserves authored order.
type StoryLoader struct {
	pool *pgxpool.Pool
}

func NewStoryLoader(pool *pgxpool.Pool) *StoryLoader {
	return &StoryLoader{pool: pool}
}

func (l *StoryLoader) LoadStoryDocument(ctx context.Context, storyID string) (string, error) {
	var doc string
	err := l.pool.QueryRow(ctx, `SELECT doc FROM stories WHERE id=$1`, storyID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", storyID, domain.ErrStoryNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load story: %w", err)
	}
	return doc, nil
}

func (l *StoryLoader) LoadIndex(ctx context.Context) (domain.StoryIndex, error) {
	rows, err := l.pool.Query(ctx, `SELECT entry FROM stories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load story index: %w", err)
	}
	defer rows.Close()

	var index domain.StoryIndex
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan story index: %w", err)
		}
		var entry domain.StoryIndexEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode story index entry: %w", err)
		}
		index = append(index, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load story index: %w", err)
	}
	return index, nil
}
