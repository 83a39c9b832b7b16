package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-rag/internal/history"
	"github.com/jonathan/resume-rag/internal/types"
)

// Append records an ask. Rows are never updated.
func (db *DB) Append(ctx context.Context, q *types.AskQuery) error {
	answers, err := json.Marshal(orEmpty(q.Answers))
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO ask_history (id, query, k, answers, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.Query, q.K, answers, q.UserID, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ask history: %w", err)
	}
	return nil
}

// Recent returns up to limit asks, most recent first.
func (db *DB) Recent(ctx context.Context, limit int) ([]*types.AskQuery, error) {
	limit, err := history.ClampLimit(limit)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, query, k, answers, user_id, created_at
		 FROM ask_history ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ask history: %w", err)
	}
	defer rows.Close()

	out := []*types.AskQuery{}
	for rows.Next() {
		var (
			q       types.AskQuery
			answers []byte
		)
		if err := rows.Scan(&q.ID, &q.Query, &q.K, &answers, &q.UserID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ask history: %w", err)
		}
		if err := json.Unmarshal(answers, &q.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}
