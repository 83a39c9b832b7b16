package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-rag/internal/types"
)

// CreateJob stores a new job posting.
func (db *DB) CreateJob(ctx context.Context, job *types.Job) error {
	skills, err := json.Marshal(orEmpty(job.Skills))
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO jobs (id, title, description, skills, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.Title, job.Description, skills, job.CreatedBy, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob returns a job or a NotFoundError.
func (db *DB) GetJob(ctx context.Context, id string) (*types.Job, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, title, description, skills, created_by, created_at FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &types.NotFoundError{Kind: "job", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns every job, newest first.
func (db *DB) ListJobs(ctx context.Context) ([]*types.Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, description, skills, created_by, created_at
		 FROM jobs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*types.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*types.Job, error) {
	var (
		job    types.Job
		skills []byte
	)
	if err := row.Scan(&job.ID, &job.Title, &job.Description, &skills, &job.CreatedBy, &job.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skills, &job.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	return &job, nil
}
