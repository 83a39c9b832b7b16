package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-rag/internal/types"
)

const resumeColumns = `id, filename, text, skills, pii, education, projects,
	content_hash, content_type, uploaded_by, blob_key, created_at`

// PutDocument inserts a resume or replaces the one with the same id.
func (db *DB) PutDocument(ctx context.Context, doc *types.ResumeDocument) error {
	skills, err := json.Marshal(orEmpty(doc.Skills))
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	var pii []byte
	if !doc.PII.IsEmpty() {
		if pii, err = json.Marshal(doc.PII); err != nil {
			return fmt.Errorf("failed to marshal pii: %w", err)
		}
	}
	education, err := json.Marshal(orEmpty(doc.Education))
	if err != nil {
		return fmt.Errorf("failed to marshal education: %w", err)
	}
	projects, err := json.Marshal(orEmpty(doc.Projects))
	if err != nil {
		return fmt.Errorf("failed to marshal projects: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO resumes (`+resumeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   filename = $2, text = $3, skills = $4, pii = $5, education = $6,
		   projects = $7, content_hash = $8, content_type = $9,
		   uploaded_by = $10, blob_key = $11`,
		doc.ID, doc.Filename, doc.Text, skills, pii, education, projects,
		doc.ContentHash, doc.ContentType, doc.UploadedBy, doc.BlobKey, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save resume %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a resume or a NotFoundError.
func (db *DB) GetDocument(ctx context.Context, id string) (*types.ResumeDocument, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id)
	doc, err := scanResume(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &types.NotFoundError{Kind: "resume", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every resume, newest first.
func (db *DB) ListDocuments(ctx context.Context) ([]*types.ResumeDocument, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+resumeColumns+` FROM resumes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var docs []*types.ResumeDocument
	for rows.Next() {
		doc, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of stored resumes.
func (db *DB) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count resumes: %w", err)
	}
	return n, nil
}

func scanResume(row pgx.Row) (*types.ResumeDocument, error) {
	var (
		doc                          types.ResumeDocument
		skills, pii, edu, projects []byte
	)
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Text, &skills, &pii, &edu, &projects,
		&doc.ContentHash, &doc.ContentType, &doc.UploadedBy, &doc.BlobKey, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skills, &doc.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	if len(pii) > 0 {
		doc.PII = &types.PII{}
		if err := json.Unmarshal(pii, doc.PII); err != nil {
			return nil, fmt.Errorf("failed to decode pii: %w", err)
		}
	}
	if err := json.Unmarshal(edu, &doc.Education); err != nil {
		return nil, fmt.Errorf("failed to decode education: %w", err)
	}
	if err := json.Unmarshal(projects, &doc.Projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return &doc, nil
}

// orEmpty keeps nil slices from being stored as JSON null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
