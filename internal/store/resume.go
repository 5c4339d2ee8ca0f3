package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/resumehub/apiserver/types"
)

// ResumeRepository handles persistence for resumes. Every read and write
// other than Create is filtered by owner, so a resume that belongs to someone
// else is indistinguishable from a missing one.
type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

// Create inserts a resume after checking, in the same transaction, that the
// owner exists. A missing owner yields ErrNotFound.
func (r *ResumeRepository) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const ownerQuery = `SELECT id FROM users WHERE id = $1 FOR SHARE`
		var ownerID int
		if err := tx.QueryRowContext(ctx, ownerQuery, resume.UserID).Scan(&ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select owner: %w", err)
		}

		const insertQuery = `
			INSERT INTO resumes (title, context, user_id)
			VALUES ($1, $2, $3)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, insertQuery, resume.Title, resume.Context, resume.UserID).Scan(&resume.ID); err != nil {
			return fmt.Errorf("insert resume: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Resume{}, err
	}
	return resume, nil
}

// ListByOwner returns the owner's resumes in insertion order.
func (r *ResumeRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Resume, error) {
	const query = `
		SELECT id, title, context, user_id
		FROM resumes
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	resumes := make([]types.Resume, 0)
	for rows.Next() {
		var resume types.Resume
		if err := rows.Scan(&resume.ID, &resume.Title, &resume.Context, &resume.UserID); err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}

	return resumes, nil
}

func (r *ResumeRepository) Get(ctx context.Context, id, ownerID int) (types.Resume, error) {
	const query = `
		SELECT id, title, context, user_id
		FROM resumes
		WHERE id = $1 AND user_id = $2`
	return scanResume(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// Update overwrites title and context of the resume identified by
// resume.ID and owned by resume.UserID. It returns the row as it was
// immediately before the write along with the updated row.
func (r *ResumeRepository) Update(ctx context.Context, resume types.Resume) (types.Resume, types.Resume, error) {
	const query = `
		UPDATE resumes
		SET title = $1,
			context = $2
		WHERE id = $3 AND user_id = $4
		RETURNING id, title, context, user_id`
	return r.replace(ctx, resume.ID, resume.UserID, query, resume.Title, resume.Context, resume.ID, resume.UserID)
}

// Delete removes the resume and returns the deleted row.
func (r *ResumeRepository) Delete(ctx context.Context, id, ownerID int) (types.Resume, error) {
	const query = `
		DELETE FROM resumes
		WHERE id = $1 AND user_id = $2
		RETURNING id, title, context, user_id`
	deleted, err := scanResume(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return types.Resume{}, fmt.Errorf("delete resume: %w", err)
	}
	return deleted, nil
}

// Improve appends suffix to the resume context in a single statement, so
// concurrent calls each append exactly once. It returns the previous and the
// improved row.
func (r *ResumeRepository) Improve(ctx context.Context, id, ownerID int, suffix string) (types.Resume, types.Resume, error) {
	const query = `
		UPDATE resumes
		SET context = context || $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, title, context, user_id`
	return r.replace(ctx, id, ownerID, query, suffix, id, ownerID)
}

// replace locks the owner's row, then runs the update query in the same
// transaction, so the returned previous row is exactly the one overwritten.
func (r *ResumeRepository) replace(ctx context.Context, id, ownerID int, query string, args ...any) (types.Resume, types.Resume, error) {
	const lockQuery = `
		SELECT id, title, context, user_id
		FROM resumes
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`

	var previous, current types.Resume
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if previous, err = scanResume(tx.QueryRowContext(ctx, lockQuery, id, ownerID)); err != nil {
			return err
		}
		current, err = scanResume(tx.QueryRowContext(ctx, query, args...))
		return err
	})
	if err != nil {
		return types.Resume{}, types.Resume{}, err
	}
	return previous, current, nil
}

func scanResume(row *sql.Row) (types.Resume, error) {
	var resume types.Resume
	if err := row.Scan(&resume.ID, &resume.Title, &resume.Context, &resume.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isOutOfRange(err) {
			return types.Resume{}, ErrNotFound
		}
		return types.Resume{}, fmt.Errorf("scan resume: %w", err)
	}
	return resume, nil
}
