package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PhotoRepo struct {
	db *pgxpool.Pool
}

func NewPhotoRepo(db *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{db: db}
}

func (r *PhotoRepo) Create(ctx context.Context, p Photo) (Photo, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO workout_photos (id, workout_id, user_id, original_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, workout_id, user_id, original_url, processed_url, status, created_at`
	var out Photo
	err := r.db.QueryRow(ctx, query, p.ID, p.WorkoutID, p.UserID, p.OriginalURL, PhotoPending).Scan(
		&out.ID, &out.WorkoutID, &out.UserID, &out.OriginalURL, &out.ProcessedURL, &out.Status, &out.CreatedAt,
	)
	if err != nil {
		return Photo{}, fmt.Errorf("create photo: %w", err)
	}
	return out, nil
}

func (r *PhotoRepo) FindByID(ctx context.Context, userID int64, id uuid.UUID) (Photo, error) {
	query := `
		SELECT id, workout_id, user_id, original_url, processed_url, status, created_at
		FROM workout_photos WHERE id = $1 AND user_id = $2`
	var p Photo
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&p.ID, &p.WorkoutID, &p.UserID, &p.OriginalURL, &p.ProcessedURL, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, fmt.Errorf("find photo: %w", err)
	}
	return p, nil
}

func (r *PhotoRepo) ListByUser(ctx context.Context, userID int64) ([]Photo, error) {
	query := `
		SELECT id, workout_id, user_id, original_url, processed_url, status, created_at
		FROM workout_photos WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var p Photo
		err := rows.Scan(&p.ID, &p.WorkoutID, &p.UserID, &p.OriginalURL, &p.ProcessedURL, &p.Status, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PhotoRepo) SetStatus(ctx context.Context, id uuid.UUID, status PhotoStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE workout_photos SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set photo status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProcessed records a finished compositing result.
func (r *PhotoRepo) SetProcessed(ctx context.Context, id uuid.UUID, processedURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE workout_photos SET status = $2, processed_url = $3 WHERE id = $1`,
		id, PhotoDone, processedURL)
	if err != nil {
		return fmt.Errorf("set photo processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
