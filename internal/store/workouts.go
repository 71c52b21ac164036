package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkoutRepo persists workouts and their sets. Every query is scoped
// by user id; a workout id alone never grants access.
type WorkoutRepo struct {
	db *pgxpool.Pool
}

func NewWorkoutRepo(db *pgxpool.Pool) *WorkoutRepo {
	return &WorkoutRepo{db: db}
}

func (r *WorkoutRepo) Create(ctx context.Context, userID int64) (Workout, error) {
	query := `
		INSERT INTO workouts (user_id) VALUES ($1)
		RETURNING id, user_id, started_at, finished_at, total_reps`
	var w Workout
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.StartedAt, &w.FinishedAt, &w.TotalReps,
	)
	if err != nil {
		return Workout{}, fmt.Errorf("create workout: %w", err)
	}
	return w, nil
}

func (r *WorkoutRepo) FindByID(ctx context.Context, userID, workoutID int64) (Workout, error) {
	query := `
		SELECT id, user_id, started_at, finished_at, total_reps
		FROM workouts WHERE id = $1 AND user_id = $2`
	var w Workout
	err := r.db.QueryRow(ctx, query, workoutID, userID).Scan(
		&w.ID, &w.UserID, &w.StartedAt, &w.FinishedAt, &w.TotalReps,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Workout{}, ErrNotFound
		}
		return Workout{}, fmt.Errorf("find workout: %w", err)
	}
	return w, nil
}

// AddSet appends a set and bumps the workout's rep total in one
// transaction. The ownership check rides on the UPDATE's user_id guard.
func (r *WorkoutRepo) AddSet(ctx context.Context, userID, workoutID int64, reps int) (Set, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("begin add set: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE workouts SET total_reps = total_reps + $3
		 WHERE id = $1 AND user_id = $2 AND finished_at IS NULL`,
		workoutID, userID, reps,
	)
	if err != nil {
		return Set{}, fmt.Errorf("bump workout total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Set{}, ErrNotFound
	}

	var s Set
	err = tx.QueryRow(ctx,
		`INSERT INTO sets (workout_id, reps) VALUES ($1, $2)
		 RETURNING id, workout_id, reps, created_at`,
		workoutID, reps,
	).Scan(&s.ID, &s.WorkoutID, &s.Reps, &s.CreatedAt)
	if err != nil {
		return Set{}, fmt.Errorf("insert set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Set{}, fmt.Errorf("commit add set: %w", err)
	}
	return s, nil
}

func (r *WorkoutRepo) Finish(ctx context.Context, userID, workoutID int64) (Workout, error) {
	query := `
		UPDATE workouts SET finished_at = now()
		WHERE id = $1 AND user_id = $2 AND finished_at IS NULL
		RETURNING id, user_id, started_at, finished_at, total_reps`
	var w Workout
	err := r.db.QueryRow(ctx, query, workoutID, userID).Scan(
		&w.ID, &w.UserID, &w.StartedAt, &w.FinishedAt, &w.TotalReps,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Workout{}, ErrNotFound
		}
		return Workout{}, fmt.Errorf("finish workout: %w", err)
	}
	return w, nil
}

func (r *WorkoutRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]Workout, error) {
	query := `
		SELECT id, user_id, started_at, finished_at, total_reps
		FROM workouts WHERE user_id = $1
		ORDER BY started_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var out []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.StartedAt, &w.FinishedAt, &w.TotalReps); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListFinishedByUser returns completed workouts oldest-first, the order
// the stats calculation expects.
func (r *WorkoutRepo) ListFinishedByUser(ctx context.Context, userID int64) ([]Workout, error) {
	query := `
		SELECT id, user_id, started_at, finished_at, total_reps
		FROM workouts WHERE user_id = $1 AND finished_at IS NOT NULL
		ORDER BY started_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list finished workouts: %w", err)
	}
	defer rows.Close()

	var out []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.StartedAt, &w.FinishedAt, &w.TotalReps); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WorkoutRepo) ListSets(ctx context.Context, userID, workoutID int64) ([]Set, error) {
	query := `
		SELECT s.id, s.workout_id, s.reps, s.created_at
		FROM sets s
		JOIN workouts w ON w.id = s.workout_id
		WHERE s.workout_id = $1 AND w.user_id = $2
		ORDER BY s.created_at ASC`
	rows, err := r.db.Query(ctx, query, workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var out []Set
	for rows.Next() {
		var s Set
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.Reps, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
