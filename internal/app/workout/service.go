package workout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"pushup-tma-backend/internal/store"
)

// ---------------------------------------------------------------------------
// Domain types (passed to/from handlers)
// ---------------------------------------------------------------------------

type Stats struct {
	TotalWorkouts     int
	TotalReps         int
	AvgRepsPerWorkout float64
	PersonalBestReps  int
	PersonalBestDate  string
	CurrentStreak     int
	MaxStreak         int
	LastWorkoutDate   string
}

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

var (
	ErrInvalidReps   = errors.New("reps must be positive")
	ErrInvalidPeriod = errors.New("unknown stats period")
)

// Store is the slice of persistence the service needs.
type Store interface {
	Create(ctx context.Context, userID int64) (store.Workout, error)
	FindByID(ctx context.Context, userID, workoutID int64) (store.Workout, error)
	AddSet(ctx context.Context, userID, workoutID int64, reps int) (store.Set, error)
	Finish(ctx context.Context, userID, workoutID int64) (store.Workout, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]store.Workout, error)
	ListFinishedByUser(ctx context.Context, userID int64) ([]store.Workout, error)
	ListSets(ctx context.Context, userID, workoutID int64) ([]store.Set, error)
}

// Service owns workout lifecycle and statistics. Every operation is
// scoped by the caller's application user id.
type Service struct {
	workouts Store
}

func NewService(workouts Store) *Service {
	return &Service{workouts: workouts}
}

func (s *Service) Start(ctx context.Context, userID int64) (store.Workout, error) {
	return s.workouts.Create(ctx, userID)
}

func (s *Service) AddSet(ctx context.Context, userID, workoutID int64, reps int) (store.Set, error) {
	if reps <= 0 {
		return store.Set{}, ErrInvalidReps
	}
	return s.workouts.AddSet(ctx, userID, workoutID, reps)
}

func (s *Service) Finish(ctx context.Context, userID, workoutID int64) (store.Workout, error) {
	return s.workouts.Finish(ctx, userID, workoutID)
}

func (s *Service) Get(ctx context.Context, userID, workoutID int64) (store.Workout, []store.Set, error) {
	w, err := s.workouts.FindByID(ctx, userID, workoutID)
	if err != nil {
		return store.Workout{}, nil, err
	}
	sets, err := s.workouts.ListSets(ctx, userID, workoutID)
	if err != nil {
		return store.Workout{}, nil, err
	}
	return w, sets, nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]store.Workout, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.workouts.ListByUser(ctx, userID, limit)
}

// Stats aggregates completed workouts inside the period ending at now.
func (s *Service) Stats(ctx context.Context, userID int64, period Period, now time.Time) (Stats, error) {
	var cutoff time.Time
	switch period {
	case PeriodWeek:
		cutoff = now.AddDate(0, 0, -7)
	case PeriodMonth:
		cutoff = now.AddDate(0, -1, 0)
	case PeriodYear:
		cutoff = now.AddDate(-1, 0, 0)
	case PeriodAll, "":
		// zero cutoff keeps everything
	default:
		return Stats{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	all, err := s.workouts.ListFinishedByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	workouts := all[:0:0]
	for _, w := range all {
		if cutoff.IsZero() || !w.StartedAt.Before(cutoff) {
			workouts = append(workouts, w)
		}
	}
	if len(workouts) == 0 {
		return Stats{}, nil
	}

	st := Stats{TotalWorkouts: len(workouts)}
	for _, w := range workouts {
		st.TotalReps += w.TotalReps
		if w.TotalReps > st.PersonalBestReps {
			st.PersonalBestReps = w.TotalReps
			st.PersonalBestDate = w.StartedAt.UTC().Format("2006-01-02")
		}
	}
	st.AvgRepsPerWorkout = math.Round(float64(st.TotalReps)/float64(st.TotalWorkouts)*10) / 10
	st.LastWorkoutDate = workouts[len(workouts)-1].StartedAt.UTC().Format("2006-01-02")
	st.CurrentStreak, st.MaxStreak = streaks(workouts, now)
	return st, nil
}

// streaks computes consecutive-day runs over workouts sorted oldest
// first. The current streak survives if the last workout was today or
// yesterday.
func streaks(workouts []store.Workout, now time.Time) (current, max int) {
	days := make([]time.Time, 0, len(workouts))
	seen := make(map[string]bool, len(workouts))
	for _, w := range workouts {
		day := w.StartedAt.UTC().Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, day)
		}
	}

	run := 1
	max = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > max {
			max = run
		}
	}

	today := now.UTC().Truncate(24 * time.Hour)
	last := days[len(days)-1]
	if gap := today.Sub(last); gap >= 0 && gap <= 24*time.Hour {
		current = run
	}
	return current, max
}
