package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pushup-tma-backend/internal/app/workout"
	"pushup-tma-backend/internal/auth"
	"pushup-tma-backend/internal/bot"
	"pushup-tma-backend/internal/imaging"
	"pushup-tma-backend/internal/reminder"
	"pushup-tma-backend/internal/store"
)

// PhotoStore is the slice of the photo repository the handlers use.
type PhotoStore interface {
	Create(ctx context.Context, p store.Photo) (store.Photo, error)
	FindByID(ctx context.Context, userID int64, id uuid.UUID) (store.Photo, error)
	ListByUser(ctx context.Context, userID int64) ([]store.Photo, error)
	SetStatus(ctx context.Context, id uuid.UUID, status store.PhotoStatus) error
	SetProcessed(ctx context.Context, id uuid.UUID, processedURL string) error
}

// Handlers is the REST surface. Protected handlers read the identity
// from the context unconditionally; the gate guarantees it is there.
type Handlers struct {
	Workouts  *workout.Service
	Reminders *store.ReminderRepo
	Photos    PhotoStore
	Imaging   *imaging.Client
	Job       *reminder.Job
	Webhook   *bot.Handler
	Logger    *zap.Logger
}

func identity(r *http.Request) auth.Identity {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Reaching here means a route was wired outside the gate.
		panic("handler invoked without authenticated identity")
	}
	return id
}

// ---------------------------------------------------------------------------
// User
// ---------------------------------------------------------------------------

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            id.UserID,
		"telegram_id":   id.TelegramID,
		"username":      id.Username,
		"first_name":    id.FirstName,
		"last_name":     id.LastName,
		"language_code": id.LanguageCode,
		"is_premium":    id.IsPremium,
	})
}

// ---------------------------------------------------------------------------
// Workouts
// ---------------------------------------------------------------------------

type workoutResponse struct {
	ID         int64      `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	TotalReps  int        `json:"total_reps"`
}

func toWorkoutResponse(w store.Workout) workoutResponse {
	return workoutResponse{
		ID: w.ID, StartedAt: w.StartedAt, FinishedAt: w.FinishedAt, TotalReps: w.TotalReps,
	}
}

func (h *Handlers) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	created, err := h.Workouts.Start(r.Context(), id.UserID)
	if err != nil {
		h.serverError(w, "create workout", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutResponse(created))
}

func (h *Handlers) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Workouts.List(r.Context(), id.UserID, limit)
	if err != nil {
		h.serverError(w, "list workouts", err)
		return
	}
	out := make([]workoutResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toWorkoutResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetWorkout(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	workoutID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}
	got, sets, err := h.Workouts.Get(r.Context(), id.UserID, workoutID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "workout not found")
		return
	}
	if err != nil {
		h.serverError(w, "get workout", err)
		return
	}

	type setResponse struct {
		ID   int64 `json:"id"`
		Reps int   `json:"reps"`
	}
	outSets := make([]setResponse, 0, len(sets))
	for _, s := range sets {
		outSets = append(outSets, setResponse{ID: s.ID, Reps: s.Reps})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workout": toWorkoutResponse(got),
		"sets":    outSets,
	})
}

func (h *Handlers) FinishWorkout(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	workoutID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}
	finished, err := h.Workouts.Finish(r.Context(), id.UserID, workoutID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "workout not found")
		return
	}
	if err != nil {
		h.serverError(w, "finish workout", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutResponse(finished))
}

func (h *Handlers) AddSet(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	workoutID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}
	var body struct {
		Reps int `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s, err := h.Workouts.AddSet(r.Context(), id.UserID, workoutID, body.Reps)
	switch {
	case errors.Is(err, workout.ErrInvalidReps):
		writeError(w, http.StatusBadRequest, "reps must be positive")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "workout not found")
	case err != nil:
		h.serverError(w, "add set", err)
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"id": s.ID, "reps": s.Reps})
	}
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	period := workout.Period(r.URL.Query().Get("period"))
	st, err := h.Workouts.Stats(r.Context(), id.UserID, period, time.Now())
	if errors.Is(err, workout.ErrInvalidPeriod) {
		writeError(w, http.StatusBadRequest, "unknown period")
		return
	}
	if err != nil {
		h.serverError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_workouts":       st.TotalWorkouts,
		"total_reps":           st.TotalReps,
		"avg_reps_per_workout": st.AvgRepsPerWorkout,
		"personal_best_reps":   st.PersonalBestReps,
		"personal_best_date":   st.PersonalBestDate,
		"current_streak":       st.CurrentStreak,
		"max_streak":           st.MaxStreak,
		"last_workout_date":    st.LastWorkoutDate,
	})
}

// ---------------------------------------------------------------------------
// Reminders
// ---------------------------------------------------------------------------

type reminderResponse struct {
	Enabled    bool   `json:"enabled"`
	Time       string `json:"time"`
	DaysOfWeek []int  `json:"days_of_week"`
	Timezone   string `json:"timezone"`
}

func (h *Handlers) GetReminder(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	s, err := h.Reminders.Get(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// No row yet: surface the defaults the UI starts from.
		writeJSON(w, http.StatusOK, reminderResponse{
			Enabled: false, Time: "09:00", DaysOfWeek: []int{1, 2, 3, 4, 5}, Timezone: "Europe/Moscow",
		})
		return
	}
	if err != nil {
		h.serverError(w, "get reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{
		Enabled: s.Enabled, Time: s.Time, DaysOfWeek: s.DaysOfWeek, Timezone: s.Timezone,
	})
}

func (h *Handlers) PutReminder(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	var body reminderResponse
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !validReminderTime(body.Time) {
		writeError(w, http.StatusBadRequest, "time must be HH:MM")
		return
	}
	for _, d := range body.DaysOfWeek {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "days_of_week values must be 0..6")
			return
		}
	}
	if _, err := time.LoadLocation(body.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	s, err := h.Reminders.Upsert(r.Context(), store.ReminderSetting{
		UserID: id.UserID, Enabled: body.Enabled, Time: body.Time,
		DaysOfWeek: body.DaysOfWeek, Timezone: body.Timezone,
	})
	if err != nil {
		h.serverError(w, "save reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{
		Enabled: s.Enabled, Time: s.Time, DaysOfWeek: s.DaysOfWeek, Timezone: s.Timezone,
	})
}

func validReminderTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// ---------------------------------------------------------------------------
// Photos
// ---------------------------------------------------------------------------

type photoResponse struct {
	ID           string    `json:"id"`
	WorkoutID    int64     `json:"workout_id"`
	OriginalURL  string    `json:"original_url"`
	ProcessedURL string    `json:"processed_url,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toPhotoResponse(p store.Photo) photoResponse {
	return photoResponse{
		ID: p.ID.String(), WorkoutID: p.WorkoutID, OriginalURL: p.OriginalURL,
		ProcessedURL: p.ProcessedURL, Status: string(p.Status), CreatedAt: p.CreatedAt,
	}
}

func (h *Handlers) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	workoutID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}
	var body struct {
		OriginalURL string `json:"original_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.OriginalURL == "" {
		writeError(w, http.StatusBadRequest, "original_url is required")
		return
	}

	// The workout lookup doubles as the ownership check.
	if _, _, err := h.Workouts.Get(r.Context(), id.UserID, workoutID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workout not found")
			return
		}
		h.serverError(w, "load workout for photo", err)
		return
	}

	created, err := h.Photos.Create(r.Context(), store.Photo{
		WorkoutID:   workoutID,
		UserID:      id.UserID,
		OriginalURL: body.OriginalURL,
	})
	if err != nil {
		h.serverError(w, "create photo", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPhotoResponse(created))
}

func (h *Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	list, err := h.Photos.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.serverError(w, "list photos", err)
		return
	}
	out := make([]photoResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPhotoResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ProcessPhoto(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	var body struct {
		PhotoID string `json:"photo_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	photoID, err := uuid.Parse(body.PhotoID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photo_id")
		return
	}

	photo, err := h.Photos.FindByID(r.Context(), id.UserID, photoID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		h.serverError(w, "find photo", err)
		return
	}

	got, _, err := h.Workouts.Get(r.Context(), id.UserID, photo.WorkoutID)
	if err != nil {
		h.serverError(w, "load workout for photo", err)
		return
	}

	if err := h.Photos.SetStatus(r.Context(), photo.ID, store.PhotoProcessing); err != nil {
		h.serverError(w, "mark photo processing", err)
		return
	}
	if err := h.Imaging.Process(r.Context(), photo.ID, photo.OriginalURL, got.TotalReps); err != nil {
		h.Logger.Error("imaging trigger failed", zap.String("photo_id", photo.ID.String()), zap.Error(err))
		_ = h.Photos.SetStatus(r.Context(), photo.ID, store.PhotoFailed)
		writeError(w, http.StatusBadGateway, "photo processing unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(store.PhotoProcessing)})
}

// ---------------------------------------------------------------------------
// Operator routes
// ---------------------------------------------------------------------------

// PhotoResult is called by the compositing service once a photo is done.
func (h *Handlers) PhotoResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhotoID      string `json:"photo_id"`
		Status       string `json:"status"`
		ProcessedURL string `json:"processed_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	photoID, err := uuid.Parse(body.PhotoID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photo_id")
		return
	}

	switch store.PhotoStatus(body.Status) {
	case store.PhotoDone:
		if body.ProcessedURL == "" {
			writeError(w, http.StatusBadRequest, "processed_url is required")
			return
		}
		err = h.Photos.SetProcessed(r.Context(), photoID, body.ProcessedURL)
	case store.PhotoFailed:
		err = h.Photos.SetStatus(r.Context(), photoID, store.PhotoFailed)
	default:
		writeError(w, http.StatusBadRequest, "status must be done or failed")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		h.serverError(w, "record photo result", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func (h *Handlers) RunReminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.Job.Run(r.Context(), time.Now())
	if err != nil {
		h.serverError(w, "reminder job", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	h.Webhook.HandleUpdate(r.Context(), upd)
	// Telegram only cares that we acknowledged the delivery.
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
