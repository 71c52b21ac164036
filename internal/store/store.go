package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("store: not found")

// User is the persistent projection of a Telegram account, keyed by
// TelegramID and refreshed on every successful authentication.
type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile carries the fields that may change between launches.
// LanguageCode is deliberately absent: the stored locale is sticky.
type UserProfile struct {
	Username  string
	FirstName string
	LastName  string
	IsPremium bool
}

type Workout struct {
	ID         int64
	UserID     int64
	StartedAt  time.Time
	FinishedAt *time.Time
	TotalReps  int
}

type Set struct {
	ID        int64
	WorkoutID int64
	Reps      int
	CreatedAt time.Time
}

// ReminderSetting holds a user's push-reminder schedule. Time is a
// local "HH:MM" string interpreted in Timezone; DaysOfWeek uses 0 for
// Sunday. LastSentAt stores the last delivery date (YYYY-MM-DD) for
// once-per-day dedup.
type ReminderSetting struct {
	UserID     int64
	Enabled    bool
	Time       string
	DaysOfWeek []int
	Timezone   string
	LastSentAt string
}

// DueReminder is a ReminderSetting joined with the delivery target.
type DueReminder struct {
	Setting    ReminderSetting
	TelegramID int64
	FirstName  string
}

type PhotoStatus string

const (
	PhotoPending    PhotoStatus = "pending"
	PhotoProcessing PhotoStatus = "processing"
	PhotoDone       PhotoStatus = "done"
	PhotoFailed     PhotoStatus = "failed"
)

type Photo struct {
	ID           uuid.UUID
	WorkoutID    int64
	UserID       int64
	OriginalURL  string
	ProcessedURL string
	Status       PhotoStatus
	CreatedAt    time.Time
}
