package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReminderRepo struct {
	db *pgxpool.Pool
}

func NewReminderRepo(db *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{db: db}
}

func (r *ReminderRepo) Get(ctx context.Context, userID int64) (ReminderSetting, error) {
	query := `
		SELECT user_id, enabled, reminder_time, days_of_week, timezone, last_sent_at
		FROM reminder_settings WHERE user_id = $1`
	var s ReminderSetting
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.Enabled, &s.Time, &s.DaysOfWeek, &s.Timezone, &s.LastSentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReminderSetting{}, ErrNotFound
		}
		return ReminderSetting{}, fmt.Errorf("get reminder setting: %w", err)
	}
	return s, nil
}

func (r *ReminderRepo) Upsert(ctx context.Context, s ReminderSetting) (ReminderSetting, error) {
	query := `
		INSERT INTO reminder_settings (user_id, enabled, reminder_time, days_of_week, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled       = EXCLUDED.enabled,
			reminder_time = EXCLUDED.reminder_time,
			days_of_week  = EXCLUDED.days_of_week,
			timezone      = EXCLUDED.timezone
		RETURNING user_id, enabled, reminder_time, days_of_week, timezone, last_sent_at`
	var out ReminderSetting
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.Enabled, s.Time, s.DaysOfWeek, s.Timezone,
	).Scan(&out.UserID, &out.Enabled, &out.Time, &out.DaysOfWeek, &out.Timezone, &out.LastSentAt)
	if err != nil {
		return ReminderSetting{}, fmt.Errorf("upsert reminder setting: %w", err)
	}
	return out, nil
}

// ListEnabledByDay returns enabled settings scheduled for the given
// weekday (0 = Sunday) together with the delivery target.
func (r *ReminderRepo) ListEnabledByDay(ctx context.Context, day int) ([]DueReminder, error) {
	query := `
		SELECT rs.user_id, rs.enabled, rs.reminder_time, rs.days_of_week, rs.timezone, rs.last_sent_at,
		       u.telegram_id, u.first_name
		FROM reminder_settings rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.enabled AND $1 = ANY (rs.days_of_week)`
	rows, err := r.db.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var out []DueReminder
	for rows.Next() {
		var d DueReminder
		err := rows.Scan(
			&d.Setting.UserID, &d.Setting.Enabled, &d.Setting.Time,
			&d.Setting.DaysOfWeek, &d.Setting.Timezone, &d.Setting.LastSentAt,
			&d.TelegramID, &d.FirstName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *ReminderRepo) MarkSent(ctx context.Context, userID int64, date string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE reminder_settings SET last_sent_at = $2 WHERE user_id = $1`,
		userID, date,
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
