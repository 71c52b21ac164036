package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pushup-tma-backend/internal/bot"
	"pushup-tma-backend/internal/store"
)

// matchTolerance is how far a user's local clock may drift from the
// scheduled HH:MM before we consider the slot missed. The external cron
// fires every few minutes, so the window must cover one trigger period.
const matchTolerance = 5 * time.Minute

// Settings is the slice of the reminder store the job needs.
type Settings interface {
	ListEnabledByDay(ctx context.Context, day int) ([]store.DueReminder, error)
	MarkSent(ctx context.Context, userID int64, date string) error
}

type Result struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Errors     int `json:"errors"`
}

// Job sends scheduled workout reminders. It is stateless between runs;
// once-per-day dedup rides on the stored last_sent_at date.
type Job struct {
	settings        Settings
	sender          bot.Sender
	defaultTimezone string
	log             *zap.Logger
}

func NewJob(settings Settings, sender bot.Sender, defaultTimezone string, log *zap.Logger) *Job {
	return &Job{settings: settings, sender: sender, defaultTimezone: defaultTimezone, log: log}
}

func (j *Job) Run(ctx context.Context, now time.Time) (Result, error) {
	day := int(now.UTC().Weekday())
	due, err := j.settings.ListEnabledByDay(ctx, day)
	if err != nil {
		return Result{}, fmt.Errorf("load reminder settings: %w", err)
	}

	res := Result{Candidates: len(due)}
	for _, d := range due {
		loc, err := time.LoadLocation(d.Setting.Timezone)
		if err != nil {
			loc, _ = time.LoadLocation(j.defaultTimezone)
			if loc == nil {
				loc = time.UTC
			}
		}
		local := now.In(loc)

		if !timesMatch(local.Format("15:04"), d.Setting.Time) {
			continue
		}
		today := local.Format("2006-01-02")
		if d.Setting.LastSentAt == today {
			continue
		}

		if err := j.sender.SendMessage(ctx, d.TelegramID, reminderText(d.FirstName)); err != nil {
			j.log.Warn("reminder delivery failed",
				zap.Int64("user_id", d.Setting.UserID), zap.Error(err))
			res.Errors++
			continue
		}
		if err := j.settings.MarkSent(ctx, d.Setting.UserID, today); err != nil {
			j.log.Error("mark reminder sent",
				zap.Int64("user_id", d.Setting.UserID), zap.Error(err))
			res.Errors++
			continue
		}
		res.Sent++
	}

	j.log.Info("reminder job finished",
		zap.Int("candidates", res.Candidates), zap.Int("sent", res.Sent), zap.Int("errors", res.Errors))
	return res, nil
}

// timesMatch compares two "HH:MM" strings within matchTolerance.
func timesMatch(a, b string) bool {
	am, aok := parseMinutes(a)
	bm, bok := parseMinutes(b)
	if !aok || !bok {
		return false
	}
	diff := am - bm
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Minute <= matchTolerance
}

func parseMinutes(s string) (int, bool) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func reminderText(firstName string) string {
	if firstName != "" {
		return fmt.Sprintf("%s, время отжиманий! 💪 Открой приложение и начни тренировку.", firstName)
	}
	return "Время отжиманий! 💪 Открой приложение и начни тренировку."
}
