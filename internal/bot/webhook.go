package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pushup-tma-backend/internal/app/workout"
	"pushup-tma-backend/internal/store"
)

// UserLookup resolves a chat's Telegram account to a stored user.
type UserLookup interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (store.User, error)
}

// StatsSource produces workout statistics for the /stats command.
type StatsSource interface {
	Stats(ctx context.Context, userID int64, period workout.Period, now time.Time) (workout.Stats, error)
}

// Handler reacts to webhook updates. It only understands the two text
// commands the original bot answered; everything else gets a nudge
// toward the Mini App.
type Handler struct {
	sender Sender
	users  UserLookup
	stats  StatsSource
	log    *zap.Logger
}

func NewHandler(sender Sender, users UserLookup, stats StatsSource, log *zap.Logger) *Handler {
	return &Handler{sender: sender, users: users, stats: stats, log: log}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Telegram omits Chat on some update kinds; a message we cannot
	// answer is a message we ignore.
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	var reply string
	switch {
	case strings.HasPrefix(text, "/start"):
		reply = "Привет! Открой мини-приложение, чтобы записывать отжимания, смотреть статистику и настраивать напоминания."
	case strings.HasPrefix(text, "/stats"):
		reply = h.statsReply(ctx, upd.Message.From)
	default:
		reply = "Команды: /start, /stats. Всё остальное — в мини-приложении."
	}

	if err := h.sender.SendMessage(ctx, chatID, reply); err != nil {
		h.log.Warn("webhook reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) statsReply(ctx context.Context, from *tgbotapi.User) string {
	if from == nil {
		return "Не получилось определить пользователя."
	}
	u, err := h.users.FindByTelegramID(ctx, from.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "Пока нет данных — запусти мини-приложение и сделай первую тренировку."
		}
		h.log.Error("stats lookup failed", zap.Int64("telegram_id", from.ID), zap.Error(err))
		return "Не получилось загрузить статистику, попробуй позже."
	}

	st, err := h.stats.Stats(ctx, u.ID, workout.PeriodAll, time.Now())
	if err != nil {
		h.log.Error("stats failed", zap.Int64("user_id", u.ID), zap.Error(err))
		return "Не получилось загрузить статистику, попробуй позже."
	}
	if st.TotalWorkouts == 0 {
		return "Пока нет завершённых тренировок. Время начать!"
	}
	return fmt.Sprintf(
		"Тренировок: %d\nВсего отжиманий: %d\nРекорд за тренировку: %d\nТекущая серия: %d дн.",
		st.TotalWorkouts, st.TotalReps, st.PersonalBestReps, st.CurrentStreak,
	)
}
