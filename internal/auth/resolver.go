package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"pushup-tma-backend/internal/store"
	"pushup-tma-backend/internal/telegram"
)

// UserStore is the slice of the persistence layer the resolver needs.
type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (store.User, error)
	Insert(ctx context.Context, u store.User) (store.User, error)
	Update(ctx context.Context, telegramID int64, p store.UserProfile) (store.User, error)
}

// ErrResolution marks store-level failures after a credential already
// verified. The client did everything right; callers surface this as a
// server error, not an auth failure.
var ErrResolution = errors.New("identity resolution failed")

// Resolver turns a verified Telegram user into an application identity,
// keeping the persistent user row in sync with the latest
// Telegram-supplied profile.
type Resolver struct {
	users         UserStore
	defaultLocale string
	log           *zap.Logger
}

func NewResolver(users UserStore, defaultLocale string, log *zap.Logger) *Resolver {
	return &Resolver{users: users, defaultLocale: defaultLocale, log: log}
}

// Resolve upserts the user keyed by Telegram id and returns the
// resulting identity. Mutable profile fields track the payload on every
// launch; the stored locale is sticky once set.
func (r *Resolver) Resolve(ctx context.Context, tgUser telegram.User) (Identity, error) {
	row, err := r.users.FindByTelegramID(ctx, tgUser.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		row, err = r.users.Insert(ctx, store.User{
			TelegramID:   tgUser.ID,
			Username:     tgUser.Username,
			FirstName:    tgUser.FirstName,
			LastName:     tgUser.LastName,
			LanguageCode: r.normalizeLocale(tgUser.Language),
			IsPremium:    tgUser.IsPremium,
		})
		if err != nil {
			r.log.Error("insert user", zap.Int64("telegram_id", tgUser.ID), zap.Error(err))
			return Identity{}, fmt.Errorf("%w: %v", ErrResolution, err)
		}
	case err != nil:
		r.log.Error("find user", zap.Int64("telegram_id", tgUser.ID), zap.Error(err))
		return Identity{}, fmt.Errorf("%w: %v", ErrResolution, err)
	default:
		row, err = r.users.Update(ctx, tgUser.ID, store.UserProfile{
			Username:  tgUser.Username,
			FirstName: tgUser.FirstName,
			LastName:  tgUser.LastName,
			IsPremium: tgUser.IsPremium,
		})
		if err != nil {
			r.log.Error("update user", zap.Int64("telegram_id", tgUser.ID), zap.Error(err))
			return Identity{}, fmt.Errorf("%w: %v", ErrResolution, err)
		}
	}

	return Identity{
		UserID:       row.ID,
		TelegramID:   row.TelegramID,
		Username:     row.Username,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		LanguageCode: row.LanguageCode,
		IsPremium:    row.IsPremium,
	}, nil
}

// normalizeLocale canonicalizes the payload's language_code, falling
// back to the configured default on absent or garbage input.
func (r *Resolver) normalizeLocale(code string) string {
	if code == "" {
		return r.defaultLocale
	}
	tag, err := language.Parse(code)
	if err != nil {
		return r.defaultLocale
	}
	base, conf := tag.Base()
	if conf == language.No {
		return r.defaultLocale
	}
	return base.String()
}
