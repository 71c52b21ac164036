package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo persists users keyed by their Telegram account id.
type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, is_premium, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.LanguageCode, &u.IsPremium, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *UserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user by telegram id: %w", err)
	}
	return u, nil
}

// Insert creates the row for a first-time launch. The ON CONFLICT arm
// makes concurrent launches of the same account race safely to one row:
// the loser degrades into the same profile update an existing user gets,
// leaving language_code and created_at untouched.
func (r *UserRepo) Insert(ctx context.Context, u User) (User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code, is_premium)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username   = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			is_premium = EXCLUDED.is_premium,
			updated_at = now()
		RETURNING ` + userColumns
	out, err := scanUser(r.db.QueryRow(ctx, query,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.LanguageCode, u.IsPremium,
	))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return out, nil
}

// Update refreshes the mutable profile fields of an existing row.
func (r *UserRepo) Update(ctx context.Context, telegramID int64, p UserProfile) (User, error) {
	query := `
		UPDATE users SET
			username   = $2,
			first_name = $3,
			last_name  = $4,
			is_premium = $5,
			updated_at = now()
		WHERE telegram_id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, query,
		telegramID, p.Username, p.FirstName, p.LastName, p.IsPremium,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
