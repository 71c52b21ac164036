package auth

import "context"

// Identity is the request-scoped result of a successful authentication.
// UserID is the store-assigned row id and the sole authorization key for
// all downstream data access.
type Identity struct {
	UserID       int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
