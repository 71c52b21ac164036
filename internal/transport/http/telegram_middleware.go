package httptransport

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pushup-tma-backend/internal/auth"
	"pushup-tma-backend/internal/telegram"
)

// InitDataHeader carries the raw launch payload on every protected route.
const InitDataHeader = "X-Telegram-Init-Data"

// Rejection reasons, returned verbatim in the error body so clients can
// tell "get a fresh credential" apart from "retry later".
const (
	ReasonMissingCredential   = "missing credential"
	ReasonMalformedCredential = "malformed credential"
	ReasonInvalidSignature    = "invalid signature"
	ReasonExpiredCredential   = "expired credential"
	ReasonResolutionFailed    = "identity resolution failed"
)

// IdentityResolver is what the gate needs from the auth layer.
type IdentityResolver interface {
	Resolve(ctx context.Context, tgUser telegram.User) (auth.Identity, error)
}

// TelegramAuthMiddleware is the single authentication boundary for end
// users: extract header, decode, verify, check freshness, resolve, and
// attach the identity to the request context. Each step short-circuits;
// downstream handlers read the identity unconditionally.
type TelegramAuthMiddleware struct {
	Verifier telegram.Verifier
	Resolver IdentityResolver
	MaxAge   time.Duration
	Logger   *zap.Logger

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (m TelegramAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(InitDataHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, ReasonMissingCredential)
			return
		}

		data, err := telegram.ParseInitData(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ReasonMalformedCredential)
			return
		}

		// Verification strictly precedes freshness: an expired but
		// correctly signed payload is a different failure from a forged
		// one.
		if !m.Verifier.Verify(data.CheckString(), data.Hash) {
			writeError(w, http.StatusUnauthorized, ReasonInvalidSignature)
			return
		}

		now := time.Now()
		if m.Now != nil {
			now = m.Now()
		}
		if !telegram.Fresh(data.AuthDate, m.MaxAge, now) {
			writeError(w, http.StatusUnauthorized, ReasonExpiredCredential)
			return
		}

		identity, err := m.Resolver.Resolve(r.Context(), data.User)
		if err != nil {
			// The credential was valid; this is our failure, not the
			// client's, and is the one auth outcome worth retrying.
			m.Logger.Error("identity resolution failed",
				zap.Int64("telegram_id", data.User.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, ReasonResolutionFailed)
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
