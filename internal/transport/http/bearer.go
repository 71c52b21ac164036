package httptransport

import (
	"crypto/hmac"
	"net/http"
)

// BearerAuthMiddleware guards operator-facing routes (cron triggers)
// with a static shared secret. This is deliberately a weaker mechanism
// than the launch-payload gate: the caller is a trusted service, not an
// end user.
type BearerAuthMiddleware struct {
	Token string
}

func (m BearerAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An unset token closes the route rather than opening it.
		if m.Token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		got := r.Header.Get("Authorization")
		want := "Bearer " + m.Token
		if !hmac.Equal([]byte(got), []byte(want)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WebhookSecretMiddleware checks the secret token Telegram attaches to
// webhook deliveries.
type WebhookSecretMiddleware struct {
	Secret string
}

func (m WebhookSecretMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Secret == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if !hmac.Equal([]byte(got), []byte(m.Secret)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
