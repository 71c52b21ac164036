package httptransport

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"pushup-tma-backend/internal/auth"
	"pushup-tma-backend/internal/telegram"
)

const testBotToken = "1234567890:AABBCCDDEEFFaabbccddeeff-TestBotToken"

func signedInitData(botToken string, userID int64, authDate time.Time) string {
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", authDate.Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Ann"}`, userID),
	}
	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	km := hmac.New(sha256.New, []byte("WebAppData"))
	km.Write([]byte(botToken))
	mac := hmac.New(sha256.New, km.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

type staticResolver struct {
	err error
}

func (r staticResolver) Resolve(_ context.Context, u telegram.User) (auth.Identity, error) {
	if r.err != nil {
		return auth.Identity{}, r.err
	}
	return auth.Identity{UserID: u.ID, TelegramID: u.ID, FirstName: u.FirstName}, nil
}

func newGate(resolver IdentityResolver) TelegramAuthMiddleware {
	return TelegramAuthMiddleware{
		Verifier: telegram.NewWebAppVerifier(testBotToken),
		Resolver: resolver,
		MaxAge:   24 * time.Hour,
		Logger:   zap.NewNop(),
	}
}

// echoIdentity reports the identity the gate attached.
func echoIdentity(t *testing.T) (http.Handler, *auth.Identity) {
	t.Helper()
	var got auth.Identity
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			t.Error("handler reached without identity in context")
		}
		got = id
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func doGate(t *testing.T, gate TelegramAuthMiddleware, next http.Handler, initData string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	if initData != "" {
		req.Header.Set(InitDataHeader, initData)
	}
	rec := httptest.NewRecorder()
	gate.Wrap(next).ServeHTTP(rec, req)
	return rec
}

func rejectionReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rejection body: %v", err)
	}
	return body["error"]
}

func TestGate_ValidPayloadAttachesIdentity(t *testing.T) {
	next, got := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{}), next, signedInitData(testBotToken, 42, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.TelegramID != 42 {
		t.Errorf("expected telegram id 42, got %d", got.TelegramID)
	}
	if got.FirstName != "Ann" {
		t.Errorf("expected first name Ann, got %q", got.FirstName)
	}
}

func TestGate_MissingHeader(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := doGate(t, newGate(staticResolver{}), next, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rejectionReason(t, rec); got != ReasonMissingCredential {
		t.Errorf("expected %q, got %q", ReasonMissingCredential, got)
	}
	if called {
		t.Error("downstream handler must not run")
	}
}

func TestGate_MalformedPayload(t *testing.T) {
	next, _ := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{}), next, "auth_date=123&hash=abc") // no user field

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rejectionReason(t, rec); got != ReasonMalformedCredential {
		t.Errorf("expected %q, got %q", ReasonMalformedCredential, got)
	}
}

func TestGate_TruncatedHash(t *testing.T) {
	initData := signedInitData(testBotToken, 42, time.Now())
	values, _ := url.ParseQuery(initData)
	h := values.Get("hash")
	values.Set("hash", h[:len(h)-1])

	next, _ := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{}), next, values.Encode())

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rejectionReason(t, rec); got != ReasonInvalidSignature {
		t.Errorf("expected %q, got %q", ReasonInvalidSignature, got)
	}
}

func TestGate_ExpiredPayload(t *testing.T) {
	next, _ := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{}), next,
		signedInitData(testBotToken, 42, time.Now().Add(-48*time.Hour)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rejectionReason(t, rec); got != ReasonExpiredCredential {
		t.Errorf("expected %q, got %q", ReasonExpiredCredential, got)
	}
}

func TestGate_FutureTimestampRejected(t *testing.T) {
	next, _ := echoIdentity(t)
	gate := newGate(staticResolver{})
	gate.Now = func() time.Time { return time.Now().Add(-time.Hour) }

	rec := doGate(t, gate, next, signedInitData(testBotToken, 42, time.Now()))
	if got := rejectionReason(t, rec); got != ReasonExpiredCredential {
		t.Errorf("expected %q, got %q", ReasonExpiredCredential, got)
	}
}

func TestGate_BadSignatureWinsOverExpiry(t *testing.T) {
	// Signed with the wrong token AND two days old: verification runs
	// first, so the reported reason must be the signature.
	next, _ := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{}), next,
		signedInitData("wrong-token", 42, time.Now().Add(-48*time.Hour)))

	if got := rejectionReason(t, rec); got != ReasonInvalidSignature {
		t.Errorf("expected %q, got %q", ReasonInvalidSignature, got)
	}
}

func TestGate_ResolutionFailureIsServerError(t *testing.T) {
	next, _ := echoIdentity(t)
	rec := doGate(t, newGate(staticResolver{err: auth.ErrResolution}), next,
		signedInitData(testBotToken, 42, time.Now()))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := rejectionReason(t, rec); got != ReasonResolutionFailed {
		t.Errorf("expected %q, got %q", ReasonResolutionFailed, got)
	}
}

func TestGate_NullVerifierStillRequiresParseablePayload(t *testing.T) {
	gate := newGate(staticResolver{})
	gate.Verifier = telegram.NullVerifier{}

	next, _ := echoIdentity(t)
	rec := doGate(t, gate, next, "hash=x&auth_date=1") // missing user

	if got := rejectionReason(t, rec); got != ReasonMalformedCredential {
		t.Errorf("expected %q, got %q", ReasonMalformedCredential, got)
	}
}
