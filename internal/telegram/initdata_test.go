package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "1234567890:AABBCCDDEEFFaabbccddeeff-TestBotToken"

// signFields computes the Mini App signature over the given decoded
// fields using the documented two-step HMAC construction.
func signFields(botToken string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		if k != "hash" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	km := hmac.New(sha256.New, []byte("WebAppData"))
	km.Write([]byte(botToken))
	secret := km.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildInitData constructs a properly signed Telegram initData string.
// offsetSeconds shifts auth_date relative to now (negative = in the past).
func buildInitData(botToken string, userID int64, offsetSeconds int, extraFields map[string]string) string {
	userJSON := fmt.Sprintf(
		`{"id":%d,"first_name":"Test","last_name":"User","username":"testuser","language_code":"en","is_premium":true}`,
		userID,
	)
	authDate := fmt.Sprintf("%d", time.Now().Add(time.Duration(offsetSeconds)*time.Second).Unix())

	fields := map[string]string{
		"auth_date": authDate,
		"user":      userJSON,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signFields(botToken, fields))
	return values.Encode()
}

// ---- Parsing ------------------------------------------------------------

func TestParseInitData_Valid(t *testing.T) {
	data, err := ParseInitData(buildInitData(testBotToken, 42, 0, nil))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if data.User.ID != 42 {
		t.Errorf("expected user ID 42, got %d", data.User.ID)
	}
	if data.User.FirstName != "Test" {
		t.Errorf("expected first name 'Test', got %q", data.User.FirstName)
	}
	if data.User.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", data.User.Username)
	}
	if data.User.Language != "en" {
		t.Errorf("expected language 'en', got %q", data.User.Language)
	}
	if !data.User.IsPremium {
		t.Error("expected is_premium true")
	}
	if data.Hash == "" {
		t.Error("expected non-empty hash")
	}
	if data.AuthDate.IsZero() {
		t.Error("expected non-zero AuthDate")
	}
	if _, ok := data.Fields["hash"]; ok {
		t.Error("hash must be excluded from Fields")
	}
}

func TestParseInitData_ExtraFields(t *testing.T) {
	// Telegram can include additional fields such as chat_instance or start_param.
	raw := buildInitData(testBotToken, 7, 0, map[string]string{
		"chat_instance": "-1234567890",
		"start_param":   "promo42",
	})
	data, err := ParseInitData(raw)
	if err != nil {
		t.Fatalf("extra fields should not break parsing, got: %v", err)
	}
	if data.Fields["start_param"] != "promo42" {
		t.Errorf("expected start_param to survive decoding, got %q", data.Fields["start_param"])
	}
}

func TestParseInitData_EmptyString(t *testing.T) {
	if _, err := ParseInitData(""); err == nil {
		t.Fatal("expected error for empty initData, got nil")
	}
}

func TestParseInitData_MissingHash(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", fmt.Sprintf("%d", time.Now().Unix()))
	values.Set("user", `{"id":1,"first_name":"X"}`)

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for missing hash, got nil")
	}
}

func TestParseInitData_MissingAuthDate(t *testing.T) {
	fields := map[string]string{"user": `{"id":1,"first_name":"X"}`}
	values := url.Values{}
	values.Set("user", fields["user"])
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for missing auth_date, got nil")
	}
}

func TestParseInitData_InvalidAuthDate(t *testing.T) {
	fields := map[string]string{
		"auth_date": "not-a-number",
		"user":      `{"id":1,"first_name":"X"}`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for invalid auth_date, got nil")
	}
}

func TestParseInitData_MissingUser(t *testing.T) {
	fields := map[string]string{"auth_date": fmt.Sprintf("%d", time.Now().Unix())}
	values := url.Values{}
	values.Set("auth_date", fields["auth_date"])
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for missing user, got nil")
	}
}

func TestParseInitData_InvalidUserJSON(t *testing.T) {
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      `{not valid json`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for invalid user JSON, got nil")
	}
}

func TestParseInitData_UserIDZero(t *testing.T) {
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      `{"id":0,"first_name":"Ghost"}`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for user.id == 0, got nil")
	}
}

func TestParseInitData_EmptyFirstName(t *testing.T) {
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      `{"id":5,"first_name":""}`,
	}
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signFields(testBotToken, fields))

	if _, err := ParseInitData(values.Encode()); err == nil {
		t.Fatal("expected error for empty first_name, got nil")
	}
}

// ---- Check string -------------------------------------------------------

func TestCheckString_Deterministic(t *testing.T) {
	data, err := ParseInitData(buildInitData(testBotToken, 3, 0, map[string]string{
		"query_id":      "AAF9xx",
		"chat_instance": "-99",
	}))
	if err != nil {
		t.Fatalf("ParseInitData: %v", err)
	}

	first := data.CheckString()
	for i := 0; i < 10; i++ {
		if got := data.CheckString(); got != first {
			t.Fatalf("CheckString not deterministic: %q vs %q", got, first)
		}
	}
}

func TestCheckString_SortedAndNewlineJoined(t *testing.T) {
	data := InitData{Fields: map[string]string{
		"user":      `{"id":1}`,
		"auth_date": "100",
		"query_id":  "abc",
	}}
	want := "auth_date=100\nquery_id=abc\nuser={\"id\":1}"
	if got := data.CheckString(); got != want {
		t.Errorf("unexpected check string:\ngot:  %q\nwant: %q", got, want)
	}
}

// ---- Freshness ----------------------------------------------------------

func TestFresh_Boundaries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	maxAge := 24 * time.Hour

	cases := []struct {
		name     string
		authDate time.Time
		want     bool
	}{
		{"now", now, true},
		{"exactly max age", now.Add(-maxAge), true},
		{"one second beyond", now.Add(-maxAge - time.Second), false},
		{"one second in the future", now.Add(time.Second), false},
	}
	for _, tc := range cases {
		if got := Fresh(tc.authDate, maxAge, now); got != tc.want {
			t.Errorf("%s: Fresh = %v, want %v", tc.name, got, tc.want)
		}
	}
}
