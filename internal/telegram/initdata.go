package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// User is the profile record Telegram embeds in the launch payload
// under the "user" key.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Language  string `json:"language_code"`
	IsPremium bool   `json:"is_premium"`
}

// InitData is one decoded launch payload. It lives for a single request
// and is never persisted.
type InitData struct {
	// Fields holds every decoded key/value pair except "hash".
	Fields   map[string]string
	Hash     string
	AuthDate time.Time
	User     User
}

var ErrMalformedInitData = errors.New("malformed telegram init data")

// ParseInitData decodes the raw init-data string (an
// application/x-www-form-urlencoded blob) and validates its shape:
// "hash", an integer "auth_date" and a "user" JSON object with a numeric
// id and non-empty first_name must all be present. Signature and
// freshness are checked separately.
func ParseInitData(raw string) (InitData, error) {
	if raw == "" {
		return InitData{}, fmt.Errorf("%w: empty payload", ErrMalformedInitData)
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("%w: parse query: %v", ErrMalformedInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return InitData{}, fmt.Errorf("%w: missing hash", ErrMalformedInitData)
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		// Telegram initData keys are unique in practice, keep first.
		fields[k] = values.Get(k)
	}

	authDateRaw, ok := fields["auth_date"]
	if !ok {
		return InitData{}, fmt.Errorf("%w: missing auth_date", ErrMalformedInitData)
	}
	sec, err := strconv.ParseInt(authDateRaw, 10, 64)
	if err != nil {
		return InitData{}, fmt.Errorf("%w: invalid auth_date", ErrMalformedInitData)
	}

	userRaw, ok := fields["user"]
	if !ok {
		return InitData{}, fmt.Errorf("%w: missing user", ErrMalformedInitData)
	}
	var user User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return InitData{}, fmt.Errorf("%w: invalid user json", ErrMalformedInitData)
	}
	if user.ID == 0 {
		return InitData{}, fmt.Errorf("%w: missing user.id", ErrMalformedInitData)
	}
	if user.FirstName == "" {
		return InitData{}, fmt.Errorf("%w: missing user.first_name", ErrMalformedInitData)
	}

	return InitData{
		Fields:   fields,
		Hash:     hash,
		AuthDate: time.Unix(sec, 0).UTC(),
		User:     user,
	}, nil
}

// CheckString renders the canonical form the signature covers: every
// decoded pair except "hash" as "key=value" (decoded values, no
// re-encoding), sorted ascending by key, joined with single newlines.
// Any deviation here is indistinguishable from tampering.
func (d InitData) CheckString() string {
	pairs := make([]string, 0, len(d.Fields))
	for k, v := range d.Fields {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

// Fresh reports whether authDate sits inside the acceptance window
// [now-maxAge, now]. Future timestamps fail closed.
func Fresh(authDate time.Time, maxAge time.Duration, now time.Time) bool {
	age := now.Sub(authDate)
	return age >= 0 && age <= maxAge
}
