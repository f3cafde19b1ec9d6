package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// initDataMaxAge bounds how old the signed auth_date may be.
const initDataMaxAge = time.Hour

var (
	// ErrInvalidInitData means the signature check failed or the data
	// was malformed.
	ErrInvalidInitData = errors.New("invalid init data")

	// ErrExpiredInitData means the auth_date is older than the allowed
	// window.
	ErrExpiredInitData = errors.New("init data expired")
)

// ValidateInitData verifies the WebApp init data signature against the
// bot token and returns the embedded user. The algorithm is fixed by
// the Telegram WebApp contract: the check string is all fields except
// hash, sorted, newline-joined, signed with
// HMAC-SHA256(HMAC-SHA256("WebAppData", botToken), checkString).
func ValidateInitData(initData, botToken string, now time.Time) (*User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidInitData)
	}
	values.Del("hash")

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return nil, ErrExpiredInitData
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	calculated := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(calculated), []byte(receivedHash)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidInitData)
	}

	var user User
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: bad user payload", ErrInvalidInitData)
	}
	return &user, nil
}
