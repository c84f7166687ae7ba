// Package auth issues and checks the signed admin session token.
//
// A token is "timestamp:nonce:signature" where timestamp is Unix
// milliseconds, nonce is 16 random bytes in hex, and signature is the hex
// HMAC-SHA256 of "timestamp:nonce" under the process-wide secret.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxAge is how long an issued token stays valid. The session cookie uses
// the same lifetime.
const MaxAge = 24 * time.Hour

const nonceBytes = 16

var ErrEmptySecret = errors.New("auth: session secret is empty")

type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: secret, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue creates a fresh token.
func (c *Codec) Issue() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	nonce := hex.EncodeToString(b)
	payload := ts + ":" + nonce
	return payload + ":" + c.sign(payload), nil
}

// Validate reports whether token was issued with this secret and is not
// older than MaxAge. Any malformed input is simply invalid.
func (c *Codec) Validate(token string) bool {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return false
	}
	ts, nonce, sig := parts[0], parts[1], parts[2]
	if ts == "" || nonce == "" || sig == "" {
		return false
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if c.now().UnixMilli()-issued > MaxAge.Milliseconds() {
		return false
	}

	expected := c.sign(ts + ":" + nonce)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
