// Package cursor encodes pagination boundaries as signed opaque tokens.
//
// A token is strict base64url(payload || HMAC-SHA256(secret, payload)) where
// payload is the canonical JSON of Cursor. Nothing inside a token is trusted
// until the MAC has been verified.
package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const macSize = sha256.Size

var encoding = base64.RawURLEncoding.Strict()

// Decode failures. All of them mean "no cursor" to the paginator.
var (
	ErrMalformed       = errors.New("cursor: malformed")
	ErrBadSignature    = errors.New("cursor: signature mismatch")
	ErrExpired         = errors.New("cursor: expired")
	ErrSessionMismatch = errors.New("cursor: session mismatch")
)

// Cursor identifies the last row of a served page.
type Cursor struct {
	SchemeID  string  `json:"id"`
	Score     float64 `json:"score"`
	SessionID string  `json:"sid"`
	IssuedAt  int64   `json:"iat"`
}

// Codec signs and verifies cursors with a server-held secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec. ttl <= 0 disables expiry.
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("cursor secret is required")
	}
	return &Codec{secret: append([]byte(nil), secret...), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source (tests).
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Encode issues a token for (schemeID, score, sessionID).
func (c *Codec) Encode(schemeID string, score float64, sessionID string) (string, error) {
	payload, err := json.Marshal(Cursor{
		SchemeID:  schemeID,
		Score:     score,
		SessionID: sessionID,
		IssuedAt:  c.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return encoding.EncodeToString(append(payload, c.sign(payload)...)), nil
}

// Decode verifies token and returns its payload. When sessionID is non-empty
// the cursor must have been issued for that session.
func (c *Codec) Decode(token, sessionID string) (Cursor, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(raw) <= macSize {
		return Cursor{}, ErrMalformed
	}

	payload, mac := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	if !hmac.Equal(mac, c.sign(payload)) {
		return Cursor{}, ErrBadSignature
	}

	var cur Cursor
	if err := json.Unmarshal(payload, &cur); err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if cur.SchemeID == "" {
		return Cursor{}, ErrMalformed
	}
	if sessionID != "" && cur.SessionID != sessionID {
		return Cursor{}, ErrSessionMismatch
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(cur.IssuedAt, 0)) > c.ttl {
		return Cursor{}, ErrExpired
	}
	return cur, nil
}

func (c *Codec) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(payload)
	return h.Sum(nil)
}
