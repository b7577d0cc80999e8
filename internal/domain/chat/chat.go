// Package chat models follow-up conversation turns about search results.
package chat

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// MaxMessageLength bounds a single user message in bytes.
const MaxMessageLength = 8192

// Turn is one persisted chat exchange entry.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CacheEntry is a generated response stored under its fingerprint.
// TTL 0 means no expiry.
type CacheEntry struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// Reply is the answer returned for a user message.
type Reply struct {
	SessionID string
	Text      string
	Cached    bool
}

// ValidateMessage trims and checks a user message.
func ValidateMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", fmt.Errorf("message is required")
	}
	if len(msg) > MaxMessageLength {
		return "", fmt.Errorf("message too long (max %d chars)", MaxMessageLength)
	}
	return msg, nil
}

// Fingerprint hashes the conversation state that determines an answer:
// the query context, the top-results context and the latest user message.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Fingerprint(queryContext, resultsContext, lastUserMessage string) string {
	h := sha256.New()
	var n [8]byte
	for _, part := range []string{queryContext, resultsContext, lastUserMessage} {
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
