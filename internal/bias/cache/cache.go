// Package cache stores successful model scores so repeated analyses of the
// same text against the same backend skip the network.
package cache

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// KeyPrefix namespaces model score entries.
const KeyPrefix = "bias:model:"

// DefaultTTL is how long a score stays valid.
const DefaultTTL = 24 * time.Hour

// Entry is a cached model score.
type Entry struct {
	Backend     string    `json:"backend"`
	Model       string    `json:"model"`
	Score       float64   `json:"score"`
	Explanation string    `json:"explanation"`
	Strategy    string    `json:"strategy"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is a score cache. Get returns sentinel.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Name() string
}

// Key derives the cache key for normalized text scored by backendID.
func Key(backendID, normalizedText string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(backendID))
	h.Write([]byte{0})
	h.Write([]byte(normalizedText))
	return KeyPrefix + backendID + ":" + hex.EncodeToString(h.Sum(nil))
}
