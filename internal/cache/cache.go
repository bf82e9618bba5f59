// Package cache implements the content-addressed response cache. Entries are
// keyed by a fingerprint over the query content, responder id, and prompt
// version, so a prompt revision naturally invalidates old entries. Stores
// return ErrMiss for absent or expired entries; callers treat store I/O
// failures as misses, never as run failures.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"conclave/internal/responder"
)

// ErrMiss reports an absent or expired cache entry.
var ErrMiss = errors.New("cache miss")

// Fingerprint is the stable content hash identifying a cacheable call.
type Fingerprint string

// NewFingerprint hashes (normalized query text, responder id, prompt version)
// into a stable key. Query text is whitespace-normalized so incidental
// formatting differences still hit.
func NewFingerprint(queryText, responderID, promptVersion string) Fingerprint {
	normalized := strings.Join(strings.Fields(queryText), " ")
	sum := sha256.Sum256([]byte(normalized + "|" + responderID + "|" + promptVersion))
	return Fingerprint(hex.EncodeToString(sum[:])[:16])
}

// Store provides get/put with TTL semantics over any backing medium.
type Store interface {
	// Get returns the cached raw result or ErrMiss. Expired entries are
	// treated as misses; eviction is lazy.
	Get(ctx context.Context, fp Fingerprint) (*responder.RawResult, error)

	// Put stores a raw result under fp for ttl. Concurrent writers to the
	// same fingerprint race last-write-wins.
	Put(ctx context.Context, fp Fingerprint, raw *responder.RawResult, ttl time.Duration) error
}
