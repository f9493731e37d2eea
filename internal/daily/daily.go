// Package daily derives the shared daily challenge: every player who starts a
// daily round on the same date draws the same options in the same order.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic sampler seed for a date using HMAC(salt, YYYY-MM-DD).
func Seed(date time.Time, salt string) int64 {
	return SeedFor(DateKey(date), salt)
}

// SeedFor is Seed for a date already formatted by DateKey.
func SeedFor(key, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(key))
	sum := h.Sum(nil)
	// first 8 bytes are plenty of entropy for a PRNG seed
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
