// ratelimit/key.go
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

// BucketKey derives the store key for a (subject, route) pair. Hashing
// keeps the key length fixed and collision-free regardless of what the
// subject or route identity contain.
func BucketKey(subject, routeID string) string {
	h := sha256.New()
	h.Write([]byte(subject))
	h.Write([]byte{0})
	h.Write([]byte(routeID))
	return "ratelimit:" + hex.EncodeToString(h.Sum(nil))[:24]
}
