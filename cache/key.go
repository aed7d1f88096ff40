// cache/key.go
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key builds the deterministic cache key for a resource. Variants (for
// example a role when the response body depends on the caller's role) are
// folded into the key so distinct payloads never collide.
func Key(resourceType, resourceID string, variants ...string) string {
	var sb strings.Builder
	sb.WriteString("cache:")
	sb.WriteString(resourceType)
	sb.WriteByte(':')
	sb.WriteString(resourceID)
	for _, v := range variants {
		sb.WriteByte(':')
		sb.WriteString(v)
	}
	return sb.String()
}

// VersionTag derives the entity tag for a cached value. Identical bodies
// produce identical tags, so clients can revalidate without refetching.
func VersionTag(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])[:16]
}
