package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Fingerprint derives a canonical cache key from a request's parameters.
// The key object must be a struct whose fields carry `json` tags with
// omitempty for every default-valued field, so that two semantically
// equivalent requests serialize to the same bytes. encoding/json marshals
// struct fields in declaration order, which keeps the serialization
// deterministic.
func Fingerprint(key interface{}) (string, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Digest condenses a list of strings (learnings, URLs) into a single short
// hash so that fingerprint keys stay bounded regardless of list size.
// An empty list digests to the empty string so it is omitted from keys.
func Digest(items []string) string {
	if len(items) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(items, "\x1e")))
	return hex.EncodeToString(sum[:8])
}
