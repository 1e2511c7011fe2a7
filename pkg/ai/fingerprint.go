package ai

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the memoization key for a request from its semantic
// payload. Identical (action, content, question) triples always produce the
// identical key; the fields are joined with a NUL separator so adjacent
// fields cannot collide by concatenation.
func Fingerprint(action Action, content, question string) string {
	h := sha256.New()
	h.Write([]byte(action))
	h.Write([]byte{0})
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return hex.EncodeToString(h.Sum(nil))
}
