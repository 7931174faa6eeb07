package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// rawTokenBytes gives 256 bits of entropy; the raw value itself is the
// security boundary, not the hash comparison.
const rawTokenBytes = 32

func GenerateRawToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the only form of a token that ever reaches storage. No salt:
// the input is high-entropy and only looked up, never brute-forced.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
