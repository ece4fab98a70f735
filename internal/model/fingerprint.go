package model

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Fingerprint is a stable hex-encoded SHA3-256 digest used as a dedup key.
type Fingerprint string

// String returns the fingerprint as a string.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first 12 characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// ContentHash returns the hex SHA3-256 digest of a page body.
func ContentHash(body []byte) string {
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// PageFingerprint fingerprints a normalized URL.
func PageFingerprint(normalizedURL string) Fingerprint {
	sum := sha3.Sum256([]byte(normalizedURL))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// RecordFingerprint fingerprints a normalized URL together with the hash
// of the content a record was extracted from.
func RecordFingerprint(normalizedURL, contentHash string) Fingerprint {
	sum := sha3.Sum256([]byte(normalizedURL + "\x00" + contentHash))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
