package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes   = 16
	digestBytes = 32

	// MinHashIterations guards against a misconfigured cost parameter
	// silently weakening stored digests.
	MinHashIterations = 10_000
)

// PasswordHasher derives and verifies salted PBKDF2-SHA256 digests. The
// iteration count is the externally supplied cost knob: higher trades login
// latency for brute-force resistance.
type PasswordHasher struct {
	iterations int
}

func NewPasswordHasher(iterations int) (*PasswordHasher, error) {
	if iterations < MinHashIterations {
		return nil, fmt.Errorf("hash iterations %d below minimum %d", iterations, MinHashIterations)
	}
	return &PasswordHasher{iterations: iterations}, nil
}

// NewSalt returns a fresh hex-encoded random salt. Generated once per teacher
// at account creation and never reused.
func (h *PasswordHasher) NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash is deterministic for a given (password, salt) pair.
func (h *PasswordHasher) Hash(password, salt string) string {
	digest := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, digestBytes, sha256.New)
	return hex.EncodeToString(digest)
}

// Verify recomputes the digest and compares in constant time.
func (h *PasswordHasher) Verify(password, salt, expectedDigest string) bool {
	computed := h.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expectedDigest)) == 1
}
