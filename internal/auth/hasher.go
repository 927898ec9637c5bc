package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default Argon2id parameters, per current OWASP guidance. The parameters
// are embedded in every hash string, so they can be tuned later without a
// schema migration: old hashes keep verifying with the values they carry.
const (
	defaultMemoryKiB  = 19 * 1024
	defaultIterations = 2
	defaultThreads    = 1
	saltLength        = 16
	keyLength         = 32

	// secretLength is the number of random bytes in a generated secret
	// (256 bits of entropy).
	secretLength = 32
)

// Hasher produces and verifies salted Argon2id hashes of API key secrets.
// The zero value is not usable; construct with NewHasher.
type Hasher struct {
	memoryKiB  uint32
	iterations uint32
	threads    uint8

	// dummyHash is compared against when no stored hash exists, so the
	// not-found path costs the same as a real verification.
	dummyHash string
}

// NewHasher returns a Hasher with the default cost parameters and a
// precomputed dummy hash over a random throwaway secret.
func NewHasher() (*Hasher, error) {
	h := &Hasher{
		memoryKiB:  defaultMemoryKiB,
		iterations: defaultIterations,
		threads:    defaultThreads,
	}

	throwaway, err := h.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummy, err := h.Hash(throwaway)
	if err != nil {
		return nil, fmt.Errorf("hash dummy secret: %w", err)
	}
	h.dummyHash = dummy
	return h, nil
}

// GenerateSecret returns a cryptographically random secret encoded as
// unpadded URL-safe base64. This encoding is what the operator sees once at
// creation and what clients send as the Basic auth password.
func (h *Hasher) GenerateSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash computes an Argon2id hash of the secret with a fresh random salt.
// The output is a PHC-format string carrying the algorithm version, cost
// parameters, salt, and digest, e.g.
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<digest>
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	digest := argon2.IDKey([]byte(secret), salt, h.iterations, h.memoryKiB, h.threads, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memoryKiB, h.iterations, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify reports whether secret matches the stored PHC-format hash. The
// comparison is constant time. A malformed stored hash is treated as a
// non-match; Verify never returns an error to its caller's request path.
func (h *Hasher) Verify(secret, storedHash string) bool {
	salt, digest, memoryKiB, iterations, threads, ok := parsePHC(storedHash)
	if !ok {
		return false
	}

	candidate := argon2.IDKey([]byte(secret), salt, iterations, memoryKiB, threads, uint32(len(digest)))
	return subtle.ConstantTimeCompare(candidate, digest) == 1
}

// VerifyDummy runs a full verification against the precomputed dummy hash
// and discards the result. Used to flatten the timing profile when no
// credential record exists.
func (h *Hasher) VerifyDummy(secret string) {
	h.Verify(secret, h.dummyHash)
}

// parsePHC decodes a $argon2id$ PHC string into its components. ok is false
// for anything that does not parse cleanly.
func parsePHC(s string) (salt, digest []byte, memoryKiB, iterations uint32, threads uint8, ok bool) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if m == 0 || t == 0 || p == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, false
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, digest, m, t, p, true
}
