package auth

import (
	"encoding/base64"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher()
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestGenerateSecret(t *testing.T) {
	h := newTestHasher(t)

	s1, err := h.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	s2, err := h.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	if s1 == s2 {
		t.Fatal("two generated secrets are identical")
	}

	raw, err := base64.RawURLEncoding.DecodeString(s1)
	if err != nil {
		t.Fatalf("secret is not valid base64: %v", err)
	}
	if len(raw) != secretLength {
		t.Errorf("got %d random bytes, want %d", len(raw), secretLength)
	}
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	secret, err := h.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	hash, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q does not carry the argon2id prefix", hash)
	}
	if strings.Contains(hash, secret) {
		t.Error("plaintext secret leaked into hash output")
	}

	if !h.Verify(secret, hash) {
		t.Error("Verify failed for the correct secret")
	}
	if h.Verify("not-the-secret", hash) {
		t.Error("Verify succeeded for a wrong secret")
	}
	if h.Verify("", hash) {
		t.Error("Verify succeeded for an empty secret")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	h1, err := h.Hash("same-secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("same-secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same secret are identical (salt not applied)")
	}

	// Both must still verify.
	if !h.Verify("same-secret", h1) || !h.Verify("same-secret", h2) {
		t.Error("salted hashes failed to verify")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	malformed := []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$ZGlnZXN0",
		"$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$",
		"$argon2id$v=19$m=19456,t=2,p=1$c2FsdA",
	}

	for _, stored := range malformed {
		if h.Verify("anything", stored) {
			t.Errorf("Verify returned true for malformed hash %q", stored)
		}
	}
}

func TestVerifyEmbeddedParameters(t *testing.T) {
	h := newTestHasher(t)

	// A hash produced with different cost parameters must still verify,
	// since the parameters travel inside the string.
	other := &Hasher{memoryKiB: 8 * 1024, iterations: 1, threads: 2}
	hash, err := other.Hash("portable-secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("portable-secret", hash) {
		t.Error("hash with non-default embedded parameters failed to verify")
	}
}

func TestVerifyDummy(t *testing.T) {
	h := newTestHasher(t)
	// Must not panic and must not validate anything.
	h.VerifyDummy("whatever")
	if h.dummyHash == "" {
		t.Fatal("dummy hash not precomputed")
	}
	if h.Verify("whatever", h.dummyHash) {
		t.Error("arbitrary secret verified against the dummy hash")
	}
}
