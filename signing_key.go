package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// DefaultMinSigningKeyBytes is the minimum secret length accepted unless
// explicitly relaxed. Matches the HS256 output size.
const DefaultMinSigningKeyBytes = 32

// SigningKey is an HMAC secret identified by a key id (kid header)
type SigningKey struct {
	ID     string
	Secret []byte
}

// NewSigningKey derives a stable key id from the secret
func NewSigningKey(secret []byte) SigningKey {
	sum := sha256.Sum256(secret)
	return SigningKey{
		ID:     hex.EncodeToString(sum[:8]),
		Secret: secret,
	}
}

// SigningKeySource describes where the signing secret comes from. Exactly
// one of Secret or File is expected; File may be age encrypted, in which
// case IdentityFile holds the age X25519 identity used to decrypt it.
type SigningKeySource struct {
	Secret       string
	File         string
	IdentityFile string
	MinBytes     int
	AllowWeak    bool
}

// ResolveSigningKey loads the signing secret. A missing secret returns
// ErrMissingSigningKey, which callers must treat as fatal.
func ResolveSigningKey(src SigningKeySource) ([]byte, bool, error) {
	var secret []byte

	switch {
	case strings.TrimSpace(src.Secret) != "":
		secret = []byte(src.Secret)
	case src.File != "":
		raw, err := readSecretFile(src.File, src.IdentityFile)
		if err != nil {
			return nil, false, WrapError(err, ErrMissingSigningKey.Kind, ErrMissingSigningKey.Message)
		}
		secret = raw
	}

	if len(secret) == 0 {
		return nil, false, ErrMissingSigningKey
	}

	minBytes := src.MinBytes
	if minBytes <= 0 {
		minBytes = DefaultMinSigningKeyBytes
	}

	weak := len(secret) < minBytes
	if weak && !src.AllowWeak {
		return nil, true, ErrWeakSigningKey.Clone().WithMetadata(map[string]any{
			"bits":     len(secret) * 8,
			"min_bits": minBytes * 8,
		})
	}

	return secret, weak, nil
}

func readSecretFile(path, identityPath string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key file: %w", err)
	}

	if identityPath == "" {
		return bytes.TrimSpace(raw), nil
	}

	return decryptSecret(raw, identityPath)
}

func decryptSecret(ciphertext []byte, identityPath string) ([]byte, error) {
	rawIdentity, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("read age identity file: %w", err)
	}

	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(rawIdentity)))
	if err != nil {
		return nil, fmt.Errorf("parse age identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt signing key: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read decrypted signing key: %w", err)
	}

	return bytes.TrimSpace(plaintext), nil
}
