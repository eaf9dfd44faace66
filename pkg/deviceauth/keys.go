package deviceauth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// ParsePublicKeyJWK parses a JWK JSON document into an Ed25519 public key.
// Any other key type is rejected: the verification algorithm is fixed and
// never selected from attacker-controlled input.
func ParsePublicKeyJWK(jwkJSON string) (ed25519.PublicKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(jwkJSON), &jwk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	publicKey, ok := jwk.Key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected Ed25519 public key, got %T", ErrInvalidKey, jwk.Key)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: key has length %d, expected %d", ErrInvalidKey, len(publicKey), ed25519.PublicKeySize)
	}

	return publicKey, nil
}

// PublicKeyToJWK serializes an Ed25519 public key as JWK JSON, the format
// devices supply at registration.
func PublicKeyToJWK(publicKey ed25519.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: publicKey, Algorithm: string(jose.EdDSA)}
	data, err := jwk.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal JWK: %w", err)
	}
	return string(data), nil
}

// KeyFingerprint computes the SHA-256 fingerprint of an Ed25519 public key
// as a lowercase hex string. The same key always produces the same
// fingerprint.
func KeyFingerprint(publicKey ed25519.PublicKey) string {
	sum := sha256.Sum256(publicKey)
	return hex.EncodeToString(sum[:])
}
