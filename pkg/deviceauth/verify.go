package deviceauth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// maxEnvelopeSize caps accepted JWS envelopes. Sensor readings are small;
// anything larger is hostile input.
const maxEnvelopeSize = 16 * 1024

// Verify checks a compact JWS envelope against the payload bytes the caller
// intends to process and the device's stored public key (JWK JSON).
//
// Steps, each a distinct failure point:
//  1. Parse the JWK; must contain an Ed25519 public key.
//  2. Split the envelope on '.'; exactly 3 non-empty segments.
//  3. Base64url-decode (no padding) header, payload, signature.
//  4. Compare the decoded payload byte-for-byte against expectedPayload.
//     Checked BEFORE signature verification so a valid signature over a
//     different payload never passes.
//  5. Verify the Ed25519 signature over the original text
//     "header_segment.payload_segment".
func Verify(envelope string, expectedPayload []byte, publicKeyJWK string) error {
	publicKey, err := ParsePublicKeyJWK(publicKeyJWK)
	if err != nil {
		return err
	}

	if envelope == "" {
		return fmt.Errorf("%w: empty envelope", ErrMalformedEnvelope)
	}
	if len(envelope) > maxEnvelopeSize {
		return fmt.Errorf("%w: envelope exceeds %d bytes", ErrMalformedEnvelope, maxEnvelopeSize)
	}

	parts := strings.Split(envelope, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedEnvelope, len(parts))
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("%w: empty segment", ErrMalformedEnvelope)
	}

	if _, err := base64.RawURLEncoding.DecodeString(parts[0]); err != nil {
		return fmt.Errorf("%w: header is not base64url", ErrMalformedEnvelope)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("%w: payload is not base64url", ErrMalformedEnvelope)
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("%w: signature is not base64url", ErrMalformedEnvelope)
	}

	if !bytes.Equal(payload, expectedPayload) {
		return ErrPayloadMismatch
	}

	signingInput := []byte(parts[0] + "." + parts[1])
	if !ed25519.Verify(publicKey, signingInput, signature) {
		return ErrBadSignature
	}

	return nil
}
