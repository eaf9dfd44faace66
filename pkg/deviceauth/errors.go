package deviceauth

import "errors"

var (
	// ErrInvalidKey indicates the supplied JWK JSON could not be parsed
	// into an Ed25519 public key.
	ErrInvalidKey = errors.New("invalid device public key")

	// ErrMalformedEnvelope indicates the JWS is not a three-segment
	// base64url compact envelope.
	ErrMalformedEnvelope = errors.New("malformed signature envelope")

	// ErrPayloadMismatch indicates the envelope's embedded payload differs
	// from the payload the caller is trying to authenticate.
	ErrPayloadMismatch = errors.New("payload does not match signature envelope")

	// ErrBadSignature indicates the Ed25519 signature did not verify.
	ErrBadSignature = errors.New("invalid envelope signature")
)
