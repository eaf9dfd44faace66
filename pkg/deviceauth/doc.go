// Package deviceauth verifies that a sensor reading was produced by the
// device it claims to come from.
//
// Devices sign their readings as compact JWS envelopes
// (base64url(header).base64url(payload).base64url(signature)) with an
// Ed25519 key. The verifier is handed the envelope, the raw payload bytes
// the caller is about to process, and the device's public key as JWK JSON.
// The decoded envelope payload is compared byte-for-byte against the
// caller's payload before any signature math runs, so a valid signature
// over a different payload can never authenticate this one.
//
// Verification failure is a normal, expected outcome (a hostile or
// misconfigured device) and maps to rejecting the request, never to a
// process-level fault.
package deviceauth
