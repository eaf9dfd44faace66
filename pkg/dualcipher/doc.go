// Package dualcipher implements the two-stage authenticated encryption
// applied to every sensor payload before it is persisted.
//
// Stage 1 is AES-256-GCM under a per-device key derived from the device
// identifier. Stage 2 is XChaCha20-Poly1305 under a deployment-wide key
// derived from a fixed context label; only stage 1 provides a per-device
// confidentiality boundary.
//
// Keys and nonces are derived deterministically from (deviceID, counter),
// so nonce uniqueness is exactly as strong as counter uniqueness. The
// counter must come from store.NextCounter, which allocates each value
// atomically and never reuses one. A counter reused across two encryptions
// for the same device is a nonce-reuse event and breaks both stages.
package dualcipher
