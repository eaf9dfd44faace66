package dualcipher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const (
	// stage2Context is the fixed key-derivation label for stage 2. The
	// resulting key is shared by all devices; per-device separation comes
	// from the stage-1 key and from the nonces, not from this key.
	stage2Context = "iot-sensor-data-v1"

	// stage2NonceSuffix domain-separates stage-2 nonce material from
	// stage-1 even though both derive from the same (deviceID, counter).
	stage2NonceSuffix = "stage2"

	stage1NonceSize = 12
	stage2NonceSize = 24
)

// Stage1Key derives the per-device AES-256-GCM key from the device
// identifier. Deterministic: one key per device, no external key material.
func Stage1Key(deviceID string) [32]byte {
	return sha256.Sum256([]byte(deviceID))
}

// Stage2Key derives the deployment-wide XChaCha20-Poly1305 key from the
// fixed context label.
func Stage2Key() [32]byte {
	return sha256.Sum256([]byte(stage2Context))
}

// Stage1Nonce derives the 96-bit stage-1 nonce from (deviceID, counter).
// Pure function: equal inputs yield bit-identical output across process
// restarts.
func Stage1Nonce(deviceID string, counter uint64) [stage1NonceSize]byte {
	h := sha256.New()
	h.Write([]byte(deviceID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	h.Write(buf[:])

	var nonce [stage1NonceSize]byte
	copy(nonce[:], h.Sum(nil))
	return nonce
}

// Stage2Nonce derives the 192-bit stage-2 nonce from (deviceID, counter).
// The trailing suffix guarantees the stage-1 and stage-2 nonce streams
// never collide for the same seed.
func Stage2Nonce(deviceID string, counter uint64) [stage2NonceSize]byte {
	h := sha256.New()
	h.Write([]byte(deviceID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	h.Write(buf[:])
	h.Write([]byte(stage2NonceSuffix))

	var nonce [stage2NonceSize]byte
	copy(nonce[:], h.Sum(nil))
	return nonce
}

// Stage1KeyFingerprint returns the lowercase hex SHA-256 of the stage-1 key
// for a device. Stored alongside ciphertext for auditability; never used
// for decryption.
func Stage1KeyFingerprint(deviceID string) string {
	key := Stage1Key(deviceID)
	sum := sha256.Sum256(key[:])
	return hex.EncodeToString(sum[:])
}

// Stage2KeyFingerprint returns the lowercase hex SHA-256 of the stage-2 key.
func Stage2KeyFingerprint() string {
	key := Stage2Key()
	sum := sha256.Sum256(key[:])
	return hex.EncodeToString(sum[:])
}
