package dualcipher

import "errors"

var (
	// ErrInvalidKeySize is returned when a stage key is not 32 bytes.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrDecryptFailed is returned when tag verification fails during open.
	// Both stages fail closed: tampered ciphertext never yields plaintext.
	ErrDecryptFailed = errors.New("decryption failed")
)
