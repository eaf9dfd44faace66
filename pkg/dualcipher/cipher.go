package dualcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptStage1 encrypts plaintext with AES-256-GCM under the per-device
// key and the nonce derived from (deviceID, counter). The 16-byte tag is
// appended to the ciphertext.
func EncryptStage1(deviceID string, counter uint64, plaintext []byte) ([]byte, error) {
	gcm, err := stage1AEAD(deviceID)
	if err != nil {
		return nil, err
	}
	nonce := Stage1Nonce(deviceID, counter)
	return gcm.Seal(nil, nonce[:], plaintext, nil), nil
}

// DecryptStage1 reverses EncryptStage1. Returns ErrDecryptFailed on tag
// mismatch.
func DecryptStage1(deviceID string, counter uint64, ciphertext []byte) ([]byte, error) {
	gcm, err := stage1AEAD(deviceID)
	if err != nil {
		return nil, err
	}
	nonce := Stage1Nonce(deviceID, counter)
	plaintext, err := gcm.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: stage 1 tag verification", ErrDecryptFailed)
	}
	return plaintext, nil
}

// EncryptStage2 encrypts the stage-1 ciphertext with XChaCha20-Poly1305
// under the shared stage-2 key and the 24-byte nonce derived from
// (deviceID, counter).
func EncryptStage2(deviceID string, counter uint64, stage1Ciphertext []byte) ([]byte, error) {
	aead, err := stage2AEAD()
	if err != nil {
		return nil, err
	}
	nonce := Stage2Nonce(deviceID, counter)
	return aead.Seal(nil, nonce[:], stage1Ciphertext, nil), nil
}

// DecryptStage2 reverses EncryptStage2. Returns ErrDecryptFailed on tag
// mismatch.
func DecryptStage2(deviceID string, counter uint64, ciphertext []byte) ([]byte, error) {
	aead, err := stage2AEAD()
	if err != nil {
		return nil, err
	}
	nonce := Stage2Nonce(deviceID, counter)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: stage 2 tag verification", ErrDecryptFailed)
	}
	return plaintext, nil
}

// Encrypt runs the full composition: stage-2 over stage-1 over plaintext.
// The caller must have allocated counter atomically for exactly this
// encryption; see the package documentation.
func Encrypt(deviceID string, counter uint64, plaintext []byte) ([]byte, error) {
	inner, err := EncryptStage1(deviceID, counter, plaintext)
	if err != nil {
		return nil, err
	}
	return EncryptStage2(deviceID, counter, inner)
}

// Decrypt reverses Encrypt: stage-2 open, then stage-1 open. Requires the
// same (deviceID, counter) pair used at encryption time.
func Decrypt(deviceID string, counter uint64, ciphertext []byte) ([]byte, error) {
	inner, err := DecryptStage2(deviceID, counter, ciphertext)
	if err != nil {
		return nil, err
	}
	return DecryptStage1(deviceID, counter, inner)
}

func stage1AEAD(deviceID string) (cipher.AEAD, error) {
	key := Stage1Key(deviceID)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func stage2AEAD() (cipher.AEAD, error) {
	key := Stage2Key()
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	return aead, nil
}
