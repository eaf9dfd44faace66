package dualcipher

import (
	"bytes"
	"errors"
	"testing"
)

func TestNonceDerivation(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := Stage1Nonce("did:example:1", 7)
		b := Stage1Nonce("did:example:1", 7)
		if a != b {
			t.Errorf("stage-1 nonce not deterministic: %x vs %x", a, b)
		}

		c := Stage2Nonce("did:example:1", 7)
		d := Stage2Nonce("did:example:1", 7)
		if c != d {
			t.Errorf("stage-2 nonce not deterministic: %x vs %x", c, d)
		}
	})

	t.Run("CounterChangesNonce", func(t *testing.T) {
		if Stage1Nonce("did:example:1", 1) == Stage1Nonce("did:example:1", 2) {
			t.Error("stage-1 nonces collide across counters")
		}
		if Stage2Nonce("did:example:1", 1) == Stage2Nonce("did:example:1", 2) {
			t.Error("stage-2 nonces collide across counters")
		}
	})

	t.Run("DeviceChangesNonce", func(t *testing.T) {
		if Stage1Nonce("did:example:1", 1) == Stage1Nonce("did:example:2", 1) {
			t.Error("stage-1 nonces collide across devices")
		}
	})

	t.Run("StageDomainSeparation", func(t *testing.T) {
		// The stage-2 suffix must keep the two nonce streams disjoint
		// even though both derive from the same seed.
		s1 := Stage1Nonce("did:example:1", 42)
		s2 := Stage2Nonce("did:example:1", 42)
		if bytes.Equal(s1[:], s2[:len(s1)]) {
			t.Error("stage-2 nonce shares its prefix with stage-1")
		}
	})
}

func TestKeyDerivation(t *testing.T) {
	k1a := Stage1Key("did:example:1")
	k1b := Stage1Key("did:example:1")
	if k1a != k1b {
		t.Error("stage-1 key not deterministic")
	}
	if Stage1Key("did:example:1") == Stage1Key("did:example:2") {
		t.Error("stage-1 keys equal across devices")
	}
	// Stage-2 key is intentionally device-independent.
	if Stage2Key() != Stage2Key() {
		t.Error("stage-2 key not deterministic")
	}

	if Stage1KeyFingerprint("did:example:1") == Stage2KeyFingerprint() {
		t.Error("stage fingerprints collide")
	}
	if len(Stage1KeyFingerprint("did:example:1")) != 64 {
		t.Errorf("fingerprint not 64 hex chars: %q", Stage1KeyFingerprint("did:example:1"))
	}
}

func TestRoundTrip(t *testing.T) {
	deviceID := "did:example:roundtrip"
	plaintext := []byte("sensor_reading:temperature=23.5,humidity=45.2")

	t.Run("Stage1", func(t *testing.T) {
		ct, err := EncryptStage1(deviceID, 1, plaintext)
		if err != nil {
			t.Fatalf("EncryptStage1 failed: %v", err)
		}
		pt, err := DecryptStage1(deviceID, 1, ct)
		if err != nil {
			t.Fatalf("DecryptStage1 failed: %v", err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Errorf("got %q, want %q", pt, plaintext)
		}
	})

	t.Run("Stage2", func(t *testing.T) {
		ct, err := EncryptStage2(deviceID, 1, plaintext)
		if err != nil {
			t.Fatalf("EncryptStage2 failed: %v", err)
		}
		pt, err := DecryptStage2(deviceID, 1, ct)
		if err != nil {
			t.Fatalf("DecryptStage2 failed: %v", err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Errorf("got %q, want %q", pt, plaintext)
		}
	})

	t.Run("Composed", func(t *testing.T) {
		ct, err := Encrypt(deviceID, 9, plaintext)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		pt, err := Decrypt(deviceID, 9, ct)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Errorf("got %q, want %q", pt, plaintext)
		}
	})

	t.Run("WrongCounter", func(t *testing.T) {
		ct, err := Encrypt(deviceID, 3, plaintext)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := Decrypt(deviceID, 4, ct); !errors.Is(err, ErrDecryptFailed) {
			t.Errorf("expected ErrDecryptFailed for wrong counter, got %v", err)
		}
	})

	t.Run("WrongDevice", func(t *testing.T) {
		ct, err := Encrypt(deviceID, 3, plaintext)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := Decrypt("did:example:other", 3, ct); !errors.Is(err, ErrDecryptFailed) {
			t.Errorf("expected ErrDecryptFailed for wrong device, got %v", err)
		}
	})

	t.Run("EmptyPlaintext", func(t *testing.T) {
		ct, err := Encrypt(deviceID, 5, nil)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		pt, err := Decrypt(deviceID, 5, ct)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if len(pt) != 0 {
			t.Errorf("expected empty plaintext, got %q", pt)
		}
	})
}

// TestTamperDetection flips every bit of both stage ciphertexts (including
// the appended tags) and requires each flip to fail decryption rather than
// return altered plaintext.
func TestTamperDetection(t *testing.T) {
	deviceID := "did:example:tamper"
	plaintext := []byte("temperature:23.5")

	t.Run("Stage1", func(t *testing.T) {
		ct, err := EncryptStage1(deviceID, 1, plaintext)
		if err != nil {
			t.Fatalf("EncryptStage1 failed: %v", err)
		}
		for i := range ct {
			for bit := 0; bit < 8; bit++ {
				mutated := make([]byte, len(ct))
				copy(mutated, ct)
				mutated[i] ^= 1 << bit
				if _, err := DecryptStage1(deviceID, 1, mutated); err == nil {
					t.Fatalf("bit flip at byte %d bit %d not detected", i, bit)
				}
			}
		}
	})

	t.Run("Stage2", func(t *testing.T) {
		ct, err := EncryptStage2(deviceID, 1, plaintext)
		if err != nil {
			t.Fatalf("EncryptStage2 failed: %v", err)
		}
		for i := range ct {
			for bit := 0; bit < 8; bit++ {
				mutated := make([]byte, len(ct))
				copy(mutated, ct)
				mutated[i] ^= 1 << bit
				if _, err := DecryptStage2(deviceID, 1, mutated); err == nil {
					t.Fatalf("bit flip at byte %d bit %d not detected", i, bit)
				}
			}
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		ct, err := Encrypt(deviceID, 1, plaintext)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := Decrypt(deviceID, 1, ct[:len(ct)-1]); err == nil {
			t.Error("truncated ciphertext not detected")
		}
	})
}
