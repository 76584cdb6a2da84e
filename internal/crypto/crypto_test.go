package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	kdf, err := NewKDF()
	if err != nil {
		t.Fatalf("Failed to create KDF: %v", err)
	}

	if len(kdf.Salt) != SaltSize {
		t.Fatalf("Salt size mismatch: got %d, want %d", len(kdf.Salt), SaltSize)
	}
	if kdf.Iterations != DefaultIters {
		t.Errorf("Iterations mismatch: got %d, want %d", kdf.Iterations, DefaultIters)
	}

	password := []byte("correct-horse")
	key1 := kdf.DeriveKey(password)
	key2 := kdf.DeriveKey(password)

	if len(key1) != KeySize {
		t.Fatalf("Key size mismatch: got %d, want %d", len(key1), KeySize)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("Same password and salt should derive the same key")
	}

	// Different password must yield a different key
	other := kdf.DeriveKey([]byte("wrong-horse"))
	if bytes.Equal(key1, other) {
		t.Error("Different passwords derived the same key")
	}

	// Restored parameters must reproduce the key
	restored := KDFFrom(kdf.Salt, kdf.Iterations)
	key3 := restored.DeriveKey(password)
	if !bytes.Equal(key1, key3) {
		t.Error("KDFFrom did not reproduce the derived key")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateRandom(KeySize)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	defer enc.Destroy()

	iv, err := GenerateIV()
	if err != nil {
		t.Fatalf("Failed to generate IV: %v", err)
	}

	plaintext := []byte("some file content that should round-trip")
	ciphertext, err := enc.Seal(iv, plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Tag is appended to the ciphertext
	if len(ciphertext) != len(plaintext)+TagSize {
		t.Errorf("Ciphertext length mismatch: got %d, want %d", len(ciphertext), len(plaintext)+TagSize)
	}

	decrypted, err := enc.Open(iv, ciphertext)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("Round-trip did not reproduce the plaintext")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	key, _ := GenerateRandom(KeySize)
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	defer enc.Destroy()

	iv, _ := GenerateIV()
	ciphertext, err := enc.Seal(iv, []byte("sensitive"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Flip one bit
	ciphertext[0] ^= 0x01
	if _, err := enc.Open(iv, ciphertext); err != ErrAuthFailed {
		t.Errorf("Expected ErrAuthFailed on tampered ciphertext, got %v", err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key1, _ := GenerateRandom(KeySize)
	key2, _ := GenerateRandom(KeySize)

	enc1, err := NewEncryptor(key1)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	enc2, err := NewEncryptor(key2)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	iv, _ := GenerateIV()
	ciphertext, err := enc1.Seal(iv, []byte("sensitive"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := enc2.Open(iv, ciphertext); err != ErrAuthFailed {
		t.Errorf("Expected ErrAuthFailed with wrong key, got %v", err)
	}
}

func TestSealRejectsBadIV(t *testing.T) {
	key, _ := GenerateRandom(KeySize)
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	if _, err := enc.Seal([]byte("short"), []byte("data")); err != ErrInvalidIV {
		t.Errorf("Expected ErrInvalidIV, got %v", err)
	}
	if _, err := enc.Open([]byte("short"), make([]byte, TagSize)); err != ErrInvalidIV {
		t.Errorf("Expected ErrInvalidIV, got %v", err)
	}
}

func TestEncryptDecryptBlob(t *testing.T) {
	key, _ := GenerateRandom(KeySize)
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	blob, err := enc.Encrypt([]byte("verification"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(blob) != IVSize+len("verification")+TagSize {
		t.Errorf("Blob length mismatch: got %d", len(blob))
	}

	plaintext, err := enc.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(plaintext) != "verification" {
		t.Errorf("Blob round-trip mismatch: got %q", plaintext)
	}

	// Truncated blob
	if _, err := enc.Decrypt(blob[:IVSize]); err != ErrInvalidCiphertext {
		t.Errorf("Expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestIVUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		iv, err := GenerateIV()
		if err != nil {
			t.Fatalf("Failed to generate IV: %v", err)
		}
		if len(iv) != IVSize {
			t.Fatalf("IV size mismatch: got %d, want %d", len(iv), IVSize)
		}
		if seen[string(iv)] {
			t.Fatal("Duplicate IV generated")
		}
		seen[string(iv)] = true
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("Byte %d not cleared: %d", i, v)
		}
	}
}
