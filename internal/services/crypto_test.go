package services_test

import (
	"bytes"
	"testing"

	"github.com/routervault/routervault/internal/services"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestCryptoRoundTrip(t *testing.T) {
	crypto, err := services.NewCryptoService(testKey(0x42))
	if err != nil {
		t.Fatalf("NewCryptoService() error: %v", err)
	}

	encrypted, err := crypto.Encrypt("s3cret-password")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if encrypted == "s3cret-password" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := crypto.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if decrypted != "s3cret-password" {
		t.Errorf("Decrypt() = %q, want original plaintext", decrypted)
	}
}

func TestCryptoEmptyString(t *testing.T) {
	crypto, _ := services.NewCryptoService(testKey(0x42))

	encrypted, err := crypto.Encrypt("")
	if err != nil || encrypted != "" {
		t.Errorf("Encrypt(\"\") = (%q, %v), want (\"\", nil)", encrypted, err)
	}
	decrypted, err := crypto.Decrypt("")
	if err != nil || decrypted != "" {
		t.Errorf("Decrypt(\"\") = (%q, %v), want (\"\", nil)", decrypted, err)
	}
}

func TestCryptoKeyLength(t *testing.T) {
	if _, err := services.NewCryptoService([]byte("short")); err == nil {
		t.Error("expected error for a short key")
	}
	if _, err := services.NewCryptoService(bytes.Repeat([]byte{1}, 64)); err == nil {
		t.Error("expected error for an oversized key")
	}
}

func TestCryptoWrongKey(t *testing.T) {
	a, _ := services.NewCryptoService(testKey(0x01))
	b, _ := services.NewCryptoService(testKey(0x02))

	encrypted, err := a.Encrypt("password")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := b.Decrypt(encrypted); err == nil {
		t.Error("decrypting with a different key should fail")
	}
}

func TestCryptoGarbageInput(t *testing.T) {
	crypto, _ := services.NewCryptoService(testKey(0x42))

	if _, err := crypto.Decrypt("not base64 at all!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := crypto.Decrypt("c2hvcnQ="); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}
