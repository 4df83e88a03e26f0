package cryptofile

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte(`{"access_token": "secret", "refresh_token": "also secret"}`)

	encrypted, err := Encrypt(plaintext, "passphrase")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(encrypted, []byte("secret")) {
		t.Error("ciphertext leaks plaintext")
	}
	if !IsEncrypted(encrypted) {
		t.Error("encrypted output should carry the magic header")
	}

	decrypted, err := Decrypt(encrypted, "passphrase")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: %q", decrypted)
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), "right")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(encrypted, "wrong"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), "pass")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	encrypted[len(encrypted)-1] ^= 0xFF
	if _, err := Decrypt(encrypted, "pass"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed for tampered data, got %v", err)
	}
}

func TestDecrypt_NotEncrypted(t *testing.T) {
	if _, err := Decrypt([]byte(`{"plain": "json"}`), "pass"); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
	if _, err := Decrypt([]byte("x"), "pass"); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic for short data, got %v", err)
	}
}

func TestDecrypt_UnsupportedVersion(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), "pass")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	encrypted[4] = 0xFF
	if _, err := Decrypt(encrypted, "pass"); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestIsEncrypted(t *testing.T) {
	if IsEncrypted([]byte(`{"json": true}`)) {
		t.Error("plain JSON misdetected as encrypted")
	}
	if IsEncrypted([]byte("VB")) {
		t.Error("short data misdetected as encrypted")
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.enc")
	plaintext := []byte("credentials")

	if err := WriteFile(path, plaintext, "pass"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path, "pass")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestEncrypt_UniqueSaltAndNonce(t *testing.T) {
	a, err := Encrypt([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := Encrypt([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext must differ")
	}
}
