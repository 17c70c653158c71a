package livecookie

import (
	"bytes"
	"testing"
)

func TestDecryptor_V10LinuxKey(t *testing.T) {
	key := deriveSafeStorageKey("peanuts", safeStorageIterationsLinux)
	encrypted := encryptAESCBCForTest(t, "v10", key, []byte("hello"))

	decrypt := newDecryptor("", nil)
	plain, ok := decrypt(encrypted, 0)
	if !ok || string(plain) != "hello" {
		t.Fatalf("got %q %v", plain, ok)
	}
}

func TestDecryptor_V11PasswordKey(t *testing.T) {
	key := deriveSafeStorageKey("hunter2", safeStorageIterationsLinux)
	encrypted := encryptAESCBCForTest(t, "v11", key, []byte("secret"))

	decrypt := newDecryptor("hunter2", nil)
	plain, ok := decrypt(encrypted, 0)
	if !ok || string(plain) != "secret" {
		t.Fatalf("got %q %v", plain, ok)
	}

	// Without the password only the empty-key fallback is tried.
	if _, ok := newDecryptor("", nil)(encrypted, 0); ok {
		t.Fatalf("decrypt should fail without the password")
	}
}

func TestDecryptor_V10MacOSIterations(t *testing.T) {
	key := deriveSafeStorageKey("keychain-pw", safeStorageIterationsMacOS)
	encrypted := encryptAESCBCForTest(t, "v10", key, []byte("mac"))

	plain, ok := newDecryptor("keychain-pw", nil)(encrypted, 0)
	if !ok || string(plain) != "mac" {
		t.Fatalf("got %q %v", plain, ok)
	}
}

func TestDecryptor_V10GCMRawKey(t *testing.T) {
	rawKey := bytes.Repeat([]byte{0x42}, 32)
	nonce := bytes.Repeat([]byte{0x07}, 12)
	encrypted := encryptAESGCMForTest(t, "v10", rawKey, nonce, []byte("gcm-value"))

	plain, ok := newDecryptor("", rawKey)(encrypted, 0)
	if !ok || string(plain) != "gcm-value" {
		t.Fatalf("got %q %v", plain, ok)
	}
}

func TestDecryptor_HashPrefixStripped(t *testing.T) {
	key := deriveSafeStorageKey("peanuts", safeStorageIterationsLinux)
	plaintext := append(bytes.Repeat([]byte{0xAA}, 32), []byte("value")...)
	encrypted := encryptAESCBCForTest(t, "v10", key, plaintext)

	plain, ok := newDecryptor("", nil)(encrypted, 24)
	if !ok || string(plain) != "value" {
		t.Fatalf("got %q %v, want host hash stripped at meta version 24", plain, ok)
	}

	plain, ok = newDecryptor("", nil)(encrypted, 23)
	if !ok || len(plain) != 37 {
		t.Fatalf("meta version 23 should keep the full plaintext, got %d bytes", len(plain))
	}
}

func TestDecryptor_UnknownPrefixAndShortInput(t *testing.T) {
	decrypt := newDecryptor("", nil)
	if _, ok := decrypt([]byte("v9"), 0); ok {
		t.Fatalf("short input should fail")
	}
	if _, ok := decrypt([]byte("v99garbage......."), 0); ok {
		t.Fatalf("unknown prefix should fail")
	}
}

func TestRemovePKCS7Padding_Invalid(t *testing.T) {
	if _, err := removePKCS7Padding([]byte{1, 2, 3, 250}); err == nil {
		t.Fatalf("want error for oversized padding")
	}
	if _, err := removePKCS7Padding([]byte{2, 3}); err == nil {
		t.Fatalf("want error for inconsistent padding bytes")
	}
}

func TestDecodeCookieValue(t *testing.T) {
	v, ok := decodeCookieValue([]byte{0x01, 0x02, 'o', 'k'})
	if !ok || v != "ok" {
		t.Fatalf("got %q %v", v, ok)
	}
	if _, ok := decodeCookieValue([]byte{0xff, 0xfe}); ok {
		t.Fatalf("invalid utf8 should fail")
	}
}
