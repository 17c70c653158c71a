package livecookie

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // Chromium PBKDF2 uses SHA1 ("saltysalt", sha1) for legacy cookie encryption.
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	safeStorageSalt            = "saltysalt"
	safeStorageIV              = "                " // 16 spaces
	safeStorageIterationsLinux = 1
	safeStorageIterationsMacOS = 1003
	safeStorageKeyLen          = 16
)

// decryptFunc turns one encrypted_value column into plaintext. metaVersion is
// the Chromium schema version (>= 24 prefixes the plaintext with a host hash).
type decryptFunc func(encrypted []byte, metaVersion int64) ([]byte, bool)

// newDecryptor builds a best-effort decryptor for Chromium encrypted values.
// password is the Safe Storage password (may be empty), rawKey an optional
// 32-byte AES-256-GCM key for stores whose master key was obtained out of
// band. Every candidate key is tried in turn; failure to decrypt a value is
// not an error, the value is just skipped upstream.
func newDecryptor(password string, rawKey []byte) decryptFunc {
	v10Keys := [][]byte{
		deriveSafeStorageKey("peanuts", safeStorageIterationsLinux),
		deriveSafeStorageKey("", safeStorageIterationsLinux),
	}
	if password != "" {
		// macOS derives the v10 key from the keychain password.
		v10Keys = append([][]byte{deriveSafeStorageKey(password, safeStorageIterationsMacOS)}, v10Keys...)
	}
	v11Keys := [][]byte{
		deriveSafeStorageKey(password, safeStorageIterationsLinux),
		deriveSafeStorageKey("", safeStorageIterationsLinux),
	}

	return func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		if len(encrypted) < 3 {
			return nil, false
		}
		switch string(encrypted[:3]) {
		case "v10":
			if len(rawKey) == 32 {
				if plain, err := decryptAES256GCM(encrypted, rawKey, metaVersion); err == nil {
					return plain, true
				}
			}
			for _, key := range v10Keys {
				if plain, err := decryptAESCBC(encrypted, key, metaVersion); err == nil {
					return plain, true
				}
			}
			return nil, false
		case "v11":
			for _, key := range v11Keys {
				if plain, err := decryptAESCBC(encrypted, key, metaVersion); err == nil {
					return plain, true
				}
			}
			return nil, false
		default:
			return nil, false
		}
	}
}

func deriveSafeStorageKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(safeStorageSalt), iterations, safeStorageKeyLen, sha1.New)
}

func decryptAESCBC(encrypted []byte, key []byte, metaVersion int64) ([]byte, error) {
	if len(encrypted) <= 3 {
		return nil, fmt.Errorf("encrypted value too short (%d<=3)", len(encrypted))
	}
	ciphertext := encrypted[3:]
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("cipher input not full blocks")
	}

	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, []byte(safeStorageIV))
	cbc.CryptBlocks(out, ciphertext)

	out, err = removePKCS7Padding(out)
	if err != nil {
		return nil, err
	}
	return stripHashPrefix(out, metaVersion), nil
}

func decryptAES256GCM(encrypted []byte, key []byte, metaVersion int64) ([]byte, error) {
	if len(encrypted) < 3+12+16 {
		return nil, errors.New("encrypted value too short")
	}
	payload := encrypted[3:]
	nonce := payload[:12]
	ciphertextAndTag := payload[12:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := aesgcm.Open(nil, nonce, ciphertextAndTag, nil)
	if err != nil {
		return nil, err
	}
	return stripHashPrefix(plain, metaVersion), nil
}

// stripHashPrefix drops the 32-byte SHA-256 host hash Chromium prepends to
// plaintext values from schema version 24 on.
func stripHashPrefix(plain []byte, metaVersion int64) []byte {
	if metaVersion >= 24 && len(plain) >= 32 {
		return plain[32:]
	}
	return plain
}

func removePKCS7Padding(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	paddingLen := int(b[len(b)-1])
	if paddingLen <= 0 || paddingLen > aes.BlockSize || paddingLen > len(b) {
		return nil, fmt.Errorf("invalid padding length: %d", paddingLen)
	}
	for _, p := range b[len(b)-paddingLen:] {
		if int(p) != paddingLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-paddingLen], nil
}

func decodeCookieValue(b []byte) (string, bool) {
	b = stripLeadingControlBytes(b)
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func stripLeadingControlBytes(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] < 0x20 {
		i++
	}
	return bytes.Clone(b[i:])
}
