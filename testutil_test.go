package livecookie

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// stubStore is a scriptable Store for mirror tests: List returns whatever is
// configured, and tests push raw events (including malformed ones) straight
// through the emitter.
type stubStore struct {
	emitter
	cookies []Cookie
	listErr error

	listCalls int
}

func (s *stubStore) List(_ context.Context) ([]Cookie, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.cookies, nil
}

func (s *stubStore) AddEventListener(kind string, l ChangeListener)    { s.add(kind, l) }
func (s *stubStore) RemoveEventListener(kind string, l ChangeListener) { s.remove(kind, l) }

var errListFailed = errors.New("list failed")

func openTestSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createChromiumSchema(t *testing.T, db *sql.DB, metaVersion string) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`,
		`INSERT INTO meta (key, value) VALUES ('version', '` + metaVersion + `')`,
		`CREATE TABLE cookies (
			creation_utc INTEGER,
			host_key TEXT,
			name TEXT,
			value TEXT,
			encrypted_value BLOB,
			path TEXT,
			expires_utc INTEGER,
			is_secure INTEGER,
			is_httponly INTEGER,
			samesite INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
}

func insertChromiumCookie(t *testing.T, db *sql.DB, creation int64, host, name, value string, encrypted []byte) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO cookies (creation_utc, host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly, samesite)
		 VALUES (?, ?, ?, ?, ?, '/', 0, 0, 0, 1)`,
		creation, host, name, value, encrypted,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func createFirefoxSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE moz_cookies (
		creationTime INTEGER,
		host TEXT,
		name TEXT,
		value TEXT,
		path TEXT,
		expiry INTEGER,
		isSecure INTEGER,
		isHttpOnly INTEGER,
		sameSite INTEGER
	)`)
	if err != nil {
		t.Fatal(err)
	}
}

func insertFirefoxCookie(t *testing.T, db *sql.DB, creation int64, host, name, value string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO moz_cookies (creationTime, host, name, value, path, expiry, isSecure, isHttpOnly, sameSite)
		 VALUES (?, ?, ?, ?, '/', 0, 0, 0, 1)`,
		creation, host, name, value,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func pkcs7Pad(t *testing.T, b []byte) []byte {
	t.Helper()
	paddingLen := aes.BlockSize - (len(b) % aes.BlockSize)
	if paddingLen == 0 {
		paddingLen = aes.BlockSize
	}
	out := make([]byte, 0, len(b)+paddingLen)
	out = append(out, b...)
	for i := 0; i < paddingLen; i++ {
		out = append(out, byte(paddingLen))
	}
	return out
}

func encryptAESCBCForTest(t *testing.T, prefix string, key []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	iv := []byte(safeStorageIV)
	padded := pkcs7Pad(t, plaintext)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, iv)
	cbc.CryptBlocks(ciphertext, padded)
	return append([]byte(prefix), ciphertext...)
}

func encryptAESGCMForTest(t *testing.T, prefix string, key []byte, nonce []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	ciphertextAndTag := aesgcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(prefix)+len(nonce)+len(ciphertextAndTag))
	out = append(out, []byte(prefix)...)
	out = append(out, nonce...)
	out = append(out, ciphertextAndTag...)
	return out
}

func names(cookies []Cookie) []string {
	out := make([]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.Name)
	}
	return out
}
