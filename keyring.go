package livecookie

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	envSafeStoragePassword = "LIVECOOKIE_SAFE_STORAGE_PASSWORD"
	envSafeStorageKey      = "LIVECOOKIE_SAFE_STORAGE_KEY"
)

// SafeStorageOptions controls how the Chromium Safe Storage secret is
// obtained for decrypting v10/v11 cookie values.
type SafeStorageOptions struct {
	// Password overrides any lookup. If empty, the LIVECOOKIE_SAFE_STORAGE_PASSWORD
	// environment variable is consulted, then the OS keyring, then secret-tool.
	Password string

	// Service and Account name the keyring entry. Defaults match Google
	// Chrome ("Chrome Safe Storage" / "Chrome").
	Service string
	Account string

	// Timeout bounds OS helper calls. Defaults to 3s.
	Timeout time.Duration
}

// safeStoragePassword resolves the Safe Storage password. Lookup failures are
// reported as warnings, not errors: without a password v11 cookies are simply
// unreadable, everything else still works.
func safeStoragePassword(opts SafeStorageOptions) (password string, warnings []string) {
	if opts.Password != "" {
		return opts.Password, nil
	}
	// Escape hatch for deterministic tooling/CI.
	if override := strings.TrimSpace(os.Getenv(envSafeStoragePassword)); override != "" {
		return override, nil
	}

	service := opts.Service
	if service == "" {
		service = "Chrome Safe Storage"
	}
	account := opts.Account
	if account == "" {
		account = "Chrome"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	if pw, err := keyring.Get(service, account); err == nil && strings.TrimSpace(pw) != "" {
		return strings.TrimSpace(pw), nil
	}
	if pw, err := secretToolLookup(timeout, service, account); err == nil && pw != "" {
		return pw, nil
	}

	return "", []string{"livecookie: Safe Storage password unavailable; encrypted cookie values may be skipped"}
}

// safeStorageRawKey returns an optional AES-256-GCM master key from the
// environment (base64, 32 bytes once decoded).
func safeStorageRawKey() []byte {
	raw := strings.TrimSpace(os.Getenv(envSafeStorageKey))
	if raw == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

func secretToolLookup(timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, _, err := execCapture(ctx, "secret-tool", []string{"lookup", "service", service, "account", account})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
