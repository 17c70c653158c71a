package livecookie

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type chromiumRow struct {
	hostKey        string
	name           string
	path           string
	value          string
	encryptedValue []byte
	expiresUTC     int64
	isSecure       bool
	isHTTPOnly     bool
	sameSite       int64
}

// detectFormat sniffs the cookie table layout of an open database.
func detectFormat(ctx context.Context, db *sql.DB) (Format, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		switch name {
		case "cookies":
			return FormatChromium, nil
		case "moz_cookies":
			return FormatFirefox, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "", errors.New("livecookie: no cookie table found")
}

func chromiumMetaVersion(ctx context.Context, db *sql.DB) int64 {
	if db == nil {
		return 0
	}
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&value)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func chromiumReadRows(ctx context.Context, db *sql.DB) ([]chromiumRow, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}

	query := strings.Join([]string{
		`SELECT host_key, name, path, value, encrypted_value, expires_utc, is_secure, is_httponly, samesite`,
		`FROM cookies`,
		`ORDER BY creation_utc`,
	}, " ")

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chromiumRow
	for rows.Next() {
		var r chromiumRow
		var encrypted []byte
		var expires sql.NullInt64
		var secure sql.NullInt64
		var httpOnly sql.NullInt64
		var sameSite sql.NullInt64

		if err := rows.Scan(&r.hostKey, &r.name, &r.path, &r.value, &encrypted, &expires, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}

		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.isHTTPOnly = httpOnly.Valid && httpOnly.Int64 == 1
		if sameSite.Valid {
			r.sameSite = sameSite.Int64
		}

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func chromiumRowToCookie(row chromiumRow, metaVersion int64, decrypt decryptFunc, src Source) (Cookie, bool) {
	if row.name == "" || row.hostKey == "" {
		return Cookie{}, false
	}

	value := row.value
	if value == "" && len(row.encryptedValue) > 0 && decrypt != nil {
		if decrypted, ok := decrypt(row.encryptedValue, metaVersion); ok {
			if decoded, ok := decodeCookieValue(decrypted); ok {
				value = decoded
			}
		}
	}
	if value == "" {
		return Cookie{}, false
	}

	var expires *time.Time
	if row.expiresUTC != 0 {
		if t, ok := chromiumExpiresToTime(row.expiresUTC); ok {
			expires = &t
		}
	}

	path := row.path
	if path == "" {
		path = "/"
	}

	return Cookie{
		Name:     row.name,
		Value:    value,
		Domain:   strings.TrimPrefix(row.hostKey, "."),
		Path:     path,
		Secure:   row.isSecure,
		HTTPOnly: row.isHTTPOnly,
		SameSite: sameSiteFromInt(row.sameSite),
		Expires:  expires,
		Source:   src,
	}, true
}

func sameSiteFromInt(v int64) SameSite {
	switch v {
	case 2:
		return SameSiteStrict
	case 1:
		return SameSiteLax
	case 0:
		return SameSiteNone
	default:
		return ""
	}
}

// ChromiumCookiePath locates the cookies database under a Chrome-family
// profile directory. location may be the profile dir, the user-data dir (the
// "Default" profile is probed), or an explicit database path.
func ChromiumCookiePath(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("livecookie: profile directory required")
	}

	fi, err := os.Stat(location)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return location, nil
	}

	candidates := []string{
		filepath.Join(location, "Network", "Cookies"),
		filepath.Join(location, "Cookies"),
		filepath.Join(location, "Default", "Network", "Cookies"),
		filepath.Join(location, "Default", "Cookies"),
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("livecookie: no cookies database under %q", location)
}

func chromiumExpiresToTime(expiresUTC int64) (time.Time, bool) {
	// Chromium stores times as microseconds since 1601-01-01 UTC.
	const unixEpochDiffMicros = int64(11644473600000000)
	unixMicros := expiresUTC - unixEpochDiffMicros
	if unixMicros <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, unixMicros*1000).UTC(), true
}
