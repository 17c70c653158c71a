package livecookie

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

type firefoxRow struct {
	host     string
	name     string
	value    string
	path     string
	expiry   int64
	isSecure bool
	httpOnly bool
	sameSite int64
}

func firefoxReadRows(ctx context.Context, db *sql.DB) ([]firefoxRow, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}

	query := `SELECT host, name, value, path, expiry, isSecure, isHttpOnly, sameSite FROM moz_cookies ORDER BY creationTime`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []firefoxRow
	for rows.Next() {
		var r firefoxRow
		var expiry sql.NullInt64
		var secure sql.NullInt64
		var httpOnly sql.NullInt64
		var sameSite sql.NullInt64

		if err := rows.Scan(&r.host, &r.name, &r.value, &r.path, &expiry, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}
		if expiry.Valid {
			r.expiry = expiry.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.httpOnly = httpOnly.Valid && httpOnly.Int64 == 1
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

func firefoxRowToCookie(r firefoxRow, src Source) (Cookie, bool) {
	if r.name == "" || r.host == "" || r.value == "" {
		return Cookie{}, false
	}
	if r.path == "" {
		r.path = "/"
	}

	var expires *time.Time
	if r.expiry > 0 {
		t := time.Unix(r.expiry, 0).UTC()
		expires = &t
	}

	return Cookie{
		Name:     r.name,
		Value:    r.value,
		Domain:   strings.TrimPrefix(r.host, "."),
		Path:     r.path,
		Secure:   r.isSecure,
		HTTPOnly: r.httpOnly,
		SameSite: sameSiteFromInt(r.sameSite),
		Expires:  expires,
		Source:   src,
	}, true
}

// FirefoxCookiePath locates a Firefox cookies.sqlite. profile may be a
// profile name, a profile directory, an explicit cookies.sqlite path, or
// empty (first profile found via profiles.ini).
func FirefoxCookiePath(profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile != "" {
		if fi, err := os.Stat(profile); err == nil {
			if fi.IsDir() {
				dbPath := filepath.Join(profile, "cookies.sqlite")
				if fileExists(dbPath) {
					return dbPath, nil
				}
				return "", fmt.Errorf("livecookie: cookies.sqlite not found in %q", profile)
			}
			return profile, nil
		}
	}

	for _, root := range firefoxRoots() {
		cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
		if err != nil {
			continue
		}
		for _, secName := range cfg.SectionStrings() {
			if !strings.HasPrefix(secName, "Profile") {
				continue
			}
			sec := cfg.Section(secName)
			name := sec.Key("Name").String()
			pathStr := filepath.FromSlash(sec.Key("Path").String())
			if pathStr == "" {
				continue
			}
			if sec.Key("IsRelative").String() == "1" {
				pathStr = filepath.Join(root, pathStr)
			}
			if profile != "" && name != profile && filepath.Base(pathStr) != profile {
				continue
			}
			dbPath := filepath.Join(pathStr, "cookies.sqlite")
			if fileExists(dbPath) {
				return dbPath, nil
			}
		}
	}

	if profile != "" {
		return "", fmt.Errorf("livecookie: Firefox profile %q not found", profile)
	}
	return "", errors.New("livecookie: Firefox cookie store not found")
}

func firefoxRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Firefox")}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return []string{filepath.Join(appData, "Mozilla", "Firefox")}
		}
		return nil
	default:
		return []string{filepath.Join(home, ".mozilla", "firefox")}
	}
}
