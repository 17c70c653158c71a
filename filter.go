package livecookie

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrBadURL is returned by Match for URLs without a scheme and host.
var ErrBadURL = errors.New("livecookie: URL must include scheme and host")

type origin struct {
	scheme string
	host   string
	path   string
}

// Match returns the mirrored cookies that would be sent to rawURL: domain and
// path must match, Secure cookies require https/wss, and expired cookies are
// skipped. The result is a fresh slice in mirror order.
func (m *Mirror) Match(rawURL string) ([]Cookie, error) {
	o, err := parseOrigin(rawURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []Cookie
	for _, c := range m.GetAll() {
		if c.Expires != nil && c.Expires.Before(now) {
			continue
		}
		if cookieMatchesOrigin(c, o) {
			out = append(out, c)
		}
	}
	return out, nil
}

func parseOrigin(rawURL string) (origin, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return origin{}, err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return origin{}, ErrBadURL
	}
	return origin{
		scheme: strings.ToLower(u.Scheme),
		host:   normalizeHost(u.Hostname()),
		path:   normalizePath(u.EscapedPath()),
	}, nil
}

func cookieMatchesOrigin(c Cookie, o origin) bool {
	if c.Domain == "" || o.host == "" {
		return false
	}
	if !hostMatchesCookieDomain(o.host, c.Domain) {
		return false
	}
	if c.Secure && o.scheme != "https" && o.scheme != "wss" {
		return false
	}
	return pathMatchesCookiePath(o.path, c.Path)
}

func hostMatchesCookieDomain(host, cookieDomain string) bool {
	host = normalizeHost(host)
	cookieDomain = normalizeHost(cookieDomain)
	if host == "" || cookieDomain == "" {
		return false
	}
	if host == cookieDomain {
		return true
	}
	return strings.HasSuffix(host, "."+cookieDomain)
}

func pathMatchesCookiePath(requestPath, cookiePath string) bool {
	requestPath = normalizePath(requestPath)
	cookiePath = normalizePath(cookiePath)
	if cookiePath == "/" {
		return true
	}
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	if cookiePath[len(cookiePath)-1] == '/' {
		return true
	}
	return len(requestPath) > len(cookiePath) && requestPath[len(cookiePath)] == '/'
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, ".")
	return strings.ToLower(host)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '/' {
		return "/"
	}
	return path
}
