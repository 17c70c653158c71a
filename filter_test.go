package livecookie

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestCookieMatchesOrigin_DomainPathSecure(t *testing.T) {
	o := origin{scheme: "https", host: "app.example.com", path: "/a/b"}
	c := Cookie{Name: "sid", Value: "x", Domain: "example.com", Path: "/a", Secure: true}

	if !cookieMatchesOrigin(c, o) {
		t.Fatalf("expected match")
	}
	o.scheme = "http"
	if cookieMatchesOrigin(c, o) {
		t.Fatalf("expected no match for secure over http")
	}
}

func TestPathMatchesCookiePath(t *testing.T) {
	cases := []struct {
		request, cookie string
		want            bool
	}{
		{"/a/b", "/", true},
		{"/a/b", "/a", true},
		{"/a/b", "/a/", true},
		{"/ab", "/a", false},
		{"/a", "/a/b", false},
		{"", "/", true},
	}
	for _, tc := range cases {
		if got := pathMatchesCookiePath(tc.request, tc.cookie); got != tc.want {
			t.Errorf("pathMatchesCookiePath(%q, %q) = %v, want %v", tc.request, tc.cookie, got, tc.want)
		}
	}
}

func TestMirror_Match(t *testing.T) {
	store := NewMemStore()
	m := NewMirror(store)
	defer m.Close()

	expired := time.Now().Add(-time.Hour)
	store.Set(Cookie{Name: "sid", Value: "1", Domain: "example.com", Path: "/"})
	store.Set(Cookie{Name: "sub", Value: "2", Domain: "app.example.com", Path: "/"})
	store.Set(Cookie{Name: "old", Value: "3", Domain: "example.com", Path: "/", Expires: &expired})
	store.Set(Cookie{Name: "sec", Value: "4", Domain: "example.com", Path: "/", Secure: true})

	got, err := m.Match("http://app.example.com/login")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"sid", "sub"}; !slices.Equal(names(got), want) {
		t.Fatalf("Match = %v, want %v", names(got), want)
	}

	got, err = m.Match("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"sid", "sec"}; !slices.Equal(names(got), want) {
		t.Fatalf("Match https = %v, want %v", names(got), want)
	}
}

func TestMirror_MatchBadURL(t *testing.T) {
	m := NewMirror(NewMemStore())
	defer m.Close()
	if _, err := m.Match("example.com"); !errors.Is(err, ErrBadURL) {
		t.Fatalf("err = %v, want ErrBadURL", err)
	}
}
