package livecookie

import (
	"context"
	"time"
)

// Format identifies a cookie database layout.
type Format string

const (
	// FormatAuto probes the database schema.
	FormatAuto Format = "auto"
	// FormatChromium is the Chrome-family `cookies` table.
	FormatChromium Format = "chromium"
	// FormatFirefox is the `moz_cookies` table.
	FormatFirefox Format = "firefox"
)

// SameSite is the cookie SameSite attribute.
type SameSite string

const (
	// SameSiteNone is SameSite=None.
	SameSiteNone SameSite = "None"
	// SameSiteLax is SameSite=Lax.
	SameSiteLax SameSite = "Lax"
	// SameSiteStrict is SameSite=Strict.
	SameSiteStrict SameSite = "Strict"
)

// Source describes where a cookie came from.
type Source struct {
	Format    Format
	Profile   string
	StorePath string
}

// Cookie is one named entry in a store. The Mirror keys on Name only; the
// remaining attributes are carried opaquely.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite

	Expires *time.Time
	Source  Source
}

// ChangeEvent carries the cookies added or updated since the previous event,
// and the cookies removed. The two lists are normally disjoint; a name present
// in both nets out to removed.
type ChangeEvent struct {
	Changed []Cookie
	Removed []Cookie
}

// EventChange is the only event kind stores emit.
const EventChange = "change"

// ChangeListener receives change events. Listeners are registered and removed
// by interface identity, so implementations should be pointer types.
type ChangeListener interface {
	OnChange(ChangeEvent)
}

type listenerFunc struct {
	fn func(ChangeEvent)
}

func (l *listenerFunc) OnChange(ev ChangeEvent) { l.fn(ev) }

// ListenerFunc wraps fn as a ChangeListener. Each call returns a distinct
// identity, so registering the same fn twice yields two independent
// registrations, each removed separately.
func ListenerFunc(fn func(ChangeEvent)) ChangeListener {
	return &listenerFunc{fn: fn}
}

// Store is the external cookie store being mirrored. List returns the current
// full contents; it may fail. Implementations must dispatch "change" listeners
// synchronously, in registration order, after their own state has advanced.
type Store interface {
	List(ctx context.Context) ([]Cookie, error)
	AddEventListener(kind string, l ChangeListener)
	RemoveEventListener(kind string, l ChangeListener)
}
