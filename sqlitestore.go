package livecookie

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"
)

// ErrNoPath is returned when SQLiteOptions.Path is empty.
var ErrNoPath = errors.New("livecookie: cookies database path required")

// SQLiteOptions configures a SQLiteStore.
type SQLiteOptions struct {
	// Path is the cookies database to mirror (required). See
	// ChromiumCookiePath and FirefoxCookiePath for locating one.
	Path string

	// Format of the database. Defaults to FormatAuto.
	Format Format

	// Profile labels the Source of returned cookies.
	Profile string

	// PollInterval is how often Start checks the database file for
	// modification. Defaults to 2s.
	PollInterval time.Duration

	// SafeStorage controls Chromium encrypted-value decryption.
	SafeStorage SafeStorageOptions
}

// SQLiteStore is a Store over a browser cookies database. List reads a
// point-in-time copy; Start polls the file and turns observed differences
// into "change" events, making a local browser jar usable as the external
// store behind a Mirror.
//
// Browsers write their databases concurrently, so every read goes through a
// temp snapshot opened read-only. Cookies are keyed by name, first occurrence
// wins, matching the Mirror's name-unique model.
type SQLiteStore struct {
	emitter
	opts SQLiteOptions

	decryptOnce sync.Once
	decrypt     decryptFunc

	mu       sync.Mutex
	prev     []Cookie
	primed   bool
	lastMod  time.Time
	lastSize int64
	warnings []string

	startMu sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

// NewSQLiteStore returns a store for opts.Path. No IO happens until List or
// Start.
func NewSQLiteStore(opts SQLiteOptions) *SQLiteStore {
	if opts.Format == "" {
		opts.Format = FormatAuto
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &SQLiteStore{opts: opts}
}

// AddEventListener registers l for kind "change". Other kinds are ignored.
func (s *SQLiteStore) AddEventListener(kind string, l ChangeListener) {
	s.add(kind, l)
}

// RemoveEventListener removes one matching registration.
func (s *SQLiteStore) RemoveEventListener(kind string, l ChangeListener) {
	s.remove(kind, l)
}

// List reads the database and returns its current cookies. The result also
// becomes the baseline the poller diffs against.
func (s *SQLiteStore) List(ctx context.Context) ([]Cookie, error) {
	cookies, stamp, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.prev = cookies
	s.primed = true
	s.lastMod = stamp.mod
	s.lastSize = stamp.size
	s.mu.Unlock()

	return slices.Clone(cookies), nil
}

// Start launches the polling loop. It returns an error if the store was
// already started or the path is unset. The loop ends when ctx is cancelled
// or Stop is called.
func (s *SQLiteStore) Start(ctx context.Context) error {
	if s.opts.Path == "" {
		return ErrNoPath
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.stop != nil {
		return errors.New("livecookie: store already started")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.poll(ctx, s.stop, s.done)
	return nil
}

// Stop ends the polling loop and waits for it to exit. Safe to call without
// a prior Start, and more than once.
func (s *SQLiteStore) Stop() {
	s.startMu.Lock()
	stop, done := s.stop, s.done
	s.startMu.Unlock()
	if stop == nil {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done
}

// Warnings returns problems swallowed by the poller so far.
func (s *SQLiteStore) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.warnings)
}

func (s *SQLiteStore) poll(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *SQLiteStore) pollOnce(ctx context.Context) {
	fi, err := os.Stat(s.opts.Path)
	if err != nil {
		s.warn(fmt.Sprintf("livecookie: stat %s: %v", s.opts.Path, err))
		return
	}

	s.mu.Lock()
	unchanged := s.primed && fi.ModTime().Equal(s.lastMod) && fi.Size() == s.lastSize
	s.mu.Unlock()
	if unchanged {
		return
	}

	cookies, stamp, err := s.read(ctx)
	if err != nil {
		s.warn(fmt.Sprintf("livecookie: read %s: %v", s.opts.Path, err))
		return
	}

	s.mu.Lock()
	ev := diffCookies(s.prev, cookies)
	hadBaseline := s.primed
	s.prev = cookies
	s.primed = true
	s.lastMod = stamp.mod
	s.lastSize = stamp.size
	s.mu.Unlock()

	if !hadBaseline {
		// First successful read without a prior List: everything is new.
		if len(cookies) == 0 {
			return
		}
		s.emit(ChangeEvent{Changed: slices.Clone(cookies)})
		return
	}
	if len(ev.Changed) == 0 && len(ev.Removed) == 0 {
		return
	}
	s.emit(ev)
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func (s *SQLiteStore) read(ctx context.Context) ([]Cookie, fileStamp, error) {
	if s.opts.Path == "" {
		return nil, fileStamp{}, ErrNoPath
	}
	fi, err := os.Stat(s.opts.Path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	stamp := fileStamp{mod: fi.ModTime(), size: fi.Size()}

	snap, cleanup, err := snapshotDB(s.opts.Path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	defer cleanup()

	db, err := openSnapshotDB(ctx, snap)
	if err != nil {
		return nil, fileStamp{}, err
	}
	defer func() { _ = db.Close() }()

	format := s.opts.Format
	if format == FormatAuto {
		format, err = detectFormat(ctx, db)
		if err != nil {
			return nil, fileStamp{}, err
		}
	}
	src := Source{Format: format, Profile: s.opts.Profile, StorePath: s.opts.Path}

	var out []Cookie
	switch format {
	case FormatChromium:
		metaVersion := chromiumMetaVersion(ctx, db)
		rows, err := chromiumReadRows(ctx, db)
		if err != nil {
			return nil, fileStamp{}, err
		}
		decrypt := s.decryptor(rows)
		for _, r := range rows {
			if c, ok := chromiumRowToCookie(r, metaVersion, decrypt, src); ok {
				out = append(out, c)
			}
		}
	case FormatFirefox:
		rows, err := firefoxReadRows(ctx, db)
		if err != nil {
			return nil, fileStamp{}, err
		}
		for _, r := range rows {
			if c, ok := firefoxRowToCookie(r, src); ok {
				out = append(out, c)
			}
		}
	default:
		return nil, fileStamp{}, fmt.Errorf("livecookie: unsupported format %q", format)
	}

	return dedupeByName(out), stamp, nil
}

// decryptor initializes the Chromium decryptor on first use, and only when a
// row actually carries an encrypted value, so plaintext-only databases never
// touch the keyring.
func (s *SQLiteStore) decryptor(rows []chromiumRow) decryptFunc {
	needed := false
	for _, r := range rows {
		if r.value == "" && len(r.encryptedValue) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	s.decryptOnce.Do(func() {
		password, warnings := safeStoragePassword(s.opts.SafeStorage)
		for _, w := range warnings {
			s.warn(w)
		}
		s.decrypt = newDecryptor(password, safeStorageRawKey())
	})
	return s.decrypt
}

func (s *SQLiteStore) warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// dedupeByName keeps the first cookie per name, preserving order. The Mirror
// is name-unique; browser jars key on (name, domain, path).
func dedupeByName(cookies []Cookie) []Cookie {
	if len(cookies) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(cookies))
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// diffCookies turns two snapshots into one change event: cookies new or
// different in cur are changed, names present only in prev are removed.
func diffCookies(prev, cur []Cookie) ChangeEvent {
	prevByName := make(map[string]Cookie, len(prev))
	for _, c := range prev {
		prevByName[c.Name] = c
	}
	curNames := make(map[string]struct{}, len(cur))

	var ev ChangeEvent
	for _, c := range cur {
		curNames[c.Name] = struct{}{}
		old, ok := prevByName[c.Name]
		if !ok || !cookieEqual(old, c) {
			ev.Changed = append(ev.Changed, c)
		}
	}
	for _, c := range prev {
		if _, ok := curNames[c.Name]; !ok {
			ev.Removed = append(ev.Removed, c)
		}
	}
	return ev
}

func cookieEqual(a, b Cookie) bool {
	if a.Name != b.Name || a.Value != b.Value || a.Domain != b.Domain || a.Path != b.Path {
		return false
	}
	if a.Secure != b.Secure || a.HTTPOnly != b.HTTPOnly || a.SameSite != b.SameSite {
		return false
	}
	switch {
	case a.Expires == nil && b.Expires == nil:
		return true
	case a.Expires == nil || b.Expires == nil:
		return false
	default:
		return a.Expires.Equal(*b.Expires)
	}
}
