// Package geo caches a best-effort geolocation once per session. The user is
// prompted at most once; a real position or an explicit denial is remembered
// for the rest of the session, while failed attempts are not, so a later
// attempt in the same session may still succeed.
package geo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tascvd/cvrisk/internal/platform/session"
)

// PermissionState mirrors the browser permission states.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
	PermissionUnknown PermissionState = "unknown"
)

// ParsePermission maps free text to a PermissionState; anything unrecognised
// is PermissionUnknown.
func ParsePermission(s string) PermissionState {
	switch PermissionState(s) {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return PermissionState(s)
	}
	return PermissionUnknown
}

// Coords is a position. Nil fields mean blank.
type Coords struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Blank returns empty coordinates.
func Blank() Coords { return Coords{} }

// At returns coordinates for lat/lon.
func At(lat, lon float64) Coords { return Coords{Lat: &lat, Lon: &lon} }

// IsBlank reports whether c carries no position.
func (c Coords) IsBlank() bool { return c.Lat == nil || c.Lon == nil }

// Options control a single position attempt.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

var (
	// HighAccuracy is tried first.
	HighAccuracy = Options{HighAccuracy: true, Timeout: 6 * time.Second, MaximumAge: 10 * time.Minute}
	// LowAccuracy is the fallback after a failed high accuracy attempt.
	LowAccuracy = Options{HighAccuracy: false, Timeout: 12 * time.Second, MaximumAge: 10 * time.Minute}
)

// Locator is the device-side position source. A nil Locator means neither
// a permission query nor a position is available.
type Locator interface {
	Permission(ctx context.Context) (PermissionState, error)
	Locate(ctx context.Context, opts Options) (Coords, error)
}

// Prober is implemented by locators that can answer permission queries but
// may have no position source at all. Locators without it are available.
type Prober interface {
	Available() bool
}

func available(loc Locator) bool {
	if loc == nil {
		return false
	}
	if p, ok := loc.(Prober); ok {
		return p.Available()
	}
	return true
}

// ErrUnavailable is returned by locators that have no position to offer.
var ErrUnavailable = errors.New("position unavailable")

// cacheEntry is the persisted per-session state.
type cacheEntry struct {
	Denied bool     `json:"denied,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

const storeKey = "geo"

// Cache resolves coordinates for a session.
type Cache struct {
	store  session.Store
	logger zerolog.Logger
}

func NewCache(store session.Store, logger zerolog.Logger) *Cache {
	return &Cache{store: store, logger: logger.With().Str("component", "geo").Logger()}
}

// Cached returns the coordinates remembered for the session without ever
// asking the device. Blank when nothing (or a denial) is cached.
func (c *Cache) Cached(ctx context.Context, sessionID string) Coords {
	entry, ok := c.lookup(ctx, sessionID)
	if !ok || entry.Denied || entry.Lat == nil || entry.Lon == nil {
		return Blank()
	}
	return Coords{Lat: entry.Lat, Lon: entry.Lon}
}

// Acquire returns coordinates for the session. prompt allows asking a user
// whose permission state is still "prompt". Errors never escape: every
// failure degrades to blank coordinates.
func (c *Cache) Acquire(ctx context.Context, sessionID string, loc Locator, prompt bool) Coords {
	log := c.logger.With().Str("session_id", sessionID).Logger()

	if entry, ok := c.lookup(ctx, sessionID); ok {
		if entry.Denied {
			log.Debug().Msg("cached: denied")
			return Blank()
		}
		if entry.Lat != nil && entry.Lon != nil {
			log.Debug().Msg("cached coords")
			return Coords{Lat: entry.Lat, Lon: entry.Lon}
		}
	}

	state := PermissionUnknown
	if loc != nil {
		s, err := loc.Permission(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("permission query failed")
			s = PermissionUnknown
		}
		state = s
	}
	if state == PermissionDenied {
		c.save(ctx, sessionID, cacheEntry{Denied: true})
		return Blank()
	}

	shouldAsk := state == PermissionGranted || state == PermissionUnknown ||
		(state == PermissionPrompt && prompt)
	if !shouldAsk || !available(loc) {
		log.Debug().Str("permission", string(state)).Msg("not asking; returning blank")
		return Blank()
	}

	for _, opts := range []Options{HighAccuracy, LowAccuracy} {
		coords, err := locate(ctx, loc, opts)
		if err == nil && !coords.IsBlank() {
			c.save(ctx, sessionID, cacheEntry{Lat: coords.Lat, Lon: coords.Lon})
			log.Debug().Bool("high_accuracy", opts.HighAccuracy).Msg("acquired coords")
			return coords
		}
		log.Warn().Err(err).Bool("high_accuracy", opts.HighAccuracy).Msg("position attempt failed")
	}
	// Blanks are not cached; the user may try again later this session.
	return Blank()
}

func locate(ctx context.Context, loc Locator, opts Options) (Coords, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	coords, err := loc.Locate(ctx, opts)
	if err != nil {
		return Blank(), err
	}
	if coords.IsBlank() {
		return Blank(), ErrUnavailable
	}
	return coords, nil
}

func (c *Cache) lookup(ctx context.Context, sessionID string) (cacheEntry, bool) {
	var entry cacheEntry
	if sessionID == "" {
		return entry, false
	}
	ok, err := c.store.Get(ctx, sessionID, storeKey, &entry)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read cached geolocation")
		return entry, false
	}
	return entry, ok
}

func (c *Cache) save(ctx context.Context, sessionID string, entry cacheEntry) {
	if sessionID == "" {
		return
	}
	if err := c.store.Set(ctx, sessionID, storeKey, entry); err != nil {
		c.logger.Warn().Err(err).Msg("cache geolocation")
	}
}
