package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tascvd/cvrisk/internal/platform/session"
)

// fakeLocator scripts permission and position answers.
type fakeLocator struct {
	state      PermissionState
	permErr    error
	results    []Coords
	errs       []error
	calls      []Options
	permChecks int
}

func (f *fakeLocator) Permission(context.Context) (PermissionState, error) {
	f.permChecks++
	return f.state, f.permErr
}

func (f *fakeLocator) Locate(_ context.Context, opts Options) (Coords, error) {
	i := len(f.calls)
	f.calls = append(f.calls, opts)
	var c Coords
	var err error
	if i < len(f.results) {
		c = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return c, err
}

func newTestCache() *Cache {
	return NewCache(session.NewMemoryStore(time.Hour), zerolog.Nop())
}

func TestAcquire_GrantedCachesCoords(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{state: PermissionGranted, results: []Coords{At(13.75, 100.5)}}

	got := c.Acquire(context.Background(), "s1", loc, false)
	if got.IsBlank() || *got.Lat != 13.75 || *got.Lon != 100.5 {
		t.Fatalf("unexpected coords %+v", got)
	}
	if len(loc.calls) != 1 || !loc.calls[0].HighAccuracy {
		t.Errorf("expected a single high accuracy attempt, got %+v", loc.calls)
	}

	// Second call must come from cache without touching the locator.
	other := &fakeLocator{state: PermissionGranted, results: []Coords{At(1, 1)}}
	again := c.Acquire(context.Background(), "s1", other, false)
	if *again.Lat != 13.75 {
		t.Errorf("expected cached coords, got %+v", again)
	}
	if other.permChecks != 0 || len(other.calls) != 0 {
		t.Error("cached coords must short-circuit the locator")
	}
}

func TestAcquire_FallsBackToLowAccuracy(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{
		state:   PermissionGranted,
		results: []Coords{{}, At(7.0, 98.3)},
		errs:    []error{errors.New("timeout"), nil},
	}
	got := c.Acquire(context.Background(), "s1", loc, false)
	if got.IsBlank() || *got.Lat != 7.0 {
		t.Fatalf("expected fallback coords, got %+v", got)
	}
	if len(loc.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(loc.calls))
	}
	if loc.calls[1].HighAccuracy || loc.calls[1].Timeout != 12*time.Second {
		t.Errorf("unexpected fallback options %+v", loc.calls[1])
	}
	if loc.calls[0].Timeout != 6*time.Second || loc.calls[0].MaximumAge != 10*time.Minute {
		t.Errorf("unexpected first options %+v", loc.calls[0])
	}
}

func TestAcquire_BothAttemptsFailNotCached(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{state: PermissionGranted, errs: []error{errors.New("a"), errors.New("b")}}
	if got := c.Acquire(context.Background(), "s1", loc, false); !got.IsBlank() {
		t.Fatalf("expected blank, got %+v", got)
	}

	// A later attempt in the same session may still succeed.
	loc2 := &fakeLocator{state: PermissionGranted, results: []Coords{At(18.8, 98.9)}}
	got := c.Acquire(context.Background(), "s1", loc2, false)
	if got.IsBlank() {
		t.Error("blank result must not be cached")
	}
}

func TestAcquire_DeniedIsCached(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{state: PermissionDenied}
	if got := c.Acquire(context.Background(), "s1", loc, true); !got.IsBlank() {
		t.Fatalf("expected blank, got %+v", got)
	}
	if len(loc.calls) != 0 {
		t.Error("denied permission must not attempt a position")
	}

	granted := &fakeLocator{state: PermissionGranted, results: []Coords{At(1, 2)}}
	if got := c.Acquire(context.Background(), "s1", granted, true); !got.IsBlank() {
		t.Errorf("cached denial must win, got %+v", got)
	}
	if granted.permChecks != 0 {
		t.Error("cached denial must not re-query permission")
	}
}

func TestAcquire_PromptOnlyWhenAllowed(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{state: PermissionPrompt, results: []Coords{At(1, 2)}}
	if got := c.Acquire(context.Background(), "s1", loc, false); !got.IsBlank() {
		t.Errorf("expected blank without prompt, got %+v", got)
	}
	if len(loc.calls) != 0 {
		t.Error("must not ask the user without prompt")
	}

	got := c.Acquire(context.Background(), "s1", loc, true)
	if got.IsBlank() {
		t.Error("expected coords when prompting is allowed")
	}
}

func TestAcquire_PermissionErrorTreatedAsUnknown(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{permErr: errors.New("no permissions api"), results: []Coords{At(1, 2)}}
	if got := c.Acquire(context.Background(), "s1", loc, false); got.IsBlank() {
		t.Error("unknown permission should still attempt a position")
	}
}

func TestAcquire_NilLocator(t *testing.T) {
	c := newTestCache()
	if got := c.Acquire(context.Background(), "s1", nil, true); !got.IsBlank() {
		t.Errorf("expected blank, got %+v", got)
	}
}

func TestAcquire_DeniedCachedWhenUnavailable(t *testing.T) {
	c := newTestCache()
	loc := LocatorFromReport(Report{Permission: "denied", Unavailable: true})
	if got := c.Acquire(context.Background(), "s1", loc, true); !got.IsBlank() {
		t.Fatalf("expected blank, got %+v", got)
	}

	granted := &fakeLocator{state: PermissionGranted, results: []Coords{At(1, 2)}}
	if got := c.Acquire(context.Background(), "s1", granted, true); !got.IsBlank() {
		t.Errorf("denial must be cached without a position source, got %+v", got)
	}
}

func TestAcquire_UnavailableGrantedNotCached(t *testing.T) {
	c := newTestCache()
	loc := LocatorFromReport(Report{Permission: "granted", Lat: ptr(1), Lon: ptr(2), Unavailable: true})
	if got := c.Acquire(context.Background(), "s1", loc, true); !got.IsBlank() {
		t.Fatalf("expected blank without a position source, got %+v", got)
	}

	later := &fakeLocator{state: PermissionGranted, results: []Coords{At(3, 4)}}
	if got := c.Acquire(context.Background(), "s1", later, true); got.IsBlank() || *got.Lat != 3 {
		t.Errorf("a blank must not be cached, got %+v", got)
	}
}

func ptr(f float64) *float64 { return &f }

func TestAcquire_AnonymousNeverCaches(t *testing.T) {
	c := newTestCache()
	loc := &fakeLocator{state: PermissionGranted, results: []Coords{At(1, 2), At(3, 4)}}
	c.Acquire(context.Background(), "", loc, false)
	got := c.Acquire(context.Background(), "", loc, false)
	if got.IsBlank() || *got.Lat != 3 {
		t.Errorf("expected a fresh position for anonymous callers, got %+v", got)
	}
}

func TestCached(t *testing.T) {
	c := newTestCache()
	if got := c.Cached(context.Background(), "s1"); !got.IsBlank() {
		t.Errorf("expected blank, got %+v", got)
	}
	c.Acquire(context.Background(), "s1", &fakeLocator{state: PermissionGranted, results: []Coords{At(5, 6)}}, false)
	if got := c.Cached(context.Background(), "s1"); got.IsBlank() || *got.Lon != 6 {
		t.Errorf("expected cached coords, got %+v", got)
	}
}

func TestParsePermission(t *testing.T) {
	tests := map[string]PermissionState{
		"granted": PermissionGranted,
		"denied":  PermissionDenied,
		"prompt":  PermissionPrompt,
		"":        PermissionUnknown,
		"weird":   PermissionUnknown,
	}
	for in, want := range tests {
		if got := ParsePermission(in); got != want {
			t.Errorf("ParsePermission(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestHandler_Acquire(t *testing.T) {
	h := NewHandler(newTestCache())
	e := echo.New()
	body := `{"permission":"prompt","lat":13.7563,"lon":100.5018}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(context.WithValue(req.Context(), session.IDKey, "s1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Acquire(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"lat":13.7563`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_RequiresSession(t *testing.T) {
	h := NewHandler(newTestCache())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Acquire(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
