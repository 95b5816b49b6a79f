// Package embed validates messages relayed from the page hosting the widget
// frame and remembers which page that was.
package embed

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tascvd/cvrisk/internal/platform/session"
)

// Message types exchanged with the host frame.
const (
	TypeRequestHostInfo = "request-host-info"
	TypeHostInfo        = "host-info"
)

// Message is a frame message. Href is only meaningful for host-info and is
// kept only when it is a JSON string.
type Message struct {
	Type string      `json:"type"`
	Href interface{} `json:"href,omitempty"`
}

// RequestHostInfo is the handshake the widget sends to its parent.
func RequestHostInfo() Message {
	return Message{Type: TypeRequestHostInfo}
}

// HostInfo is the per-session state learned from the parent.
type HostInfo struct {
	Href   string `json:"href,omitempty"`
	Origin string `json:"origin,omitempty"`
}

const storeKey = "host"

// Bridge accepts host-info messages from trusted parents.
type Bridge struct {
	trusted map[string]struct{}
	store   session.Store
	logger  zerolog.Logger
}

// NewBridge creates a Bridge. An empty trusted list accepts any parent.
func NewBridge(trusted []string, store session.Store, logger zerolog.Logger) *Bridge {
	set := make(map[string]struct{}, len(trusted))
	for _, o := range trusted {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return &Bridge{
		trusted: set,
		store:   store,
		logger:  logger.With().Str("component", "embed").Logger(),
	}
}

// Trusted reports whether origin may act as a parent.
func (b *Bridge) Trusted(origin string) bool {
	if len(b.trusted) == 0 {
		return true
	}
	_, ok := b.trusted[origin]
	return ok
}

// TrustedOrigins returns the configured parents in no particular order.
func (b *Bridge) TrustedOrigins() []string {
	out := make([]string, 0, len(b.trusted))
	for o := range b.trusted {
		out = append(out, o)
	}
	return out
}

// Accept records a host-info message for the session. It reports whether
// the message was taken; anything else is ignored silently.
func (b *Bridge) Accept(ctx context.Context, sessionID, origin string, msg Message) bool {
	if msg.Type != TypeHostInfo {
		return false
	}
	if !b.Trusted(origin) {
		b.logger.Debug().Str("origin", origin).Msg("ignoring untrusted parent")
		return false
	}

	info := b.load(ctx, sessionID)
	if href, ok := msg.Href.(string); ok {
		info.Href = href
	}
	info.Origin = origin
	if sessionID != "" {
		if err := b.store.Set(ctx, sessionID, storeKey, info); err != nil {
			b.logger.Warn().Err(err).Msg("store host info")
		}
	}
	return true
}

// BestHostURL returns the most reliable host page URL: the parent-reported
// href, then the referrer, then the host query parameter. Empty when none
// is known.
func (b *Bridge) BestHostURL(ctx context.Context, sessionID, referrer, hostQuery string) string {
	if info := b.load(ctx, sessionID); info.Href != "" {
		return info.Href
	}
	if referrer != "" {
		return referrer
	}
	return hostQuery
}

func (b *Bridge) load(ctx context.Context, sessionID string) HostInfo {
	var info HostInfo
	if sessionID == "" {
		return info
	}
	if _, err := b.store.Get(ctx, sessionID, storeKey, &info); err != nil {
		b.logger.Warn().Err(err).Msg("read host info")
	}
	return info
}
