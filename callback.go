package auth

import (
	"net/url"
	"strings"
)

// Surfaces the core redirects to.
const (
	PathHome          = "/"
	PathLogin         = "/login"
	PathSettings      = "/settings"
	PathPasswordReset = "/password-reset"
	PathCallback      = "/auth/callback"
	PathEvents        = "/auth/events"
)

// CallbackURLs builds links that funnel provider callbacks through the
// single auth callback route before landing on their final target.
type CallbackURLs struct {
	origin string
}

// NewCallbackURLs trims any trailing slash off origin.
func NewCallbackURLs(origin string) CallbackURLs {
	return CallbackURLs{origin: strings.TrimRight(origin, "/")}
}

// Origin returns the configured site origin.
func (c CallbackURLs) Origin() string {
	return c.origin
}

// For returns <origin>/auth/callback?next=<next>.
func (c CallbackURLs) For(next string) string {
	q := url.Values{}
	q.Set("next", SafeNext(next))
	return c.origin + PathCallback + "?" + q.Encode()
}

// SafeNext keeps next only when it is a local absolute path. Anything that
// could leave the site falls back to the home surface.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") {
		return PathHome
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return PathHome
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return PathHome
	}

	return next
}
