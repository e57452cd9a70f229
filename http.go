package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/amami1625/pondana-sub000/session"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Client is a request-scoped provider handle that can also finish callback
// flows.
type Client interface {
	IdentityProvider
	CallbackProvider
}

// ClientFactory builds a Client that keeps its session in storage.
type ClientFactory func(storage session.Storage) Client

// CookieOptions configures the session cookie.
type CookieOptions struct {
	MaxAge   time.Duration
	Secure   bool
	SameSite string
}

// DefaultCookieOptions is a one day, lax, HTTP only cookie.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{MaxAge: 24 * time.Hour, SameSite: "Lax"}
}

// CookieStorage adapts the cookies of one request to session.Storage. The
// storage key is the cookie name. Writes are visible to later reads in the
// same request.
type CookieStorage struct {
	ctx     router.Context
	opts    CookieOptions
	written map[string]string
	removed map[string]bool
}

var _ session.Storage = (*CookieStorage)(nil)

func NewCookieStorage(ctx router.Context, opts CookieOptions) *CookieStorage {
	if opts.SameSite == "" {
		opts.SameSite = "Lax"
	}
	return &CookieStorage{
		ctx:     ctx,
		opts:    opts,
		written: map[string]string{},
		removed: map[string]bool{},
	}
}

func (s *CookieStorage) GetItem(_ context.Context, key string) (string, error) {
	if s.removed[key] {
		return "", session.ErrItemNotFound
	}
	if v, ok := s.written[key]; ok {
		return v, nil
	}
	v := s.ctx.Cookies(key)
	if v == "" {
		return "", session.ErrItemNotFound
	}
	return v, nil
}

func (s *CookieStorage) SetItem(_ context.Context, key, value string) error {
	delete(s.removed, key)
	s.written[key] = value
	s.ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(s.opts.MaxAge),
		HTTPOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	return nil
}

func (s *CookieStorage) RemoveItem(_ context.Context, key string) error {
	delete(s.written, key)
	s.removed[key] = true
	s.ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	return nil
}

// RedirectStatus picks 302 for GET requests and 303 otherwise.
func RedirectStatus(method string) int {
	if method == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// FollowRedirect performs the redirect carried by err. It reports false when
// err does not ask for one.
func FollowRedirect(c router.Context, err error) (bool, error) {
	redirect, ok := AsRedirect(err)
	if !ok {
		return false, nil
	}
	status := redirect.Status
	if status == 0 {
		status = http.StatusSeeOther
	}
	return true, c.Redirect(redirect.To, status)
}

func defaultErrHandler(c router.Context, err error) error {
	if ok, rerr := FollowRedirect(c, err); ok {
		return rerr
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return c.Redirect(PathLogin, http.StatusSeeOther)
	default:
		code := richErr.Code
		if code == 0 {
			code = errors.CodeInternal
		}
		return c.Status(code).Render("errors/500", router.ViewContext{
			"error":   richErr,
			"details": print.MaybePrettyJSON(richErr.Metadata),
		})
	}
}
