package auth

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeRedirect      = "AUTH_REDIRECT"
	TextCodeSessionAbsent = "AUTH_SESSION_ABSENT"
)

// ErrNoCurrentUser is returned when a session is present but the provider
// cannot resolve the user behind it.
var ErrNoCurrentUser = errors.New("failed to retrieve user information", errors.CategoryAuth).
	WithTextCode(TextCodeSessionAbsent).
	WithCode(errors.CodeUnauthorized)

// RedirectError short-circuits rendering. It is control flow, not a
// failure, and carries no message for the user.
type RedirectError struct {
	To     string
	Status int
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.To)
}

// Redirect builds a RedirectError using 303 See Other.
func Redirect(to string) *RedirectError {
	return &RedirectError{To: to, Status: http.StatusSeeOther}
}

// AsRedirect reports whether err asks for a redirect.
func AsRedirect(err error) (*RedirectError, bool) {
	var redirect *RedirectError
	if errors.As(err, &redirect) && redirect != nil {
		return redirect, true
	}
	return nil, false
}

// IsRedirect reports whether err asks for a redirect to path.
func IsRedirect(err error, path string) bool {
	redirect, ok := AsRedirect(err)
	return ok && redirect.To == path
}
