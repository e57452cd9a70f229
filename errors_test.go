package auth_test

import (
	"fmt"
	"net/http"
	"testing"

	auth "github.com/amami1625/pondana-sub000"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectError(t *testing.T) {
	err := auth.Redirect(auth.PathSettings)
	assert.Equal(t, http.StatusSeeOther, err.Status)
	assert.Equal(t, "redirect to /settings", err.Error())

	wrapped := fmt.Errorf("guard: %w", err)
	redirect, ok := auth.AsRedirect(wrapped)
	require.True(t, ok)
	assert.Equal(t, auth.PathSettings, redirect.To)
	assert.True(t, auth.IsRedirect(wrapped, auth.PathSettings))
	assert.False(t, auth.IsRedirect(wrapped, auth.PathLogin))
}

func TestAsRedirectRejectsOtherErrors(t *testing.T) {
	_, ok := auth.AsRedirect(auth.ErrNoCurrentUser)
	assert.False(t, ok)

	_, ok = auth.AsRedirect(nil)
	assert.False(t, ok)
}

func TestErrNoCurrentUser(t *testing.T) {
	var richErr *goerrors.Error
	require.True(t, goerrors.As(auth.ErrNoCurrentUser, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
	assert.Equal(t, auth.TextCodeSessionAbsent, richErr.TextCode)
}
