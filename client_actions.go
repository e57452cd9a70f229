package auth

import (
	"context"

	"github.com/amami1625/pondana-sub000/translate"
)

// ClientActions run login and logout through the browser client. The
// browser client writes the session to browser storage and announces the
// change, which is what keeps other open tabs in sync. Server actions
// cannot do that, so both sets exist on purpose.
type ClientActions struct {
	provider   IdentityProvider
	translator Translator
	logger     Logger
}

// NewClientActions expects a provider client bound to browser storage.
func NewClientActions(browser IdentityProvider) *ClientActions {
	return &ClientActions{
		provider:   browser,
		translator: translate.Default(),
		logger:     defLogger{},
	}
}

func (a *ClientActions) WithTranslator(t Translator) *ClientActions {
	if t != nil {
		a.translator = t
	}
	return a
}

func (a *ClientActions) WithLogger(logger Logger) *ClientActions {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Login signs in and stores the session in browser storage.
func (a *ClientActions) Login(ctx context.Context, creds Credentials) Result {
	if _, err := a.provider.SignInWithPassword(ctx, creds); err != nil {
		a.logger.Info("browser login rejected by provider: %v", err)
		return Fail(a.translator.Error(err))
	}
	return Ok()
}

// Logout clears the session from browser storage.
func (a *ClientActions) Logout(ctx context.Context) Result {
	if err := a.provider.SignOut(ctx); err != nil {
		a.logger.Error("browser logout failed: %v", err)
		return Fail(a.translator.Error(err))
	}
	return Ok()
}
