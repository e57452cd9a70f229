package auth

import (
	"context"

	"github.com/amami1625/pondana-sub000/translate"
)

// SessionActions are the server-executed login, logout and sign-up
// operations. Build one per request around that request's provider handle.
type SessionActions struct {
	provider    IdentityProvider
	revalidator Revalidator
	translator  Translator
	logger      Logger
}

// NewSessionActions wires the request-scoped provider and the view cache
// that is revalidated after every successful auth change.
func NewSessionActions(provider IdentityProvider, revalidator Revalidator) *SessionActions {
	if revalidator == nil {
		revalidator = noopRevalidator{}
	}
	return &SessionActions{
		provider:    provider,
		revalidator: revalidator,
		translator:  translate.Default(),
		logger:      defLogger{},
	}
}

// WithTranslator overrides the translator, e.g. to follow Accept-Language.
func (a *SessionActions) WithTranslator(t Translator) *SessionActions {
	if t != nil {
		a.translator = t
	}
	return a
}

func (a *SessionActions) WithLogger(logger Logger) *SessionActions {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Login verifies credentials and establishes a session.
func (a *SessionActions) Login(ctx context.Context, creds Credentials) Result {
	if _, err := a.provider.SignInWithPassword(ctx, creds); err != nil {
		a.logger.Info("login rejected by provider: %v", err)
		return Fail(a.translator.Error(err))
	}

	a.revalidate(ctx)
	return Ok()
}

// Logout destroys the current session.
func (a *SessionActions) Logout(ctx context.Context) Result {
	if err := a.provider.SignOut(ctx); err != nil {
		a.logger.Error("logout failed: %v", err)
		return Fail(a.translator.Error(err))
	}

	a.revalidate(ctx)
	return Ok()
}

// SignUpInput is the sign-up form. Name is forwarded as provider metadata
// exactly as given, empty string included.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// SignUp creates an account.
func (a *SessionActions) SignUp(ctx context.Context, in SignUpInput) Result {
	creds := Credentials{Email: in.Email, Password: in.Password}
	opts := SignUpOptions{
		Data: map[string]any{"name": in.Name},
	}

	if _, err := a.provider.SignUp(ctx, creds, opts); err != nil {
		a.logger.Info("sign up rejected by provider: %v", err)
		return Fail(a.translator.Error(err))
	}

	a.revalidate(ctx)
	return Ok()
}

// revalidate runs only after the provider confirmed the change. A cache
// failure does not undo the auth change, so it is logged and swallowed.
func (a *SessionActions) revalidate(ctx context.Context) {
	if err := a.revalidator.Revalidate(ctx, PathHome, ScopeLayout); err != nil {
		a.logger.Warn("revalidate %s failed: %v", PathHome, err)
	}
}
