package auth

import (
	"context"

	"github.com/amami1625/pondana-sub000/translate"
)

// AccountActions change credentials of the signed-in user: password reset
// initiation, password update and email change.
type AccountActions struct {
	provider   IdentityProvider
	callbacks  CallbackURLs
	translator Translator
	logger     Logger
}

// NewAccountActions wires the request-scoped provider and the callback link
// builder used for emailed links.
func NewAccountActions(provider IdentityProvider, callbacks CallbackURLs) *AccountActions {
	return &AccountActions{
		provider:   provider,
		callbacks:  callbacks,
		translator: translate.Default(),
		logger:     defLogger{},
	}
}

func (a *AccountActions) WithTranslator(t Translator) *AccountActions {
	if t != nil {
		a.translator = t
	}
	return a
}

func (a *AccountActions) WithLogger(logger Logger) *AccountActions {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// VerifyAndSendPasswordResetEmail proves knowledge of the current password
// before mailing a recovery link, since that link grants a recovery
// session. The re-authentication must succeed before the email is
// requested.
func (a *AccountActions) VerifyAndSendPasswordResetEmail(ctx context.Context, currentPassword string) Result {
	user, err := a.provider.GetUser(ctx)
	if err != nil || user == nil || user.Email == "" {
		a.logger.Warn("password reset: current user lookup failed: %v", err)
		return Fail(a.translator.UserLookupFailed())
	}

	creds := Credentials{Email: user.Email, Password: currentPassword}
	if _, err := a.provider.SignInWithPassword(ctx, creds); err != nil {
		a.logger.Info("password reset: re-authentication failed for %s", user.ID)
		return Fail(a.translator.IncorrectPassword())
	}

	opts := ResetPasswordOptions{RedirectTo: a.callbacks.For(PathPasswordReset)}
	if err := a.provider.ResetPasswordForEmail(ctx, user.Email, opts); err != nil {
		a.logger.Error("password reset: send failed for %s: %v", user.ID, err)
		return Fail(a.translator.Error(err))
	}

	return Ok()
}

// SendEmailChangeConfirmation requests an email change. The provider mails
// both the current and the new address and only applies the change once
// both links were followed.
func (a *AccountActions) SendEmailChangeConfirmation(ctx context.Context, newEmail string) Result {
	user, err := a.provider.GetUser(ctx)
	if err != nil || user == nil {
		a.logger.Warn("email change: current user lookup failed: %v", err)
		return Fail(a.translator.UserLookupFailed())
	}

	attrs := UserAttributes{Email: newEmail}
	opts := UpdateUserOptions{EmailRedirectTo: a.callbacks.For(PathSettings)}
	if _, err := a.provider.UpdateUser(ctx, attrs, opts); err != nil {
		a.logger.Info("email change rejected for %s: %v", user.ID, err)
		return Fail(a.translator.Error(err))
	}

	return Ok()
}

// UpdatePassword sets a new password on the current session. Callers must
// already hold a recovery session or a fully authenticated one.
func (a *AccountActions) UpdatePassword(ctx context.Context, newPassword string) Result {
	if _, err := a.provider.UpdateUser(ctx, UserAttributes{Password: newPassword}, UpdateUserOptions{}); err != nil {
		a.logger.Info("password update rejected: %v", err)
		return Fail(a.translator.Error(err))
	}
	return Ok()
}
