package auth

import "context"

// RecoveryGuard gates the password reset page. Only a session established
// by consuming a recovery link may pass:
//
//	unauthenticated              -> redirect /login
//	authenticated, not recovery  -> redirect /settings
//	authenticated via recovery   -> proceed
type RecoveryGuard struct {
	provider IdentityProvider
	logger   Logger
}

func NewRecoveryGuard(provider IdentityProvider) *RecoveryGuard {
	return &RecoveryGuard{provider: provider, logger: defLogger{}}
}

func (g *RecoveryGuard) WithLogger(logger Logger) *RecoveryGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Require returns nil when the caller holds a recovery session and a
// *RedirectError otherwise. It must run before any reset form renders.
func (g *RecoveryGuard) Require(ctx context.Context) error {
	user, err := g.provider.GetUser(ctx)
	if err != nil || user == nil {
		g.logger.Debug("recovery guard: no user, err=%v", err)
		return Redirect(PathLogin)
	}

	aal, err := g.provider.GetAuthenticatorAssuranceLevel(ctx)
	if err != nil {
		g.logger.Warn("recovery guard: assurance level lookup failed for %s: %v", user.ID, err)
		return Redirect(PathSettings)
	}

	if !aal.HasMethod(AuthMethodRecovery) {
		g.logger.Info("recovery guard: session for %s was not established by recovery", user.ID)
		return Redirect(PathSettings)
	}

	return nil
}

// RequireRecoverySession is the function form of RecoveryGuard.Require.
func RequireRecoverySession(ctx context.Context, provider IdentityProvider) error {
	return NewRecoveryGuard(provider).Require(ctx)
}
