package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// OAuthBridge starts third party sign-in.
type OAuthBridge struct {
	provider  IdentityProvider
	callbacks CallbackURLs
	logger    Logger
}

func NewOAuthBridge(provider IdentityProvider, callbacks CallbackURLs) *OAuthBridge {
	return &OAuthBridge{provider: provider, callbacks: callbacks, logger: defLogger{}}
}

func (b *OAuthBridge) WithLogger(logger Logger) *OAuthBridge {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// SignInWithGoogle returns the URL the browser must follow. On failure the
// provider message is returned as is, without translation.
func (b *OAuthBridge) SignInWithGoogle(ctx context.Context) (string, Result) {
	resp, err := b.provider.SignInWithOAuth(ctx, OAuthProviderGoogle, OAuthOptions{
		RedirectTo: b.callbacks.For(PathHome),
	})
	if err != nil {
		b.logger.Error("google sign in failed: %v", err)
		return "", Fail(rawMessage(err))
	}
	if resp == nil || resp.URL == "" {
		b.logger.Error("google sign in returned no redirect")
		return "", Fail("oauth provider returned no redirect URL")
	}
	return resp.URL, Ok()
}

// rawMessage is the provider's own wording, without category decoration.
func rawMessage(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr != nil && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}
