package social

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Flow runs the authorization code + PKCE dance for a set of providers.
// All per-attempt data lives in the encrypted state parameter.
type Flow struct {
	providers map[string]SocialProvider
	states    StateManager
	prompt    string
}

// NewFlow registers providers by name.
func NewFlow(states StateManager, providers ...SocialProvider) *Flow {
	f := &Flow{
		providers: map[string]SocialProvider{},
		states:    states,
		prompt:    "select_account",
	}
	for _, p := range providers {
		if p != nil {
			f.providers[strings.ToLower(p.Name())] = p
		}
	}
	return f
}

// Provider returns the provider registered under name.
func (f *Flow) Provider(name string) (SocialProvider, error) {
	p, ok := f.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotFound.Clone().WithMetadata(map[string]any{"provider": name})
	}
	return p, nil
}

// Begin returns the provider authorization URL. next is carried through
// the state and handed back by Complete.
func (f *Flow) Begin(providerName, next string, scopes ...string) (string, error) {
	provider, err := f.Provider(providerName)
	if err != nil {
		return "", err
	}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate PKCE verifier")
	}

	state, err := f.states.Encode(&OAuthState{
		Provider:     provider.Name(),
		CodeVerifier: verifier,
		Next:         next,
	})
	if err != nil {
		return "", err
	}

	opts := []AuthCodeOption{WithPKCE(CodeChallenge(verifier), "S256")}
	if f.prompt != "" {
		opts = append(opts, WithPrompt(f.prompt))
	}
	if len(scopes) > 0 {
		opts = append(opts, WithScopes(scopes...))
	}

	return provider.AuthCodeURL(state, opts...), nil
}

// Complete verifies state, exchanges code and resolves the profile.
func (f *Flow) Complete(ctx context.Context, code, rawState string) (*SocialProfile, *OAuthState, error) {
	state, err := f.states.Decode(rawState)
	if err != nil {
		return nil, nil, err
	}

	provider, err := f.Provider(state.Provider)
	if err != nil {
		return nil, nil, err
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, nil, wrapProviderError(ErrTokenExchangeFailed, provider.Name(), "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, nil, wrapProviderError(ErrUserInfoFailed, provider.Name(), "user_info", err)
	}

	// whether an unverified address is acceptable is the linking policy's call
	if profile == nil || profile.Email == "" {
		return nil, nil, ErrUserInfoFailed.Clone().WithMetadata(map[string]any{
			"provider": provider.Name(),
		})
	}

	return profile, state, nil
}
