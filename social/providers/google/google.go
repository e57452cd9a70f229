package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amami1625/pondana-sub000/social"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	providerName       = "google"
	defaultIssuer      = "https://accounts.google.com"
	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	// Issuer is used for discovery when Endpoint and Verifier are unset.
	Issuer      string
	Endpoint    oauth2.Endpoint
	Verifier    *oidc.IDTokenVerifier
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{oidc.ScopeOpenID, "email", "profile"}
}

// Provider implements social.SocialProvider for Google.
type Provider struct {
	oauth       *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	userInfoURL string
	httpClient  *http.Client
}

// New creates a Google provider. Without an explicit Endpoint and Verifier
// the issuer's discovery document is fetched.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.CallbackURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	endpoint, verifier := cfg.Endpoint, cfg.Verifier
	if endpoint.TokenURL == "" || verifier == nil {
		discovered, err := oidc.NewProvider(oidc.ClientContext(ctx, client), cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
		}
		if endpoint.TokenURL == "" {
			endpoint = discovered.Endpoint()
		}
		if verifier == nil {
			verifier = discovered.Verifier(&oidc.Config{ClientID: cfg.ClientID})
		}
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		verifier:    verifier,
		userInfoURL: cfg.UserInfoURL,
		httpClient:  client,
	}, nil
}

// Name implements social.SocialProvider.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL implements social.SocialProvider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.oauth.Scopes, opts...)

	oauthCfg := *p.oauth
	oauthCfg.Scopes = cfg.Scopes

	params := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if cfg.CodeChallenge != "" {
		params = append(params,
			oauth2.SetAuthURLParam("code_challenge", cfg.CodeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", cfg.CodeChallengeMethod),
		)
	}
	if cfg.Prompt != "" {
		params = append(params, oauth2.SetAuthURLParam("prompt", cfg.Prompt))
	}

	return oauthCfg.AuthCodeURL(state, params...)
}

// Exchange implements social.SocialProvider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	var params []oauth2.AuthCodeOption
	if cfg.CodeVerifier != "" {
		params = append(params, oauth2.SetAuthURLParam("code_verifier", cfg.CodeVerifier))
	}

	token, err := p.oauth.Exchange(p.clientContext(ctx), code, params...)
	if err != nil {
		return nil, exchangeError(err)
	}

	idToken, _ := token.Extra("id_token").(string)

	return &social.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// UserInfo implements social.SocialProvider. A verified id_token is
// authoritative; the userinfo endpoint is only a fallback.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	if token == nil {
		return nil, providerError("user_info", 0, "missing_token", "missing token", nil, nil)
	}

	if token.IDToken != "" {
		idToken, err := p.verifier.Verify(p.clientContext(ctx), token.IDToken)
		if err != nil {
			return nil, providerError("verify_id_token", 0, "invalid_id_token", "id_token verification failed", err, nil)
		}

		var info googleUserInfo
		if err := idToken.Claims(&info); err != nil {
			return nil, providerError("verify_id_token", 0, "invalid_claims", "failed to decode id_token claims", err, nil)
		}
		if info.Sub == "" {
			info.Sub = idToken.Subject
		}
		return mapProfile(&info), nil
	}

	return p.fetchUserInfo(ctx, token)
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, providerError("user_info", 0, "transport", "userinfo request failed", err, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		code, description, raw := parseGoogleError(body)
		return nil, providerError("user_info", resp.StatusCode, code, description, nil, raw)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, providerError("user_info", resp.StatusCode, "invalid_response", "failed to decode userinfo response", err, nil)
	}

	return mapProfile(&info), nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func exchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr != nil {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		code, desc := rerr.ErrorCode, rerr.ErrorDescription
		var raw map[string]any
		if code == "" && desc == "" {
			code, desc, raw = parseGoogleError(rerr.Body)
		}
		return providerError("exchange", status, code, desc, err, raw)
	}
	return providerError("exchange", 0, "transport", "token exchange failed", err, nil)
}

type googleErrorResponse struct {
	Error string `json:"error"`
	Desc  string `json:"error_description"`
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseGoogleError(body []byte) (string, string, map[string]any) {
	var plain googleErrorResponse
	if err := json.Unmarshal(body, &plain); err == nil && (plain.Error != "" || plain.Desc != "") {
		return plain.Error, plain.Desc, map[string]any{
			"error":             plain.Error,
			"error_description": plain.Desc,
		}
	}

	var api googleAPIError
	if err := json.Unmarshal(body, &api); err == nil && (api.Error.Message != "" || api.Error.Status != "") {
		code := api.Error.Status
		if code == "" && api.Error.Code != 0 {
			code = fmt.Sprintf("%d", api.Error.Code)
		}
		return code, api.Error.Message, map[string]any{
			"status":  api.Error.Status,
			"message": api.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
	}

	return "", msg, nil
}

func providerError(operation string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    providerName,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
