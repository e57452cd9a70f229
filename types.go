package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AuthMethod is one entry kind of an Authentication Method Reference list.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodOAuth    AuthMethod = "oauth"
	AuthMethodRecovery AuthMethod = "recovery"
	AuthMethodOTP      AuthMethod = "otp"
)

// AMREntry records how, and when, a session was established.
type AMREntry struct {
	Method    AuthMethod `json:"method"`
	Timestamp int64      `json:"timestamp"`
}

// AssuranceLevel is the provider's view of the current session strength.
type AssuranceLevel struct {
	CurrentLevel                 string     `json:"current_level"`
	NextLevel                    string     `json:"next_level"`
	CurrentAuthenticationMethods []AMREntry `json:"current_authentication_methods"`
}

// HasMethod reports whether any AMR entry used method.
func (a *AssuranceLevel) HasMethod(method AuthMethod) bool {
	if a == nil {
		return false
	}
	for _, entry := range a.CurrentAuthenticationMethods {
		if entry.Method == method {
			return true
		}
	}
	return false
}

// User is the identity a session resolves to.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	NewEmail         string         `json:"new_email,omitempty"`
	Metadata         map[string]any `json:"user_metadata,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Session is an issued session as seen by callers. The token is opaque.
type Session struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        User       `json:"user"`
	AMR         []AMREntry `json:"amr"`
	// RedirectTo is where a third party sign-in asked to land.
	RedirectTo string `json:"-"`
}

// Credentials are forwarded to the provider and never stored here.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpOptions carries provider-side user metadata for new accounts.
type SignUpOptions struct {
	Data            map[string]any
	EmailRedirectTo string
}

// UserAttributes selects what UpdateUser changes. Empty fields are left
// untouched.
type UserAttributes struct {
	Email    string
	Password string
	Data     map[string]any
}

// UpdateUserOptions configures where confirmation links point to.
type UpdateUserOptions struct {
	EmailRedirectTo string
}

// ResetPasswordOptions configures the recovery link target.
type ResetPasswordOptions struct {
	RedirectTo string
}

// OAuthProvider names a third party sign-in provider.
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "google"
)

// OAuthOptions configures a third party sign-in.
type OAuthOptions struct {
	RedirectTo string
	Scopes     []string
}

// OAuthResponse is where the browser must go to continue a third party
// sign-in.
type OAuthResponse struct {
	Provider OAuthProvider
	URL      string
}

// OTPType names the kind of one-time link being consumed.
type OTPType string

const (
	OTPTypeRecovery    OTPType = "recovery"
	OTPTypeEmailChange OTPType = "email_change"
)

// IdentityProvider is the request-scoped handle on the identity service.
// Implementations read and write the caller's session through their own
// storage; nothing in this package keeps sessions.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error)
	SignUp(ctx context.Context, creds Credentials, opts SignUpOptions) (*User, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (*User, error)
	UpdateUser(ctx context.Context, attrs UserAttributes, opts UpdateUserOptions) (*User, error)
	ResetPasswordForEmail(ctx context.Context, email string, opts ResetPasswordOptions) error
	SignInWithOAuth(ctx context.Context, provider OAuthProvider, opts OAuthOptions) (*OAuthResponse, error)
	GetAuthenticatorAssuranceLevel(ctx context.Context) (*AssuranceLevel, error)
}

// CallbackProvider finishes the asynchronous flows that come back through
// the auth callback route.
type CallbackProvider interface {
	VerifyOTP(ctx context.Context, tokenHash string, otpType OTPType) (*Session, error)
	ExchangeCodeForSession(ctx context.Context, code, state string) (*Session, error)
}

// RevalidateScope selects how much of the cached view tree to drop.
type RevalidateScope string

const (
	// ScopePage drops the cached view for exactly one path.
	ScopePage RevalidateScope = "page"
	// ScopeLayout drops the path and every view nested under it.
	ScopeLayout RevalidateScope = "layout"
)

// Revalidator invalidates server-rendered views after an auth change.
type Revalidator interface {
	Revalidate(ctx context.Context, path string, scope RevalidateScope) error
}

// RevalidatorFunc adapts a function to Revalidator.
type RevalidatorFunc func(ctx context.Context, path string, scope RevalidateScope) error

func (f RevalidatorFunc) Revalidate(ctx context.Context, path string, scope RevalidateScope) error {
	return f(ctx, path, scope)
}

// Translator turns provider failures into user-facing messages.
type Translator interface {
	Error(err error) string
	IncorrectPassword() string
	UserLookupFailed() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// DefaultLogger returns the printf logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopRevalidator struct{}

func (noopRevalidator) Revalidate(context.Context, string, RevalidateScope) error { return nil }
