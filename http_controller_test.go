package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/amami1625/pondana-sub000/translate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const testOrigin = "https://pondana.example"

func newTestController(provider *MockProvider, revalidator auth.Revalidator, opts ...auth.AuthControllerOption) *auth.AuthController {
	base := []auth.AuthControllerOption{
		auth.WithClientFactory(func(session.Storage) auth.Client { return provider }),
		auth.WithCallbackURLs(auth.NewCallbackURLs(testOrigin)),
		auth.WithRevalidator(revalidator),
	}
	return auth.NewAuthController(append(base, opts...)...)
}

func newRequest() *MockContext {
	ctx := NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything).Return().Maybe()
	ctx.On("Cookies", mock.Anything).Return("").Maybe()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	return ctx
}

func bindLogin(ctx *MockContext, payload auth.LoginRequest) {
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.LoginRequest) = payload
	}).Return(nil)
}

func providerError(code translate.Code, message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).WithTextCode(string(code))
}

func withQuery(path, key, value string) string {
	q := url.Values{}
	q.Set(key, value)
	return path + "?" + q.Encode()
}

func recoveryLevel() *auth.AssuranceLevel {
	return &auth.AssuranceLevel{
		CurrentLevel:                 "aal1",
		CurrentAuthenticationMethods: []auth.AMREntry{{Method: auth.AuthMethodRecovery}},
	}
}

func TestNewAuthControllerRequiresClients(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewAuthController(auth.WithCallbackURLs(auth.NewCallbackURLs(testOrigin)))
	})
	assert.Panics(t, func() {
		auth.NewAuthController(auth.WithClientFactory(func(session.Storage) auth.Client { return &MockProvider{} }))
	})
}

func TestLoginPostRevalidatesAndRedirects(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	bindLogin(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "secret1", Next: "/books"})
	provider.On("SignInWithPassword", mock.Anything, auth.Credentials{Email: "reader@example.com", Password: "secret1"}).
		Return(&auth.Session{}, nil)
	revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
	ctx.On("Redirect", "/books", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	provider.AssertExpectations(t)
	revalidator.AssertExpectations(t)
	ctx.AssertExpectations(t)
}

func TestLoginPostRendersTranslatedError(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	ctx.HeadersM["Accept-Language"] = "en-US,en;q=0.9"
	bindLogin(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "wrong"})
	provider.On("SignInWithPassword", mock.Anything, mock.Anything).
		Return(nil, providerError(translate.CodeInvalidCredentials, translate.MessageInvalidCredentials))

	var view router.ViewContext
	ctx.On("Render", "login", mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	assert.Equal(t, "Incorrect email address or password", view["error"])
	revalidator.AssertNotCalled(t, "Revalidate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginPostValidatesPayload(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	bindLogin(ctx, auth.LoginRequest{Email: "not-an-email"})

	var view router.ViewContext
	ctx.On("Render", "login", mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	fields, ok := view["validation"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	provider.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything)
}

func TestLogOutRedirectsToLogin(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	provider.On("SignOut", mock.Anything).Return(nil)
	revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
	ctx.On("Redirect", auth.PathLogin, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LogOut(ctx))
	ctx.AssertExpectations(t)
}

func TestSignUpPostForwardsName(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.SignUpRequest) = auth.SignUpRequest{Email: "reader@example.com", Password: "secret1"}
	}).Return(nil)
	provider.On("SignUp", mock.Anything,
		auth.Credentials{Email: "reader@example.com", Password: "secret1"},
		auth.SignUpOptions{Data: map[string]any{"name": ""}},
	).Return(&auth.User{ID: "u1"}, nil)
	revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
	ctx.On("Redirect", auth.PathHome, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.SignUpPost(ctx))
	provider.AssertExpectations(t)
	ctx.AssertExpectations(t)
}

func TestGoogleSignInRedirectsToProvider(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	provider.On("SignInWithOAuth", mock.Anything, auth.OAuthProviderGoogle, auth.OAuthOptions{
		RedirectTo: auth.NewCallbackURLs(testOrigin).For(auth.PathHome),
	}).Return(&auth.OAuthResponse{Provider: auth.OAuthProviderGoogle, URL: "https://accounts.example/authorize"}, nil)
	ctx.On("Redirect", "https://accounts.example/authorize", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.GoogleSignIn(ctx))
	ctx.AssertExpectations(t)
}

func TestGoogleSignInFailureKeepsProviderMessage(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	provider.On("SignInWithOAuth", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider is not enabled"))
	ctx.On("Redirect", withQuery(auth.PathLogin, "error", "provider is not enabled"), []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.GoogleSignIn(ctx))
	ctx.AssertExpectations(t)
}

func TestCallback(t *testing.T) {
	t.Run("oauth lands where the sign in started", func(t *testing.T) {
		provider := &MockProvider{}
		revalidator := &MockRevalidator{}
		ctrl := newTestController(provider, revalidator)

		ctx := newRequest()
		ctx.QueriesM["code"] = "auth-code"
		ctx.QueriesM["state"] = "state-token"
		provider.On("ExchangeCodeForSession", mock.Anything, "auth-code", "state-token").
			Return(&auth.Session{RedirectTo: "/books"}, nil)
		revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
		ctx.On("Redirect", "/books", []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("recovery link lands on next", func(t *testing.T) {
		provider := &MockProvider{}
		revalidator := &MockRevalidator{}
		ctrl := newTestController(provider, revalidator)

		ctx := newRequest()
		ctx.QueriesM["token_hash"] = "secret"
		ctx.QueriesM["type"] = "recovery"
		ctx.QueriesM["next"] = auth.PathPasswordReset
		provider.On("VerifyOTP", mock.Anything, "secret", auth.OTPTypeRecovery).Return(&auth.Session{}, nil)
		revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
		ctx.On("Redirect", auth.PathPasswordReset, []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("email change without session lands on next", func(t *testing.T) {
		provider := &MockProvider{}
		revalidator := &MockRevalidator{}
		ctrl := newTestController(provider, revalidator)

		ctx := newRequest()
		ctx.QueriesM["token_hash"] = "secret"
		ctx.QueriesM["type"] = "email_change"
		ctx.QueriesM["next"] = auth.PathSettings
		provider.On("VerifyOTP", mock.Anything, "secret", auth.OTPTypeEmailChange).Return(nil, nil)
		revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
		ctx.On("Redirect", auth.PathSettings, []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("external next is ignored", func(t *testing.T) {
		provider := &MockProvider{}
		revalidator := &MockRevalidator{}
		ctrl := newTestController(provider, revalidator)

		ctx := newRequest()
		ctx.QueriesM["token_hash"] = "secret"
		ctx.QueriesM["type"] = "recovery"
		ctx.QueriesM["next"] = "https://evil.example/steal"
		provider.On("VerifyOTP", mock.Anything, "secret", auth.OTPTypeRecovery).Return(&auth.Session{}, nil)
		revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
		ctx.On("Redirect", auth.PathHome, []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("failure goes back to login with a translated error", func(t *testing.T) {
		provider := &MockProvider{}
		revalidator := &MockRevalidator{}
		ctrl := newTestController(provider, revalidator)

		ctx := newRequest()
		ctx.HeadersM["Accept-Language"] = "en"
		ctx.QueriesM["token_hash"] = "used"
		ctx.QueriesM["type"] = "recovery"
		provider.On("VerifyOTP", mock.Anything, "used", auth.OTPTypeRecovery).
			Return(nil, providerError(translate.CodeOTPExpired, translate.MessageOTPExpired))
		ctx.On("Redirect", withQuery(auth.PathLogin, "error", "The link has expired or was already used"), []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
		revalidator.AssertNotCalled(t, "Revalidate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing parameters", func(t *testing.T) {
		provider := &MockProvider{}
		ctrl := newTestController(provider, &MockRevalidator{})

		ctx := newRequest()
		ctx.On("Redirect", withQuery(auth.PathLogin, "error", translate.Default().Message(translate.CodeUnknown)), []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.Callback(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestPasswordResetShowGuard(t *testing.T) {
	t.Run("no session goes to login", func(t *testing.T) {
		provider := &MockProvider{}
		ctrl := newTestController(provider, &MockRevalidator{})

		ctx := newRequest()
		provider.On("GetUser", mock.Anything).Return(nil, errors.New("Auth session missing!"))
		ctx.On("Redirect", auth.PathLogin, []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.PasswordResetShow(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("ordinary session goes to settings", func(t *testing.T) {
		provider := &MockProvider{}
		ctrl := newTestController(provider, &MockRevalidator{})

		ctx := newRequest()
		provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1"}, nil)
		provider.On("GetAuthenticatorAssuranceLevel", mock.Anything).Return(&auth.AssuranceLevel{
			CurrentAuthenticationMethods: []auth.AMREntry{{Method: auth.AuthMethodPassword}},
		}, nil)
		ctx.On("Redirect", auth.PathSettings, []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.PasswordResetShow(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("recovery session renders the form", func(t *testing.T) {
		provider := &MockProvider{}
		ctrl := newTestController(provider, &MockRevalidator{})

		ctx := newRequest()
		provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1"}, nil)
		provider.On("GetAuthenticatorAssuranceLevel", mock.Anything).Return(recoveryLevel(), nil)
		ctx.On("Render", "password_reset", mock.Anything).Return(nil)

		require.NoError(t, ctrl.PasswordResetShow(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestPasswordResetPostIsGuarded(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1"}, nil)
	provider.On("GetAuthenticatorAssuranceLevel", mock.Anything).Return(&auth.AssuranceLevel{}, nil)
	ctx.On("Redirect", auth.PathSettings, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.PasswordResetPost(ctx))
	ctx.AssertNotCalled(t, "Bind", mock.Anything)
	provider.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordResetPostUpdatesPassword(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1"}, nil)
	provider.On("GetAuthenticatorAssuranceLevel", mock.Anything).Return(recoveryLevel(), nil)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.PasswordResetRequest) = auth.PasswordResetRequest{Password: "newPassword123", ConfirmPassword: "newPassword123"}
	}).Return(nil)
	provider.On("UpdateUser", mock.Anything, auth.UserAttributes{Password: "newPassword123"}, auth.UpdateUserOptions{}).
		Return(&auth.User{ID: "u1"}, nil)
	revalidator.On("Revalidate", mock.Anything, auth.PathHome, auth.ScopeLayout).Return(nil)
	ctx.On("Redirect", withQuery(auth.PathSettings, "notice", auth.NoticePasswordUpdated), []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.PasswordResetPost(ctx))
	provider.AssertExpectations(t)
	ctx.AssertExpectations(t)
}

func TestPasswordResetPostRejectsMismatch(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1"}, nil)
	provider.On("GetAuthenticatorAssuranceLevel", mock.Anything).Return(recoveryLevel(), nil)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.PasswordResetRequest) = auth.PasswordResetRequest{Password: "newPassword123", ConfirmPassword: "other"}
	}).Return(nil)

	var view router.ViewContext
	ctx.On("Render", "password_reset", mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, ctrl.PasswordResetPost(ctx))
	fields, ok := view["validation"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "confirm_password")
	provider.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
}

type stubViewCache struct {
	paths []string
}

func (s *stubViewCache) Remember(_ context.Context, path string, dst any, build func() (any, error)) error {
	s.paths = append(s.paths, path)
	v, err := build()
	if err != nil {
		return err
	}
	*dst.(*auth.SettingsView) = v.(auth.SettingsView)
	return nil
}

func TestSettingsShowRendersCachedView(t *testing.T) {
	provider := &MockProvider{}
	cache := &stubViewCache{}
	ctrl := newTestController(provider, &MockRevalidator{}, auth.WithViewCache(cache))

	ctx := newRequest()
	ctx.QueriesM["notice"] = auth.NoticeEmailChangePending
	provider.On("GetUser", mock.Anything).Return(&auth.User{
		ID:       "u1",
		Email:    "reader@example.com",
		NewEmail: "new@example.com",
		Metadata: map[string]any{"name": "Reader"},
	}, nil)

	var view router.ViewContext
	ctx.On("Render", "settings", mock.Anything).Run(func(args mock.Arguments) {
		view = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, ctrl.SettingsShow(ctx))
	assert.Equal(t, []string{auth.PathSettings + "/u1"}, cache.paths)
	assert.Equal(t, auth.SettingsView{
		UserID:   "u1",
		Email:    "reader@example.com",
		NewEmail: "new@example.com",
		Name:     "Reader",
	}, view["settings"])
	assert.Equal(t, auth.NoticeEmailChangePending, view["notice"])
}

func TestSettingsShowWithoutSession(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	ctx.On("Method").Return("GET")
	provider.On("GetUser", mock.Anything).Return(nil, errors.New("Auth session missing!"))
	ctx.On("Redirect", auth.PathLogin, []int{http.StatusFound}).Return(nil)

	require.NoError(t, ctrl.SettingsShow(ctx))
	ctx.AssertExpectations(t)
}

func TestSettingsPasswordResetWrongPassword(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.SettingsPasswordResetRequest) = auth.SettingsPasswordResetRequest{CurrentPassword: "wrong"}
	}).Return(nil)
	provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1", Email: "reader@example.com"}, nil)
	provider.On("SignInWithPassword", mock.Anything, auth.Credentials{Email: "reader@example.com", Password: "wrong"}).
		Return(nil, providerError(translate.CodeInvalidCredentials, translate.MessageInvalidCredentials))
	ctx.On("Redirect", withQuery(auth.PathSettings, "error", translate.Default().IncorrectPassword()), []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.SettingsPasswordReset(ctx))
	ctx.AssertExpectations(t)
	provider.AssertNotCalled(t, "ResetPasswordForEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettingsEmailRequestsChange(t *testing.T) {
	provider := &MockProvider{}
	revalidator := &MockRevalidator{}
	ctrl := newTestController(provider, revalidator)

	ctx := newRequest()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.SettingsEmailRequest) = auth.SettingsEmailRequest{Email: "new@example.com"}
	}).Return(nil)
	provider.On("GetUser", mock.Anything).Return(&auth.User{ID: "u1", Email: "reader@example.com"}, nil)
	provider.On("UpdateUser", mock.Anything, auth.UserAttributes{Email: "new@example.com"}, auth.UpdateUserOptions{
		EmailRedirectTo: auth.NewCallbackURLs(testOrigin).For(auth.PathSettings),
	}).Return(&auth.User{ID: "u1"}, nil)
	revalidator.On("Revalidate", mock.Anything, auth.PathSettings, auth.ScopeLayout).Return(nil)
	ctx.On("Redirect", withQuery(auth.PathSettings, "notice", auth.NoticeEmailChangePending), []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.SettingsEmail(ctx))
	provider.AssertExpectations(t)
	revalidator.AssertExpectations(t)
	ctx.AssertExpectations(t)
}

func TestSettingsEmailRejectsMalformedAddress(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*auth.SettingsEmailRequest) = auth.SettingsEmailRequest{Email: "nope"}
	}).Return(nil)
	ctx.On("Redirect", withQuery(auth.PathSettings, "error", translate.Default().Message(translate.CodeEmailAddressInvalid)), []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.SettingsEmail(ctx))
	ctx.AssertExpectations(t)
	provider.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestAPILoginUsesBrowserClients(t *testing.T) {
	server := &MockProvider{}
	browser := &MockProvider{}
	ctrl := newTestController(server, &MockRevalidator{},
		auth.WithBrowserClientFactory(func(session.Storage) auth.Client { return browser }),
	)

	ctx := newRequest()
	bindLogin(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "secret1"})
	browser.On("SignInWithPassword", mock.Anything, auth.Credentials{Email: "reader@example.com", Password: "secret1"}).
		Return(&auth.Session{}, nil)
	ctx.On("JSON", router.StatusOK, auth.Ok()).Return(nil)

	require.NoError(t, ctrl.APILogin(ctx))
	ctx.AssertExpectations(t)
	server.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything)
}

func TestAPILogoutFailure(t *testing.T) {
	provider := &MockProvider{}
	ctrl := newTestController(provider, &MockRevalidator{})

	ctx := newRequest()
	provider.On("SignOut", mock.Anything).
		Return(providerError(translate.CodeSessionNotFound, translate.MessageSessionNotFound))
	ctx.On("JSON", router.StatusUnauthorized, auth.Fail(translate.Default().Message(translate.CodeSessionNotFound))).Return(nil)

	require.NoError(t, ctrl.APILogout(ctx))
	ctx.AssertExpectations(t)
}

func TestCallbackReadsAcceptLanguageHeader(t *testing.T) {
	ctrl := newTestController(&MockProvider{}, &MockRevalidator{})

	srv := router.NewFiberAdapter(func(app *fiber.App) *fiber.App { return app })
	srv.Router().Get(auth.PathCallback, ctrl.Callback)

	denied := goerrors.New("access_denied", goerrors.CategoryAuth)
	tests := []struct {
		header string
		want   *translate.Translator
	}{
		{header: "en-US,en;q=0.9", want: translate.New(language.English)},
		{header: "de-DE", want: translate.Default()},
		{header: "", want: translate.Default()},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, auth.PathCallback+"?error=access_denied", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}

			res, err := srv.WrappedRouter().Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusSeeOther, res.StatusCode)
			assert.Equal(t, withQuery(auth.PathLogin, "error", tt.want.Error(denied)), res.Header.Get("Location"))
		})
	}
}

func TestCurrentUserUsesControllerCookieOptions(t *testing.T) {
	provider := &MockProvider{}
	var storage session.Storage
	ctrl := auth.NewAuthController(
		auth.WithClientFactory(func(s session.Storage) auth.Client {
			storage = s
			return provider
		}),
		auth.WithCallbackURLs(auth.NewCallbackURLs(testOrigin)),
		auth.WithCookieOptions(auth.CookieOptions{MaxAge: time.Hour, Secure: true, SameSite: "Strict"}),
	)

	user := &auth.User{ID: "u1", Email: "reader@example.com"}
	provider.On("GetUser", mock.Anything).Return(user, nil)

	var written *router.Cookie
	ctx := NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(0).(*router.Cookie)
	}).Return()
	ctx.On("Locals", auth.LocalsUserKey, user).Return(nil)

	got, err := ctrl.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	require.NotNil(t, storage)
	require.NoError(t, storage.SetItem(context.Background(), "pondana-profile", "p1"))
	require.NotNil(t, written)
	assert.True(t, written.Secure)
	assert.Equal(t, "Strict", written.SameSite)
	assert.True(t, written.HTTPOnly)
}
