package auth_test

import (
	"context"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockProvider implements auth.IdentityProvider and auth.CallbackProvider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	args := m.Called(ctx, creds)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, creds auth.Credentials, opts auth.SignUpOptions) (*auth.User, error) {
	args := m.Called(ctx, creds, opts)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) GetUser(ctx context.Context) (*auth.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockProvider) UpdateUser(ctx context.Context, attrs auth.UserAttributes, opts auth.UpdateUserOptions) (*auth.User, error) {
	args := m.Called(ctx, attrs, opts)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockProvider) ResetPasswordForEmail(ctx context.Context, email string, opts auth.ResetPasswordOptions) error {
	args := m.Called(ctx, email, opts)
	return args.Error(0)
}

func (m *MockProvider) SignInWithOAuth(ctx context.Context, provider auth.OAuthProvider, opts auth.OAuthOptions) (*auth.OAuthResponse, error) {
	args := m.Called(ctx, provider, opts)
	r, _ := args.Get(0).(*auth.OAuthResponse)
	return r, args.Error(1)
}

func (m *MockProvider) GetAuthenticatorAssuranceLevel(ctx context.Context) (*auth.AssuranceLevel, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).(*auth.AssuranceLevel)
	return l, args.Error(1)
}

func (m *MockProvider) VerifyOTP(ctx context.Context, tokenHash string, otpType auth.OTPType) (*auth.Session, error) {
	args := m.Called(ctx, tokenHash, otpType)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *MockProvider) ExchangeCodeForSession(ctx context.Context, code, state string) (*auth.Session, error) {
	args := m.Called(ctx, code, state)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

// MockRevalidator implements auth.Revalidator
type MockRevalidator struct {
	mock.Mock
}

func (m *MockRevalidator) Revalidate(ctx context.Context, path string, scope auth.RevalidateScope) error {
	args := m.Called(ctx, path, scope)
	return args.Error(0)
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

// MockContext implements router.Context. Headers, query values, locals and
// the request store are read from plain maps; everything else is mocked.
type MockContext struct {
	mock.Mock
	HeadersM   map[string]string
	QueriesM   map[string]string
	LocalsMock map[any]any
	StoreM     map[string]any
	NextCalled bool
}

var _ router.Context = (*MockContext)(nil)

func NewMockContext() *MockContext {
	return &MockContext{
		HeadersM:   map[string]string{},
		QueriesM:   map[string]string{},
		LocalsMock: map[any]any{},
		StoreM:     map[string]any{},
	}
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	return m.HeadersM[key]
}

func (m *MockContext) Referer() string {
	return m.HeadersM["Referer"]
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	if v, ok := m.QueriesM[key]; ok {
		return v
	}
	return defaultValue
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	return m.QueriesM
}

// Locals reads from LocalsMock. Writes go through the mock and are then
// stored so later reads in the same request see them.
func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.LocalsMock[key]
	}
	args := m.Called(key, value[0])
	m.LocalsMock[key] = value[0]
	return args.Get(0)
}

func (m *MockContext) Set(key string, val any) {
	m.StoreM[key] = val
}

func (m *MockContext) Get(key string, def any) any {
	if v, ok := m.StoreM[key]; ok {
		return v
	}
	return def
}

func (m *MockContext) GetString(key string, def string) string {
	if v, ok := m.StoreM[key].(string); ok {
		return v
	}
	return def
}

func (m *MockContext) GetInt(key string, def int) int {
	if v, ok := m.StoreM[key].(int); ok {
		return v
	}
	return def
}

func (m *MockContext) GetBool(key string, def bool) bool {
	if v, ok := m.StoreM[key].(bool); ok {
		return v
	}
	return def
}
