package auth

import (
	"context"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/amami1625/pondana-sub000/translate"
)

// ViewCache is the read side of the rendered-view cache.
type ViewCache interface {
	Remember(ctx context.Context, path string, dst any, build func() (any, error)) error
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {

	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.post")

	app.Get(controller.Routes.SignUp, controller.SignUpShow).
		SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	app.Get(controller.Routes.Google, controller.GoogleSignIn).
		SetName("oauth-google.get")
	app.Get(controller.Routes.Callback, controller.Callback).
		SetName("auth-callback.get")

	app.Get(controller.Routes.PasswordReset, controller.PasswordResetShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Get(controller.Routes.Settings, controller.SettingsShow).
		SetName("settings.get")
	app.Post(controller.Routes.SettingsPasswordReset, controller.SettingsPasswordReset).
		SetName("settings-pwd-reset.post")
	app.Post(controller.Routes.SettingsEmail, controller.SettingsEmail).
		SetName("settings-email.post")

	app.Post(controller.Routes.APILogin, controller.APILogin).
		SetName("api-sign-in.post")
	app.Post(controller.Routes.APILogout, controller.APILogout).
		SetName("api-sign-out.post")

	return controller
}

type AuthControllerRoutes struct {
	Login                 string
	Logout                string
	SignUp                string
	Google                string
	Callback              string
	PasswordReset         string
	Settings              string
	SettingsPasswordReset string
	SettingsEmail         string
	APILogin              string
	APILogout             string
}

type AuthControllerViews struct {
	Login         string
	SignUp        string
	PasswordReset string
	Settings      string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
	// Clients builds the per-request provider client for server handlers.
	Clients ClientFactory
	// BrowserClients builds clients that also announce auth changes to
	// other tabs. Falls back to Clients.
	BrowserClients ClientFactory
	Callbacks      CallbackURLs
	Revalidator    Revalidator
	ViewCache      ViewCache
	Cookies        CookieOptions
}

type AuthControllerOption func(*AuthController) *AuthController

func WithClientFactory(clients ClientFactory) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Clients = clients
		return a
	}
}

func WithBrowserClientFactory(clients ClientFactory) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.BrowserClients = clients
		return a
	}
}

func WithCallbackURLs(callbacks CallbackURLs) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Callbacks = callbacks
		return a
	}
}

func WithRevalidator(r Revalidator) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if r != nil {
			a.Revalidator = r
		}
		return a
	}
}

func WithViewCache(cache ViewCache) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.ViewCache = cache
		return a
	}
}

func WithCookieOptions(opts CookieOptions) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Cookies = opts
		return a
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func WithErrorHandler(handler router.ErrorHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if handler != nil {
			a.ErrorHandler = handler
		}
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Revalidator:  noopRevalidator{},
		Cookies:      DefaultCookieOptions(),
		Routes: &AuthControllerRoutes{
			Login:                 PathLogin,
			Logout:                "/logout",
			SignUp:                "/signup",
			Google:                "/auth/google",
			Callback:              PathCallback,
			PasswordReset:         PathPasswordReset,
			Settings:              PathSettings,
			SettingsPasswordReset: PathSettings + "/password-reset",
			SettingsEmail:         PathSettings + "/email",
			APILogin:              "/api/auth/login",
			APILogout:             "/api/auth/logout",
		},
		Views: &AuthControllerViews{
			Login:         "login",
			SignUp:        "signup",
			PasswordReset: "password_reset",
			Settings:      "settings",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Clients == nil {
		panic("Missing ClientFactory in auth controller...")
	}

	if c.BrowserClients == nil {
		c.BrowserClients = c.Clients
	}

	if c.Callbacks.Origin() == "" {
		panic("Missing site origin in auth controller...")
	}

	return c
}

// Storage returns the cookie storage for ctx, using the controller's
// cookie settings.
func (a *AuthController) Storage(ctx router.Context) *CookieStorage {
	return NewCookieStorage(ctx, a.Cookies)
}

// CurrentUser resolves the signed-in user for handlers mounted outside the
// controller, so they share its cookie settings.
func (a *AuthController) CurrentUser(ctx router.Context) (*User, error) {
	return CurrentUser(ctx, a.client(ctx))
}

func (a *AuthController) client(ctx router.Context) Client {
	return a.Clients(a.Storage(ctx))
}

func (a *AuthController) translator(ctx router.Context) *translate.Translator {
	return translate.ForAcceptLanguage(ctx.Header("Accept-Language"))
}

func (a *AuthController) debug(title string, v any) {
	if !a.Debug {
		return
	}
	fmt.Println("======= " + title + " ======")
	fmt.Println(print.MaybePrettyJSON(v))
	fmt.Println("=========================")
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"error":  ctx.Query("error", ""),
		"record": LoginRequest{Next: ctx.Query("next", "")},
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login request payload")
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return ctx.Status(router.StatusBadRequest).Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if verr := payload.Validate(); verr != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": verr.ValidationMap(),
		})
	}

	a.debug("AUTH LOGIN", map[string]string{"email": payload.Email, "next": payload.Next})

	actions := NewSessionActions(a.client(ctx), a.Revalidator).
		WithTranslator(a.translator(ctx)).
		WithLogger(a.Logger)

	result := actions.Login(ctx.Context(), Credentials{Email: payload.Email, Password: payload.Password})
	if !result.OK() {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record": payload,
			"error":  result.Error,
		})
	}

	return ctx.Redirect(SafeNext(payload.Next), router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	actions := NewSessionActions(a.client(ctx), a.Revalidator).
		WithTranslator(a.translator(ctx)).
		WithLogger(a.Logger)

	if result := actions.Logout(ctx.Context()); !result.OK() {
		return ctx.Redirect(loginWithError(result.Error), router.StatusSeeOther)
	}

	return ctx.Redirect(PathLogin, router.StatusSeeOther)
}

func (a *AuthController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpRequest{},
	})
}

// SignUpRequest is the form payload. Name is optional and forwarded as is.
type SignUpRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate only checks shape. Password strength is the provider's call.
func (r SignUpRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Length(0, 200)),
			validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
			validation.Field(&r.Password, validation.Required, validation.Length(0, 72)),
		)
	}, "Invalid sign up request payload")
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload: %v", err)
		return ctx.Status(router.StatusBadRequest).Render(a.Views.SignUp, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if verr := payload.Validate(); verr != nil {
		return ctx.Render(a.Views.SignUp, router.ViewContext{
			"record":     payload,
			"validation": verr.ValidationMap(),
		})
	}

	a.debug("AUTH SIGN UP", map[string]string{"email": payload.Email, "name": payload.Name})

	actions := NewSessionActions(a.client(ctx), a.Revalidator).
		WithTranslator(a.translator(ctx)).
		WithLogger(a.Logger)

	result := actions.SignUp(ctx.Context(), SignUpInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if !result.OK() {
		return ctx.Render(a.Views.SignUp, router.ViewContext{
			"record": payload,
			"error":  result.Error,
		})
	}

	return ctx.Redirect(PathHome, router.StatusSeeOther)
}

func (a *AuthController) GoogleSignIn(ctx router.Context) error {
	bridge := NewOAuthBridge(a.client(ctx), a.Callbacks).WithLogger(a.Logger)

	target, result := bridge.SignInWithGoogle(ctx.Context())
	if !result.OK() {
		return ctx.Redirect(loginWithError(result.Error), router.StatusSeeOther)
	}

	return ctx.Redirect(target, router.StatusSeeOther)
}

// Callback finishes OAuth (code + state) and emailed links (token_hash +
// type), then lands on the sanitised next path.
func (a *AuthController) Callback(ctx router.Context) error {
	client := a.client(ctx)
	tr := a.translator(ctx)
	next := SafeNext(ctx.Query("next", ""))

	if providerErr := ctx.Query("error", ""); providerErr != "" {
		a.Logger.Info("auth callback: provider returned %s: %s", providerErr, ctx.Query("error_description", ""))
		return ctx.Redirect(loginWithError(tr.Error(errors.New(providerErr, errors.CategoryAuth))), router.StatusSeeOther)
	}

	var (
		sess *Session
		err  error
	)

	switch {
	case ctx.Query("code", "") != "":
		sess, err = client.ExchangeCodeForSession(ctx.Context(), ctx.Query("code", ""), ctx.Query("state", ""))
		if err == nil && sess != nil && sess.RedirectTo != "" {
			next = SafeNext(sess.RedirectTo)
		}
	case ctx.Query("token_hash", "") != "":
		sess, err = client.VerifyOTP(ctx.Context(), ctx.Query("token_hash", ""), OTPType(ctx.Query("type", "")))
	default:
		a.Logger.Info("auth callback: missing code and token_hash")
		return ctx.Redirect(loginWithError(tr.Error(errors.New("missing callback parameters", errors.CategoryBadInput))), router.StatusSeeOther)
	}

	if err != nil {
		a.Logger.Info("auth callback failed: %v", err)
		return ctx.Redirect(loginWithError(tr.Error(err)), router.StatusSeeOther)
	}

	if sess != nil {
		a.debug("AUTH CALLBACK", map[string]any{"user": sess.User.ID, "amr": sess.AMR, "next": next})
	}

	if rerr := a.Revalidator.Revalidate(ctx.Context(), PathHome, ScopeLayout); rerr != nil {
		a.Logger.Warn("revalidate %s failed: %v", PathHome, rerr)
	}

	return ctx.Redirect(next, router.StatusSeeOther)
}

func (a *AuthController) PasswordResetShow(ctx router.Context) error {
	client := a.client(ctx)
	guard := NewRecoveryGuard(client).WithLogger(a.Logger)
	if err := guard.Require(ctx.Context()); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"record": PasswordResetRequest{},
	})
}

// PasswordResetRequest holds the new password.
type PasswordResetRequest struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Password, validation.Required, validation.Length(0, 72)),
			validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.Password))),
		)
	}, "Invalid password reset payload")
}

// PasswordResetPost re-runs the guard: a POST must not skip the check the
// form rendering did.
func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	client := a.client(ctx)
	guard := NewRecoveryGuard(client).WithLogger(a.Logger)
	if err := guard.Require(ctx.Context()); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordResetRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: %v", err)
		return ctx.Status(router.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
		})
	}

	if verr := payload.Validate(); verr != nil {
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"validation": verr.ValidationMap(),
		})
	}

	actions := NewAccountActions(client, a.Callbacks).
		WithTranslator(a.translator(ctx)).
		WithLogger(a.Logger)

	if result := actions.UpdatePassword(ctx.Context(), payload.Password); !result.OK() {
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"error": result.Error,
		})
	}

	if err := a.Revalidator.Revalidate(ctx.Context(), PathHome, ScopeLayout); err != nil {
		a.Logger.Warn("revalidate %s failed: %v", PathHome, err)
	}

	return ctx.Redirect(settingsWithNotice(NoticePasswordUpdated), router.StatusSeeOther)
}

// Notices shown on the settings page after a redirect.
const (
	NoticePasswordUpdated    = "password_updated"
	NoticePasswordResetSent  = "password_reset_sent"
	NoticeEmailChangePending = "email_change_pending"
)

// SettingsView is the cached part of the settings page.
type SettingsView struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	NewEmail string `json:"new_email,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (a *AuthController) SettingsShow(ctx router.Context) error {
	user, err := CurrentUser(ctx, a.client(ctx))
	if err != nil {
		a.Logger.Debug("settings: no current user: %v", err)
		return ctx.Redirect(PathLogin, RedirectStatus(ctx.Method()))
	}

	build := func() (any, error) {
		view := SettingsView{UserID: user.ID, Email: user.Email, NewEmail: user.NewEmail}
		if name, ok := user.Metadata["name"].(string); ok {
			view.Name = name
		}
		return view, nil
	}

	var view SettingsView
	if a.ViewCache != nil {
		if err := a.ViewCache.Remember(ctx.Context(), PathSettings+"/"+user.ID, &view, build); err != nil {
			return a.ErrorHandler(ctx, err)
		}
	} else {
		v, _ := build()
		view = v.(SettingsView)
	}

	return ctx.Render(a.Views.Settings, router.ViewContext{
		"settings": view,
		"notice":   ctx.Query("notice", ""),
		"error":    ctx.Query("error", ""),
	})
}

// SettingsPasswordResetRequest asks for the current password before a
// recovery link is mailed.
type SettingsPasswordResetRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
}

func (r SettingsPasswordResetRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.CurrentPassword, validation.Required),
		)
	}, "Invalid password reset payload")
}

func (a *AuthController) SettingsPasswordReset(ctx router.Context) error {
	payload := new(SettingsPasswordResetRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("settings password reset parse payload: %v", err)
		return ctx.Redirect(settingsWithError("Failed to parse form"), router.StatusSeeOther)
	}

	tr := a.translator(ctx)
	if verr := payload.Validate(); verr != nil {
		return ctx.Redirect(settingsWithError(tr.IncorrectPassword()), router.StatusSeeOther)
	}

	actions := NewAccountActions(a.client(ctx), a.Callbacks).
		WithTranslator(tr).
		WithLogger(a.Logger)

	if result := actions.VerifyAndSendPasswordResetEmail(ctx.Context(), payload.CurrentPassword); !result.OK() {
		return ctx.Redirect(settingsWithError(result.Error), router.StatusSeeOther)
	}

	return ctx.Redirect(settingsWithNotice(NoticePasswordResetSent), router.StatusSeeOther)
}

// SettingsEmailRequest carries the requested address.
type SettingsEmailRequest struct {
	Email string `form:"email" json:"email"`
}

func (r SettingsEmailRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
		)
	}, "Invalid email change payload")
}

func (a *AuthController) SettingsEmail(ctx router.Context) error {
	payload := new(SettingsEmailRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("settings email parse payload: %v", err)
		return ctx.Redirect(settingsWithError("Failed to parse form"), router.StatusSeeOther)
	}

	tr := a.translator(ctx)
	if verr := payload.Validate(); verr != nil {
		return ctx.Redirect(settingsWithError(tr.Message(translate.CodeEmailAddressInvalid)), router.StatusSeeOther)
	}

	actions := NewAccountActions(a.client(ctx), a.Callbacks).
		WithTranslator(tr).
		WithLogger(a.Logger)

	if result := actions.SendEmailChangeConfirmation(ctx.Context(), payload.Email); !result.OK() {
		return ctx.Redirect(settingsWithError(result.Error), router.StatusSeeOther)
	}

	if err := a.Revalidator.Revalidate(ctx.Context(), PathSettings, ScopeLayout); err != nil {
		a.Logger.Warn("revalidate %s failed: %v", PathSettings, err)
	}

	return ctx.Redirect(settingsWithNotice(NoticeEmailChangePending), router.StatusSeeOther)
}

// APILogin is the browser-side login. It answers with a Result instead of
// a redirect and announces the change to other tabs.
func (a *AuthController) APILogin(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, Fail("Failed to parse body"))
	}

	tr := a.translator(ctx)
	if verr := payload.Validate(); verr != nil {
		return ctx.JSON(router.StatusBadRequest, Fail(tr.Message(translate.CodeValidationFailed)))
	}

	actions := NewClientActions(a.BrowserClients(a.Storage(ctx))).
		WithTranslator(tr).
		WithLogger(a.Logger)

	result := actions.Login(ctx.Context(), Credentials{Email: payload.Email, Password: payload.Password})
	if !result.OK() {
		return ctx.JSON(router.StatusUnauthorized, result)
	}
	return ctx.JSON(router.StatusOK, result)
}

func (a *AuthController) APILogout(ctx router.Context) error {
	actions := NewClientActions(a.BrowserClients(a.Storage(ctx))).
		WithTranslator(a.translator(ctx)).
		WithLogger(a.Logger)

	result := actions.Logout(ctx.Context())
	if !result.OK() {
		return ctx.JSON(router.StatusUnauthorized, result)
	}
	return ctx.JSON(router.StatusOK, result)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}

func loginWithError(message string) string {
	q := url.Values{}
	q.Set("error", message)
	return PathLogin + "?" + q.Encode()
}

func settingsWithError(message string) string {
	q := url.Values{}
	q.Set("error", message)
	return PathSettings + "?" + q.Encode()
}

func settingsWithNotice(notice string) string {
	q := url.Values{}
	q.Set("notice", notice)
	return PathSettings + "?" + q.Encode()
}
