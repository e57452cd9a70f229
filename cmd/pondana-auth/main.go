package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/activitymap"
	"github.com/amami1625/pondana-sub000/provider/local"
	"github.com/amami1625/pondana-sub000/ratelimit"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/amami1625/pondana-sub000/social"
	"github.com/amami1625/pondana-sub000/social/providers/google"
	"github.com/amami1625/pondana-sub000/viewcache"
)

//go:embed views
var viewsFS embed.FS

// eventsKeepAlive keeps idle event streams open through proxies.
const eventsKeepAlive = 25 * time.Second

type App struct {
	config   *auth.Config
	logger   auth.Logger
	db       *bun.DB
	redis    redis.UniversalClient
	provider *local.Provider
	views    *viewcache.Cache
	auth     *auth.AuthController
	srv      router.Server[*fiber.App]
	// streams ends open event streams ahead of shutdown
	streams context.CancelFunc
}

func main() {
	cfg, err := auth.LoadConfig()
	if err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: auth.DefaultLogger(),
	}

	if cfg.Debug {
		// never print the secrets
		safe := *cfg
		safe.SigningKey, safe.GoogleClientSecret, safe.StateKey = "***", "***", "***"
		app.logger.Debug("config:\n%s", print.MaybePrettyJSON(safe))
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithIdentityProvider(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	WithHTTPAuth(ctx, app)

	go func() {
		app.logger.Info("listening on %s", cfg.Addr)
		if err := app.srv.Serve(cfg.Addr); err != nil {
			app.logger.Error("serve: %v", err)
		}
	}()

	WaitExitSignal()

	app.streams()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("shutdown: %v", err)
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("close redis: %v", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("close database: %v", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DatabaseDSN)
	if err != nil {
		return err
	}

	persistence.RegisterModel(local.Models()...)

	client, err := persistence.New(app.config.Persistence(), sqldb, sqlitedialect.New())
	if err != nil {
		return err
	}
	client.SetLogger(app.logger.Debug)
	client.RegisterSQLMigrations(local.MigrationsFS())

	if err := client.Migrate(ctx); err != nil {
		return err
	}
	if report := client.Report(); report != nil && !report.IsZero() {
		app.logger.Info("migrations applied: %s", report.String())
	}

	db, ok := client.DB().(*bun.DB)
	if !ok {
		return fmt.Errorf("persistence client returned %T, want *bun.DB", client.DB())
	}
	app.db = db

	app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		// rate limits fail open and the view cache falls through to a render
		app.logger.Warn("redis unavailable at %s: %v", app.config.RedisAddr, err)
	}

	app.views = viewcache.New(app.redis, app.config.RedisPrefix, 10*time.Minute).
		WithLogger(app.logger)

	return nil
}

func WithIdentityProvider(ctx context.Context, app *App) error {
	cfg := app.config

	tokens, err := local.NewTokenService(local.TokenConfig{
		SigningKeyID: cfg.SigningKeyID,
		Keys:         map[string][]byte{cfg.SigningKeyID: []byte(cfg.SigningKey)},
		Issuer:       cfg.Issuer,
		TTL:          cfg.TokenTTL,
	})
	if err != nil {
		return err
	}

	limiter := ratelimit.New(app.redis, cfg.RedisPrefix)

	opts := []local.Option{
		local.WithLogger(app.logger),
		local.WithMailer(local.NewLogMailer(app.logger)),
		local.WithActivitySink(activitymap.LogSink(app.logger)),
		local.WithRateLimiter(limiter,
			ratelimit.Policy{Name: "sign_in", Limit: cfg.SignInLimit, Window: cfg.SignInWindow},
			ratelimit.Policy{Name: "email_send", Limit: cfg.EmailSendLimit, Window: cfg.EmailSendWindow},
		),
		local.WithSiteURL(cfg.SiteOrigin),
		local.WithStorageKey(cfg.SessionCookie),
		local.WithRecoveryTTL(cfg.RecoveryTTL),
		local.WithEmailLinkTTL(cfg.EmailLinkTTL),
		local.WithDeterministicIDs(cfg.DeterministicIDs),
	}

	if cfg.GoogleEnabled() {
		provider, err := google.New(ctx, google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.SiteOrigin + auth.PathCallback,
		})
		if err != nil {
			return err
		}
		states := social.NewStateManagerFromSecret(cfg.StateKey, 10*time.Minute)
		opts = append(opts, local.WithSocialFlow(social.NewFlow(states, provider)))
	}

	app.provider = local.New(app.db, tokens, opts...)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")
	engine.Reload(app.config.Debug)

	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Debug,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	return nil
}

func WithHTTPAuth(ctx context.Context, app *App) {
	cfg := app.config

	clients := func(storage session.Storage) auth.Client {
		return app.provider.Client(storage)
	}

	broadcasters := func(profile string) session.Broadcaster {
		return session.NewRedisBroadcaster(app.redis, cfg.RedisPrefix+":auth-events", profile).
			WithLogger(app.logger)
	}

	browserClients := func(storage session.Storage) auth.Client {
		return app.provider.Client(storage, local.WithBroadcaster(broadcasters(browserProfile(storage))))
	}

	app.auth = auth.RegisterAuthRoutes(app.srv.Router().Group("/"),
		auth.WithClientFactory(clients),
		auth.WithBrowserClientFactory(browserClients),
		auth.WithCallbackURLs(cfg.Callbacks()),
		auth.WithRevalidator(app.views),
		auth.WithViewCache(app.views),
		auth.WithCookieOptions(cfg.CookieOptions()),
		auth.WithControllerLogger(app.logger),
		auth.WithDebug(cfg.Debug),
	)

	app.srv.Router().Get(auth.PathHome, HomeShow(app.auth)).
		SetName("home.get")

	streams, cancel := context.WithCancel(ctx)
	app.streams = cancel
	app.srv.WrappedRouter().Get(auth.PathEvents,
		EventsHandler(streams, cfg.CookieOptions(), broadcasters, eventsKeepAlive, app.logger))
}

func HomeShow(ctrl *auth.AuthController) router.HandlerFunc {
	return func(ctx router.Context) error {
		view := router.ViewContext{}
		if user, err := ctrl.CurrentUser(ctx); err == nil {
			view["user"] = user
		}
		return ctx.Render("home", view)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
