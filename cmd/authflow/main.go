package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/csauvage/authflow"
)

type App struct {
	config *authflow.AppConfig
	bunDB  *bun.DB
	repo   authflow.RepositoryManager
	auth   authflow.Authenticator
	auther authflow.HTTPAuthenticator
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("authflow"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := authflow.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Error("http server setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		lgr.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	ProtectedRoutes(app)

	app.srv.Serve(cfg.HTTPAddr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DBPath)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*authflow.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = authflow.NewRepositoryManager(db)

	return app.repo.Validate()
}

func WithHTTPServer(ctx context.Context, app *App) error {
	engine := django.New("./views", ".html")
	engine.Reload(app.config.Debug)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		fa := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))

		// credential endpoints share a single abuse throttle
		fa.Use("/auth", limiter.New(limiter.Config{
			Max:        10,
			Expiration: 15 * time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodGet
			},
		}))

		return fa
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Redirect("/auth/login", router.StatusSeeOther)
	})

	app.srv = srv
	return nil
}

type userTrackerAdapter struct {
	users authflow.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*authflow.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *authflow.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSuccessfulLogin(ctx context.Context, user *authflow.User) error {
	return a.users.TrackSuccessfulLogin(ctx, user)
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.config

	tokens := authflow.NewTokenService(cfg, app.GetLogger("auth:tokens"))

	mailer := authflow.NewMailer(cfg.SMTP, app.GetLogger("auth:mail"))

	userProvider := authflow.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := authflow.NewAuthenticator(userProvider, tokens)
	authenticator.WithLogger(app.GetLogger("auth:authz"))
	app.auth = authenticator

	httpAuth, err := authflow.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}

	httpAuth.WithLogger(app.GetLogger("auth:http"))
	app.auther = httpAuth

	authflow.RegisterAuthRoutes(app.srv.Router().Group("/"),
		func(ac *authflow.AuthController) *authflow.AuthController {
			ac.Debug = app.config.Debug
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.Tokens = tokens
			ac.Mailer = mailer
			ac.BaseURL = cfg.GetBaseURL()
			ac.WithLogger(app.GetLogger("auth:ctrl"))
			return ac
		})

	return nil
}

func ProtectedRoutes(app *App) {
	p := app.srv.Router()

	protected := app.auther.ProtectedRoute(app.auther.MakeClientRouteAuthErrorHandler(false))

	p.Get("/me", ProfileShow(app), protected)
}

func ProfileShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		session, err := authflow.GetRouterSession(ctx, app.config.GetContextKey())
		if err != nil {
			return app.auther.MakeClientRouteAuthErrorHandler(false)(ctx, err)
		}

		identity, err := app.auth.IdentityFromSession(ctx.Context(), session)
		if err != nil {
			return app.auther.MakeClientRouteAuthErrorHandler(false)(ctx, err)
		}

		return ctx.Render("profile", router.ViewContext{
			"name":  identity.Name(),
			"email": identity.Email(),
		})
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
