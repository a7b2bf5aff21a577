// Package server assembles the EMS application from its configuration:
// storage and session backends, mailer, services and the HTTP server, and
// runs it until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/logging"
	"github.com/dmitrijs2005/ems/internal/server/auth"
	"github.com/dmitrijs2005/ems/internal/server/config"
	"github.com/dmitrijs2005/ems/internal/server/httpapi"
	"github.com/dmitrijs2005/ems/internal/server/mailer"
	"github.com/dmitrijs2005/ems/internal/server/repositories/memory"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ems/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/ems/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	closers []func() error
}

// Storage is the relational backend the services run on.
type Storage struct {
	Repos      repomanager.RepositoryManager
	Transactor dbx.Transactor
	DB         *sql.DB
}

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// OpenStorage connects the configured backend and, for PostgreSQL, applies
// pending migrations.
func OpenStorage(ctx context.Context, c *config.Config) (*Storage, error) {
	switch c.StorageBackend {
	case config.StorageBackendMemory:
		return &Storage{Repos: memory.NewRepositoryManager(), Transactor: memory.NewTransactor()}, nil

	case config.StorageBackendPostgres:
		db, err := openDB(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}

		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		return &Storage{Repos: rm, Transactor: dbx.NewSQLTransactor(db, nil), DB: db}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewForEnv(c.Env, os.Stdout)
	app := &App{config: c, logger: logger}

	st, err := OpenStorage(ctx, c)
	if err != nil {
		return nil, err
	}
	if st.DB != nil {
		app.closers = append(app.closers, st.DB.Close)
	}

	store, err := app.sessionStore(ctx, st)
	if err != nil {
		app.close()
		return nil, err
	}

	m, err := app.mailer(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	signer := auth.NewSigner([]byte(c.SecretKey))
	registry := services.NewSessionRegistry(store, signer, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	creds := services.NewCredentialStore(st.Transactor, st.Repos)
	otps := services.NewOTPEngine(st.Transactor, st.Repos, c.OTPValidityDuration)

	authSvc := services.NewAuthService(creds, otps, registry, m, logger)
	attendanceSvc := services.NewAttendanceService(st.Transactor, st.Repos)
	leaveSvc := services.NewLeaveService(st.Transactor, st.Repos, services.NewS3Presigner(c))

	h := httpapi.NewHandler(authSvc, attendanceSvc, leaveSvc, logger)
	app.handler = httpapi.NewRouter(h, c.RequestTimeout)

	return app, nil
}

// Handler returns the application's HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) sessionStore(ctx context.Context, st *Storage) (services.SessionStore, error) {
	switch app.config.SessionBackend {
	case config.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
		return sessions.NewRedisStore(rdb, app.config.RefreshTokenValidityDuration), nil
	default:
		return services.NewSQLSessionStore(st.Transactor, st.Repos), nil
	}
}

func (app *App) mailer(ctx context.Context) (services.Mailer, error) {
	if app.config.MailerBackend == config.MailerBackendSES {
		return mailer.NewSESMailer(ctx, app.config.AWSRegion, app.config.MailFrom)
	}
	return mailer.NewLogMailer(app.logger), nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(context.Background(), "close error", "err", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := httpapi.NewHTTPServer(app.config, app.logger, app.handler)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the backends.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...",
		"env", app.config.Env,
		"storage", app.config.StorageBackend,
		"sessions", app.config.SessionBackend,
		"mailer", app.config.MailerBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
