package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"texforge/internal/compile"
	"texforge/internal/config"
	"texforge/internal/database"
	"texforge/internal/score"
	"texforge/internal/tex"
	"texforge/internal/web"
)

// App is the application layer between the CLI and the service stack.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *tex.Service
	manager *compile.Manager
	sweeper *compile.Sweeper
	scorer  *score.Scorer
	server  *http.Server
	logFile *os.File
	logger  tex.Logger
}

// NewApp creates a fully wired App from the given config. scope
// identifies the CLI command being run (e.g. "Serve", "Migrate"). The
// caller must call Close when done.
func NewApp(cfg *config.Config, scope string) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir, scope)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	svc := tex.NewService(
		db,
		tex.RandomTokenSource{},
		tex.StaticResolver{Owner: tex.GuestUserID},
		logger,
		tex.RealClock{},
		cfg.Session.TTL.Value(),
	)

	manager := compile.NewManager(
		cfg.Compile.WorkDir,
		compile.PDFLaTeX{Command: cfg.Compile.Command},
		cfg.Compile.Timeout.Value(),
		compile.UUIDKeyGenerator{},
		logger,
	)

	sweeper := compile.NewSweeper(
		cfg.Compile.WorkDir,
		cfg.Compile.Retention.Value(),
		cfg.Compile.SweepInterval.Value(),
		tex.RealClock{},
		logger,
	)

	scorer := score.NewScorerFromEnv(cfg.Score.Model, logger)

	return &App{
		cfg:     cfg,
		db:      db,
		service: svc,
		manager: manager,
		sweeper: sweeper,
		scorer:  scorer,
		logFile: logFile,
		logger:  logger,
	}, nil
}

// Serve starts the retention sweeper and runs the HTTP server until the
// given context is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	a.sweeper.Start()

	router := web.NewRouter(a.service, a.manager, a.scorer, a.cfg.Server.StaticDir)
	a.server = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()
	a.logger.Info("server listening", "addr", a.cfg.Server.ListenAddr)

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		return a.server.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// MigrateDatabase applies any pending schema migrations. NewApp already
// migrates on startup; this exists for running migrations standalone.
func (a *App) MigrateDatabase() error {
	return a.db.MigrateUp()
}

// Close releases all resources. The sweeper is only stopped if Serve
// started it.
func (a *App) Close() error {
	var firstErr error

	if a.server != nil {
		a.sweeper.Stop()
	}

	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
