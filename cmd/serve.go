package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/event-api/internal/config"
	"github.com/Shivanand-hulikatti/event-api/internal/database"
	"github.com/Shivanand-hulikatti/event-api/internal/handler"
	"github.com/Shivanand-hulikatti/event-api/internal/metrics"
	"github.com/Shivanand-hulikatti/event-api/internal/repository"
	"github.com/Shivanand-hulikatti/event-api/internal/service"
	"github.com/Shivanand-hulikatti/event-api/internal/upload"
	"github.com/Shivanand-hulikatti/event-api/internal/validation"
)

var (
	serverHost string
	serverPort int
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

The server connects to the configured store (mongo, postgres or memory) and
exits if the connection cannot be established. It shuts down gracefully on
SIGINT/SIGTERM.

Examples:
  eventapi serve --port 9090
  eventapi serve --config /etc/eventapi/config.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}
	cmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8000)")
	return cmd
}

func runServer(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("driver", cfg.Store.Driver).Str("environment", cfg.Environment).Msg("starting event api")
	metrics.Init(Version, GitCommit, cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("store connection failed: %w", err)
	}
	defer closeStore()

	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxFiles)
	if err != nil {
		return err
	}

	svc := service.NewEventService(repository.NewInstrumented(repo), validation.New())
	events := handler.NewEventHandler(svc, uploads, cfg.Upload.MaxBytes, cfg.Upload.MaxFiles)

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler.NewRouter(events, handler.RouterConfig{
			Logger:      logger,
			CORSOrigins: cfg.CORS.AllowedOrigins,
			PublicDir:   uploads.Dir(),
		}),
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openStore connects the configured backend and returns its repository with
// a function that releases the connection.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (repository.EventRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		conn, err := database.ConnectMongo(ctx, database.MongoConfig{
			URI:            cfg.Store.URL,
			Database:       cfg.Store.Database,
			ConnectTimeout: cfg.Store.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := conn.Close(closeCtx); err != nil {
				logger.Error().Err(err).Msg("mongo disconnect failed")
			}
		}
		repo, err := repository.NewMongoEventRepository(conn, cfg.Store.Collection)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.Store.Database).Str("collection", cfg.Store.Collection).Msg("connected to mongodb")
		return repo, closeFn, nil

	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, database.PostgresConfig{
			URL:      cfg.Store.URL,
			MaxConns: int32(cfg.Store.MaxConnections),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateUp(cfg.Store.URL); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo, err := repository.NewPostgresEventRepository(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		collectorCtx, stopCollector := context.WithCancel(context.Background())
		go metrics.NewPoolCollector(pool).Start(collectorCtx, 15*time.Second)

		logger.Info().Msg("connected to postgres")
		return repo, func() {
			stopCollector()
			pool.Close()
		}, nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, events are lost on restart")
		return repository.NewMemoryEventRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
