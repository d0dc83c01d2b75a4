package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/handlers"
	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/middleware"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/config"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/tracing"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget page and its API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port (default from server.port)")
	_ = c.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Initialize(ctx, cfg.Tracing, version, logger)
	if err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	normalizer := sources.NewNormalizer(nil)
	if cfg.Sources.BrandsFile != "" {
		watcher, err := config.NewBrandWatcher(cfg.Sources.BrandsFile, normalizer, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch brand table: %w", err)
		}
		defer watcher.Stop()
	}

	client := newBackendClient(cfg, logger)
	composer := render.NewComposer(cfg.Widget, normalizer, logger)

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := newRouter(routerDeps{
		chat:  handlers.NewChatHandler(client, composer, logger),
		graph: handlers.NewGraphHandler(client, composer, logger),
		api:   handlers.NewAPIHandler(normalizer, logger),
		health: handlers.NewHealthHandler(client, func() string {
			return client.BreakerState().String()
		}, version, logger),
		page:    handlers.NewPageHandler(composer.Config().AssistantName, logger),
		limiter: limiter,
		logger:  logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Widget starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("backend", client.BaseURL()),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start widget: %w", err)
	}

	logger.Info("Widget shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Widget forced to shutdown", zap.Error(err))
	}

	logger.Info("Widget stopped")
	return nil
}

// newLimiter picks the rate limiter backend. A nil Limiter disables limiting.
func newLimiter(ctx context.Context, rc config.RateLimitConfig, logger *zap.Logger) (middleware.Limiter, func(), error) {
	noop := func() {}
	if rc.RequestsPerMinute <= 0 {
		logger.Info("Rate limiting disabled")
		return nil, noop, nil
	}
	if rc.RedisURL == "" {
		return middleware.NewMemoryLimiter(rc.RequestsPerMinute, rc.Burst), noop, nil
	}

	opts, err := redis.ParseURL(rc.RedisURL)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Rate limiting with Redis", zap.String("addr", opts.Addr))
	return middleware.NewRedisLimiter(client, rc.RequestsPerMinute), func() { _ = client.Close() }, nil
}
