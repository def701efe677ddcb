package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landfilter/internal/app"
	"landfilter/internal/config"
	"landfilter/internal/dom/rodpage"
	"landfilter/internal/filter"
	"landfilter/internal/floor"
	"landfilter/internal/handler"
	"landfilter/internal/logging"
	"landfilter/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var targetURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Filter a live listing page and serve the command API",
		Long: `Open the listing page in Chrome, restore the saved filters, keep new
listings filtered and accept commands on /api/v1/command.

Examples:
  # Local headless Chrome
  landfilter serve

  # Attach to a running Chrome
  BROWSER_REMOTE_URL=ws://127.0.0.1:9222/devtools/browser/... landfilter serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if targetURL != "" {
				cfg.Browser.TargetURL = targetURL
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&targetURL, "url", "", "listing page to open (default TARGET_URL)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting landfilter",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore := openStore(cfg, logger, m)
	defer closeStore()

	browser, err := rodpage.Launch(rodpage.BrowserConfig{
		RemoteURL: cfg.Browser.RemoteURL,
		Headless:  cfg.Browser.Headless,
	}, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("close browser failed", zap.Error(err))
		}
	}()

	page, err := browser.Open(ctx, cfg.Browser.TargetURL)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()
	logger.Info("page opened", zap.String("url", cfg.Browser.TargetURL))

	session := app.NewSession(app.Deps{
		Doc:      page,
		Registry: filter.NewDefaultRegistry(floor.NewExtractor(logger.Named("floor"), m.ExtractionMisses)),
		Store:    store,
		Locators: loadLocators(cfg, logger),
		Timings:  cfg.Filter,
		Logger:   logger,
		Metrics:  m,
	})
	session.Start(ctx)
	defer session.Close()

	gin.SetMode(cfg.Server.GinMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(cfg.Server, session, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func newRouter(cfg config.ServerConfig, commander handler.Commander, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if origins := splitList(cfg.AllowedOrigins); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = splitList(cfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "landfilter",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	handler.NewCommandHandler(commander).Register(router.Group("/api/v1"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
