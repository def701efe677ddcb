package main

import (
	"go.uber.org/zap"

	"landfilter/internal/config"
	"landfilter/internal/metrics"
	"landfilter/internal/repository"
	"landfilter/internal/storage"
)

// openStore builds the persistence chain: PostgreSQL first when configured,
// then the local SQLite file. A backend that cannot be opened is skipped.
func openStore(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*storage.Manager, func()) {
	var (
		backends []storage.Backend
		closers  []func() error
	)

	if dsn := cfg.GetPostgreSQLDSN(); dsn != "" {
		repo, err := repository.NewPostgresRepository(dsn, cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
		if err != nil {
			logger.Warn("postgres unavailable, skipping", zap.Error(err))
		} else {
			logger.Info("connected to PostgreSQL")
			backends = append(backends, repo)
			closers = append(closers, repo.Close)
		}
	}

	if cfg.SQLite.Path != "" {
		repo, err := repository.NewSQLiteRepository(cfg.SQLite.Path)
		if err != nil {
			logger.Warn("sqlite unavailable, skipping", zap.String("path", cfg.SQLite.Path), zap.Error(err))
		} else {
			logger.Info("opened SQLite store", zap.String("path", cfg.SQLite.Path))
			backends = append(backends, repo)
			closers = append(closers, repo.Close)
		}
	}

	if len(backends) == 0 {
		logger.Warn("no persistence backend, filter state will not survive restarts")
	}

	mgr := storage.NewManager(cfg.Filter.StorageKey, logger.Named("storage"), m, backends...)
	return mgr, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close store failed", zap.Error(err))
			}
		}
	}
}

func loadLocators(cfg *config.Config, logger *zap.Logger) config.Locators {
	loc, err := config.LoadLocators(cfg.LocatorsFile)
	if err != nil {
		logger.Warn("invalid locators file, using defaults", zap.String("path", cfg.LocatorsFile), zap.Error(err))
	}
	return loc
}
