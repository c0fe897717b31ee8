package main

import (
	"fmt"

	"go.uber.org/zap"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/config"
	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/repository"
	"dumptrack-api/internal/service"
	"dumptrack-api/pkg/logger"
)

// deps are the long-lived components shared by every command.
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	repo    repository.TableRepository
	cache   cache.Cache
	backend *gateway.Backend
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func openCache(cfg config.CacheConfig, log *zap.Logger) (cache.Cache, error) {
	switch cfg.Type {
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, log)
	case "memory", "":
		return cache.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
}

// openDeps opens the table repository, which applies the schema, and the
// cache backing tokens and tracking mirrors.
func openDeps() (*deps, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	repo, err := repository.Open(cfg.Database.RepositoryOptions(), logger.Named(log, "repository"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s repository: %w", cfg.Database.Type, err)
	}

	c, err := openCache(cfg.Cache, logger.Named(log, "cache"))
	if err != nil {
		repo.Close()
		return nil, err
	}

	tokens := service.NewTokenService(c, cfg.Auth.TokenTTL, logger.Named(log, "tokens"))
	backend := gateway.NewBackend(repo, tokens, cfg.Auth.BcryptCost, logger.Named(log, "gateway"))

	return &deps{cfg: cfg, logger: log, repo: repo, cache: c, backend: backend}, nil
}

func (d *deps) Close() {
	if err := d.cache.Close(); err != nil {
		d.logger.Warn("cache close failed", zap.Error(err))
	}
	if err := d.repo.Close(); err != nil {
		d.logger.Warn("repository close failed", zap.Error(err))
	}
	_ = d.logger.Sync()
}
