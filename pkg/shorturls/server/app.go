// Package server wires configuration, stores and handlers into a running
// application.
package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/cache"
	"github.com/mikepea/shorturls/pkg/shorturls/config"
	"github.com/mikepea/shorturls/pkg/shorturls/database"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/shortcode"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
	"github.com/mikepea/shorturls/pkg/shorturls/store/gormstore"
	"github.com/mikepea/shorturls/pkg/shorturls/store/pgstore"
	"gorm.io/gorm"
)

// App holds the long-lived dependencies shared by the HTTP server and the CLI.
type App struct {
	Config    *config.Config
	DB        *gorm.DB // accounts, and links when the link store is sqlite
	LinkStore store.Store
	Links     *links.Service
	Tokens    *auth.Tokens

	pg    *sql.DB
	cache cache.Cache
}

// Open connects to the configured databases and cache, runs migrations and
// builds the link service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: db}
	if err := app.open(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config

	switch cfg.LinkStore {
	case config.LinkStoreSQLite:
		if err := models.AutoMigrate(a.DB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.LinkStore = gormstore.New(a.DB)

	case config.LinkStorePostgres:
		if err := a.DB.AutoMigrate(models.AccountModels()...); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s link store", cfg.LinkStore)
		}
		pg, err := database.ConnectPostgres(ctx, cfg.DatabaseURL, cfg.ConnectRetries)
		if err != nil {
			return err
		}
		a.pg = pg
		if err := pgstore.Migrate(a.pg); err != nil {
			return err
		}
		a.LinkStore = pgstore.New(a.pg)

	default:
		return fmt.Errorf("unknown link store %q", cfg.LinkStore)
	}
	glog.Infof("Using %s link store", cfg.LinkStore)

	c, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if c != nil {
		a.cache = c
		a.LinkStore = store.NewCached(a.LinkStore, c, cfg.CacheTTL)
		glog.Infof("Caching resolutions in %s for %s", cfg.Cache, cfg.CacheTTL)
	}

	a.Links = links.NewService(a.LinkStore, links.Options{
		Generator:   shortcode.NewRandom(),
		CodeLength:  cfg.CodeLength,
		MaxAttempts: cfg.MaxAttempts,
	})
	a.Tokens = auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	return nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache {
	case "", config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemory(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case config.CacheMemcache:
		return cache.NewMemcache(cfg.MemcacheServers...), nil
	default:
		return nil, fmt.Errorf("unknown cache %q", cfg.Cache)
	}
}

// EnsureAdmin creates the configured admin account if no admin exists.
// It warns about every credential still at its development default.
func (a *App) EnsureAdmin() error {
	for _, key := range a.Config.InsecureDefaults() {
		glog.Warningf("%s is not set; using the built-in development value", key)
	}

	created, err := auth.EnsureAdmin(a.DB, a.Config.AdminEmail, a.Config.AdminPassword)
	if err != nil {
		return err
	}
	if created && a.Config.AdminPassword == config.DefaultAdminPassword {
		glog.Warningf("Admin %s was created with the default password; change it or set SHORTURLS_ADMIN_PASSWORD", a.Config.AdminEmail)
	}
	return nil
}

// Close releases the cache client and database connections.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			glog.Warningf("cache.Close() %+v", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			glog.Warningf("pg.Close() %+v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
