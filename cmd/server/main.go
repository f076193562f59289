// @title                       Auth Service API
// @version                     1.0
// @description                 Account registration, login and bearer token verification.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/password"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/token"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type store interface {
	ports.CredentialStore
	handler.Pinger
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(rootCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "auth-service",
	})

	if err := run(rootCtx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	accounts, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	health := map[string]handler.Pinger{"store": accounts}

	var roles ports.RoleResolver
	if cfg.RoleSource == config.RoleSourceStore {
		roles = service.NewStoreRoleResolver(accounts)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		health["redis"] = redisstore.Pinger{Client: rdb}
		if roles != nil {
			roles = redisstore.NewRoleCache(rdb, roles, cfg.RoleCacheTTL, logger.Component("role-cache"))
		}
	}

	hasher, err := password.New(password.Config{
		Algorithm:     cfg.Hash.Algorithm,
		BcryptCost:    cfg.Hash.BcryptCost,
		Argon2Time:    cfg.Hash.Argon2Time,
		Argon2Memory:  cfg.Hash.Argon2Memory,
		Argon2Threads: cfg.Hash.Argon2Threads,
	})
	if err != nil {
		return err
	}

	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool := queue.NewHashPool(cfg.Hash.Workers, hasher, logger.Component("hash-pool"))
	pool.Start(poolCtx)

	codec, err := token.NewCodec(cfg.SigningKey,
		token.WithTTL(cfg.JWT.TTL),
		token.WithLeeway(cfg.JWT.Leeway),
	)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(accounts, pool, codec, logger.Component("auth"))

	e := api.NewRouter(api.Deps{
		Auth:         authService,
		Codec:        codec,
		Roles:        roles,
		TokenTTL:     codec.TTL(),
		PublicRoutes: cfg.Routes(),
		Health:       health,
		Log:          log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store.Backend).
			Str("role_source", cfg.RoleSource).
			Msg("HTTP server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return nil
	}
	log.Info().Msg("graceful shutdown completed")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory credential store, accounts are lost on restart")
		return memory.NewAccountRepository(), func() {}, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Pg.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewAccountRepository(db.Pool), db.Close, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		repo := mongostore.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}
}
