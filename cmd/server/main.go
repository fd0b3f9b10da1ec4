package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentflow/recruiting/internal/api"
	"github.com/talentflow/recruiting/internal/api/handler"
	"github.com/talentflow/recruiting/internal/core/ports"
	"github.com/talentflow/recruiting/internal/core/service"
	"github.com/talentflow/recruiting/internal/infrastructure/config"
	mongostore "github.com/talentflow/recruiting/internal/infrastructure/db/mongo"
	redisstore "github.com/talentflow/recruiting/internal/infrastructure/db/redis"
	"github.com/talentflow/recruiting/internal/infrastructure/identity"
	"github.com/talentflow/recruiting/internal/infrastructure/ratelimit"
	"github.com/talentflow/recruiting/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "recruiting",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
	}()

	profiles := mongostore.NewProfileRepository(db)
	accounts := mongostore.NewAccountRepository(db)
	if err := profiles.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create profile indexes")
	}
	if err := accounts.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create account indexes")
	}

	health := map[string]handler.Pinger{"mongodb": mongostore.Pinger{Client: mongoClient}}

	var limiter ports.LoginLimiter
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		limiter = redisstore.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)
		health["redis"] = redisstore.Pinger{Client: rdb}
	} else {
		memory := ratelimit.NewMemoryLimiter(cfg.Login.MaxAttempts, cfg.Login.Window)
		go memory.Run(ctx)
		limiter = memory
		log.Warn().Msg("REDIS_ADDR not set, login attempts are limited in process")
	}

	provider := identity.NewLocalProvider(accounts, limiter, identity.Config{
		FederationSecret: cfg.Federation.Secret,
		FederationIssuer: cfg.Federation.Issuer,
	}, log)
	defer provider.Close()

	if cfg.Roles.SuperAdminEmail == "" {
		log.Warn().Msg("SUPER_ADMIN_EMAIL not set, no account can become super_admin")
	}
	resolver := service.NewRoleResolver(cfg.Roles.SuperAdminEmail, cfg.Roles.OrgDomains)
	sessions := service.NewSessionManager(provider, profiles, resolver, service.SessionManagerConfig{
		Timeout:      cfg.Profile.Timeout,
		Retries:      cfg.Profile.Retries,
		RetryBackoff: cfg.Profile.RetryBackoff,
	}, log)
	sessions.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Sessions: sessions,
		Accounts: provider,
		Routes:   service.Routes{Login: cfg.Routes.Login, Home: cfg.Routes.Home},
		Health:   health,
		Log:      logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	<-sessions.Done()
}
