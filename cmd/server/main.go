package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cabinet-medical/portal-gateway/internal/api"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/guard"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/redirect"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
	"github.com/cabinet-medical/portal-gateway/internal/infrastructure/backend"
	"github.com/cabinet-medical/portal-gateway/internal/infrastructure/config"
	"github.com/cabinet-medical/portal-gateway/internal/infrastructure/http/handlers"
	memorystore "github.com/cabinet-medical/portal-gateway/internal/infrastructure/store/memory"
	mongostore "github.com/cabinet-medical/portal-gateway/internal/infrastructure/store/mongo"
	redisstore "github.com/cabinet-medical/portal-gateway/internal/infrastructure/store/redis"
	"github.com/cabinet-medical/portal-gateway/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handlers.Check)

	var factory ports.StoreFactory
	switch cfg.Store.Driver {
	case "redis":
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to redis failed")
		}
		defer client.Close()
		factory = redisstore.Factory(client)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	case "mongo":
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to mongo failed")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		factory = mongostore.Factory(db)
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	case "memory":
		log.Warn().Msg("using in-memory credential store, sessions will not survive a restart")
		factory = memorystore.NewRegistry().Factory()
	default:
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("unknown credential store driver")
	}

	gateway := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, log)
	checks["backend"] = gateway.Ping

	sessions := session.NewManager(factory, log)
	redirects := redirect.NewController(cfg.Redirect.SettleDelay, log)
	routeGuard := guard.New(gateway, sessions, redirects, log)

	e := api.NewRouter(api.Dependencies{
		Gateway:   gateway,
		Sessions:  sessions,
		Guard:     routeGuard,
		Redirects: redirects,
		Checks:    checks,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend.BaseURL).Msg("portal gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
