// @title           Advisory Request API
// @version         1.0
// @description     Financial-advisory requests between clients and advisors.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurora-advisory/advisory-api/internal/api"
	"github.com/aurora-advisory/advisory-api/internal/api/handler"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
	"github.com/aurora-advisory/advisory-api/internal/core/service"
	"github.com/aurora-advisory/advisory-api/internal/infrastructure/db/memory"
	mongodb "github.com/aurora-advisory/advisory-api/internal/infrastructure/db/mongo"
	redisdb "github.com/aurora-advisory/advisory-api/internal/infrastructure/db/redis"
	"github.com/aurora-advisory/advisory-api/internal/pkg/config"
	"github.com/aurora-advisory/advisory-api/pkg/logger"
)

const serviceName = "advisory-api"

type stores struct {
	users    ports.UserRepository
	profiles ports.ProfileRepository
	requests ports.RequestRepository
	idem     ports.IdempotencyStore
	checks   map[string]handler.Check
	closers  []func(context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: serviceName})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	log := logger.Get()

	st, err := openStores(ctx, cfg, logger.For("store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open stores")
	}
	defer func() {
		for _, closeFn := range st.closers {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			if err := closeFn(closeCtx); err != nil {
				log.Warn().Err(err).Msg("failed to close store")
			}
			cancel()
		}
	}()

	authService := service.NewAuthService(st.users, st.profiles, cfg.JWTSecret, cfg.TokenTTL, logger.For("auth"))
	profileService := service.NewProfileService(st.profiles, logger.For("profiles"))
	requestService := service.NewRequestService(st.requests, st.idem, logger.For("requests"))

	e := api.NewRouter(api.Dependencies{
		Auth:             authService,
		Profiles:         profileService,
		Requests:         requestService,
		HealthChecks:     st.checks,
		Logger:           logger.For("http"),
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("driver", cfg.StoreDriver).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStores selects the repositories for STORE_DRIVER. Idempotency keys go
// to Redis when it answers and stay in process otherwise.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{checks: map[string]handler.Check{}}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := memory.New()
		st.users, st.profiles, st.requests = mem.Users(), mem.Profiles(), mem.Requests()
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, disconnect(client))
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		st.users = mongodb.NewUserRepository(db)
		st.profiles = mongodb.NewProfileRepository(db)
		st.requests = mongodb.NewRequestRepository(db)
		st.checks["mongo"] = mongodb.Ping(client)
	}

	st.idem = memory.NewIdempotencyStore(cfg.Redis.IdempotencyTTL)
	if cfg.Redis.Addr == "" {
		return st, nil
	}
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, keeping idempotency keys in memory")
		return st, nil
	}
	st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
	st.idem = redisdb.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	st.checks["redis"] = redisdb.Ping(rdb)
	return st, nil
}

func disconnect(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}
}
