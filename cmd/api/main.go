// @title           Family Circle API
// @version         1.0
// @description     Accounts, families and shared media for the Family Circle app.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/familycircle/circle-api/internal/api"
	"github.com/familycircle/circle-api/internal/api/handler"
	"github.com/familycircle/circle-api/internal/core/service"
	mongostore "github.com/familycircle/circle-api/internal/infrastructure/db/mongo"
	redisstore "github.com/familycircle/circle-api/internal/infrastructure/db/redis"
	"github.com/familycircle/circle-api/internal/infrastructure/http/handlers"
	"github.com/familycircle/circle-api/internal/infrastructure/queue"
	"github.com/familycircle/circle-api/internal/infrastructure/telemetry"
	"github.com/familycircle/circle-api/internal/pkg/config"
	"github.com/familycircle/circle-api/pkg/logger"
)

const (
	serviceName     = "circle-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// --- Storage ---
	identityRepo := mongostore.NewIdentityRepository(db)
	userRepo := mongostore.NewUserRepository(db)
	familyRepo := mongostore.NewFamilyRepository(db)
	if err := mongostore.EnsureIndexes(ctx, identityRepo, userRepo, familyRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}
	storage := mongostore.NewGridFSStorage(db)

	sessionCache := redisstore.NewSessionCache(rdb)
	revoker := redisstore.NewTokenRevoker(rdb)
	authEvents := redisstore.NewAuthEventBus(rdb, logger.Component("auth_events"))

	// --- Services ---
	identitySvc := service.NewIdentityService(identityRepo, revoker, authEvents, cfg.JWTSecret, cfg.JWTTTL, logger.Component("identity"))
	userSvc := service.NewUserService(userRepo, logger.Component("users"))
	familySvc := service.NewFamilyService(familyRepo, userRepo, cfg.Family.InviteCodeMaxAttempts, logger.Component("families"))
	sessionSvc := service.NewSessionService(identitySvc, userSvc, familySvc, sessionCache, cfg.JWTTTL, logger.Component("session"))
	mediaSvc := service.NewMediaService(storage, cfg.PublicBaseURL, cfg.Upload.MaxBytes, logger.Component("media"))

	// --- Auth state ---
	hub := service.NewAuthStateHub(userSvc, sessionCache, logger.Component("auth_state"))
	dispatcher := queue.NewDispatcher(cfg.AuthState.Workers, hub, logger.Component("auth_state_queue"))
	hub.UseQueue(dispatcher)
	dispatcher.Start(ctx)

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(ctx, authEvents); err != nil {
			log.Error().Err(err).Msg("auth state hub stopped")
		}
	}()

	// --- HTTP ---
	e := api.NewRouter(api.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		Revoker:   revoker,
		Logger:    logger.Component("http"),
		BodyLimit: cfg.BodyLimit,
	}, api.Handlers{
		Auth:    handler.NewAuthHandler(sessionSvc),
		Session: handler.NewSessionHandler(hub),
		User:    handler.NewUserHandler(userSvc, mediaSvc, sessionSvc),
		Family:  handler.NewFamilyHandler(familySvc, userSvc, mediaSvc, sessionSvc),
		Media:   handler.NewMediaHandler(mediaSvc),
		Health:  handlers.NewHealthHandler(serviceName),
		Readiness: handlers.NewHealthDependenciesHandler(map[string]handlers.Check{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("auth state hub did not stop in time")
	}

	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}

	log.Info().Msg("server stopped")
}
