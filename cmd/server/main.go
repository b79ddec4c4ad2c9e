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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HammerMeetNail/fitcircle/internal/config"
	"github.com/HammerMeetNail/fitcircle/internal/database"
	"github.com/HammerMeetNail/fitcircle/internal/events"
	"github.com/HammerMeetNail/fitcircle/internal/handlers"
	"github.com/HammerMeetNail/fitcircle/internal/logging"
	"github.com/HammerMeetNail/fitcircle/internal/metrics"
	"github.com/HammerMeetNail/fitcircle/internal/middleware"
	"github.com/HammerMeetNail/fitcircle/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fitcircle server...", map[string]interface{}{"env": cfg.Server.Environment})

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...", map[string]interface{}{"path": cfg.Server.MigrationsPath})
	version, err := database.MigrateUp(cfg.Database.DSN(), cfg.Server.MigrationsPath)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("Migrations completed", map[string]interface{}{"version": version})

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled() {
		logger.Info("Publishing friendship events", map[string]interface{}{
			"brokers": cfg.Events.Brokers,
			"topic":   cfg.Events.Topic,
		})
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.ClientID)
	}
	defer func() { _ = publisher.Close() }()

	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())

	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	authService := services.NewAuthService(dbAdapter, redisAdapter)
	friendService := services.NewFriendService(dbAdapter,
		services.WithPairLocker(services.NewRedisPairLocker(redisAdapter)),
		services.WithPublisher(publisher),
		services.WithMetrics(recorder),
		services.WithLogger(logger),
	)
	profileService := services.NewProfileService(dbAdapter, friendService)

	reconcileCtx, cancelReconcile := context.WithTimeout(context.Background(), 30*time.Second)
	_, err = friendService.ReconcileAcceptedRequests(reconcileCtx)
	cancelReconcile()
	if err != nil {
		logger.Warn("Reconciling friend requests failed", map[string]interface{}{"error": err.Error()})
	}

	handler := newRouter(routerDeps{
		health:   handlers.NewHealthHandler(db, redisDB),
		auth:     handlers.NewAuthHandler(authService),
		profiles: handlers.NewProfileHandler(profileService, friendService),
		friends:  handlers.NewFriendHandler(friendService),
		authMW:   middleware.NewAuthMiddleware(authService),
		metrics:  recorder.Handler(),
	})
	handler = middleware.NewSecurityHeaders(cfg.Server.Secure).Apply(handler)
	handler = middleware.NewRequestLogger(logger, recorder).Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type routerDeps struct {
	health   *handlers.HealthHandler
	auth     *handlers.AuthHandler
	profiles *handlers.ProfileHandler
	friends  *handlers.FriendHandler
	authMW   *middleware.AuthMiddleware
	metrics  http.Handler
}

// newRouter registers every route. The request logger must wrap the
// returned mux directly so it can read the matched pattern.
func newRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()
	protected := func(h http.HandlerFunc) http.Handler {
		return d.authMW.RequireAuth(h)
	}

	mux.HandleFunc("GET /health", d.health.Health)
	mux.HandleFunc("GET /ready", d.health.Ready)
	mux.HandleFunc("GET /live", d.health.Live)
	mux.Handle("GET /metrics", d.metrics)

	mux.HandleFunc("POST /api/auth/register", d.auth.Register)
	mux.HandleFunc("POST /api/auth/login", d.auth.Login)
	mux.HandleFunc("POST /api/auth/logout", d.auth.Logout)
	mux.Handle("GET /api/auth/me", protected(d.auth.Me))

	mux.Handle("GET /api/profiles/me", protected(d.profiles.Me))
	mux.Handle("PUT /api/profiles/me", protected(d.profiles.UpdateMe))
	mux.Handle("GET /api/profiles/search", protected(d.profiles.Search))
	mux.Handle("GET /api/profiles/{id}", protected(d.profiles.Get))

	mux.Handle("GET /api/friends", protected(d.friends.List))
	mux.Handle("GET /api/friends/status/{id}", protected(d.friends.Status))
	mux.Handle("GET /api/friends/requests", protected(d.friends.Requests))
	mux.Handle("POST /api/friends/requests", protected(d.friends.SendRequest))
	mux.Handle("DELETE /api/friends/requests/outgoing/{id}", protected(d.friends.CancelRequest))
	mux.Handle("PUT /api/friends/requests/{id}/accept", protected(d.friends.AcceptRequest))
	mux.Handle("PUT /api/friends/requests/{id}/reject", protected(d.friends.RejectRequest))

	return mux
}
