package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ripple/internal/app/registry"
	"ripple/internal/app/server"
	"ripple/internal/app/server/handlers"
	appsync "ripple/internal/app/sync"
	"ripple/internal/config"
	"ripple/internal/core/domain"
	"ripple/internal/core/services"
	"ripple/internal/platform/logger"
	"ripple/internal/platform/telemetry"
	"ripple/internal/plugins/identity"
	"ripple/internal/plugins/postgres"
	redisPlugin "ripple/internal/plugins/redis"
	"ripple/pkg/middleware"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepo(pdb)
	convRepo := postgres.NewConversationRepo(pdb)
	partRepo := postgres.NewParticipantRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	feed := redisPlugin.NewFeed(log, rdb)
	idp := identity.NewClient(*cfg.Identity)

	// Core services
	tracker := services.NewPresenceTracker(log)
	mediaEnc := services.NewMediaEncoder(log, *cfg.Media)
	convSvc := services.NewConversationService(log, convRepo, partRepo, msgRepo, txManager)
	memberSvc := services.NewMembershipService(log, convRepo, partRepo, txManager)
	composer := services.NewComposer(log, mediaEnc, convSvc, tracker)
	directory := services.NewDirectoryService(log, userRepo, idp)
	tokenSvc := services.NewTokenService(cfg.SecretToken)

	// Fan-out
	hub := registry.NewRegistry()
	runner := appsync.NewRunner(log, convSvc, hub, cfg.Sync.TickInterval)
	hub.RunSync(runner.Run)

	// Feed subscriptions: presence updates refresh the local cache and get
	// pushed to connected clients; append events nudge local sync loops.
	if err := feed.SubscribePresence(ctx, func(u domain.PresenceUpdate) {
		tracker.ApplyUpdate(u)
		hub.BroadcastPresence(ctx, domain.PresenceEvent{
			Type:   domain.TypePresence,
			Online: tracker.Snapshot(),
		})
	}); err != nil {
		log.Error("presence feed subscribe failed", "err", err)
		return
	}
	if err := feed.SubscribeAppend(ctx, runner.Nudge); err != nil {
		log.Error("append feed subscribe failed", "err", err)
		return
	}

	// Anti-entropy: periodically rebroadcast the known online set so nodes
	// that restarted and missed deltas converge on the next snapshot.
	go func() {
		ticker := time.NewTicker(cfg.Sync.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := feed.PublishSnapshot(ctx, tracker.Snapshot()); err != nil {
					log.Warn("presence snapshot publish failed", "err", err)
				}
			}
		}
	}()

	// Server
	auth := middleware.AuthMiddleware(tokenSvc)
	srv := server.NewServer(
		log,
		cfg.Service.Name,
		cfg.Service.Addr,
		auth,
		handlers.NewDirectoryHandler(directory, tracker),
		handlers.NewGroupHandler(memberSvc),
		handlers.NewMessageHandler(composer, convSvc, directory, feed),
		handlers.NewWSHandler(hub, composer, convSvc, memberSvc, directory, tracker, feed, feed),
	)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
