package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/safak-senal-61/websachat-arena/brackets"
	"github.com/safak-senal-61/websachat-arena/config"
	"github.com/safak-senal-61/websachat-arena/db"
	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/handlers"
	"github.com/safak-senal-61/websachat-arena/leaderboard"
	"github.com/safak-senal-61/websachat-arena/middleware"
	"github.com/safak-senal-61/websachat-arena/realtime"
	"github.com/safak-senal-61/websachat-arena/repositories"
	api "github.com/safak-senal-61/websachat-arena/routes"
	"github.com/safak-senal-61/websachat-arena/services"
)

const txMaxAttempts = 3

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	redisClient, err := db.ConnectRedis(cfg.RedisURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", slog.Any("error", err))
		}
	}()
	logger.Info("redis connection established")

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	// Domain events fan out to the redis channel for other platform services
	// and to websocket rooms for connected clients.
	publisher := events.NewFanout(
		events.NewRedisPublisher(redisClient, events.DefaultChannelPrefix),
		realtime.NewHubPublisher(wsHub),
	)
	leaderboardCache := leaderboard.NewRedisCache(redisClient)

	transactor := repositories.NewSQLTransactor(dbConn, txMaxAttempts, 50*time.Millisecond)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	reportRepo := repositories.NewPostgresReportRepository(dbConn)
	skillRepo := repositories.NewPostgresSkillRepository(dbConn)
	queueRepo := repositories.NewPostgresQueueRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	walletRepo := repositories.NewPostgresWalletRepository(dbConn)
	logger.Info("repositories initialized")

	tournamentService := services.NewTournamentService(
		tournamentRepo,
		participantRepo,
		matchRepo,
		gameRepo,
		walletRepo,
		transactor,
		brackets.NewSingleEliminationGenerator(),
		publisher,
		logger,
	)
	matchService := services.NewMatchService(
		matchRepo,
		reportRepo,
		tournamentRepo,
		participantRepo,
		skillRepo,
		walletRepo,
		transactor,
		publisher,
		leaderboardCache,
		logger,
	)
	matchmakingService := services.NewMatchmakingService(
		queueRepo,
		sessionRepo,
		skillRepo,
		gameRepo,
		transactor,
		publisher,
		leaderboardCache,
		cfg.QueueClaimAttempts,
		logger,
	)
	logger.Info("services initialized")

	go runSchedulers(context.Background(), cfg, tournamentService, matchmakingService, logger)

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	matchHandler := handlers.NewMatchHandler(matchService)
	matchmakingHandler := handlers.NewMatchmakingHandler(matchmakingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, auth, tournamentHandler, matchHandler, matchmakingHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// runSchedulers drives the two periodic jobs: advancing tournament statuses
// past registration window boundaries and expiring stale queue entries.
func runSchedulers(
	ctx context.Context,
	cfg *config.Config,
	tournaments services.TournamentService,
	matchmaking services.MatchmakingService,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()
	logger.Info("schedulers started",
		slog.Duration("interval", cfg.SchedulerInterval),
		slog.Duration("queue_ttl", cfg.QueueEntryTTL),
	)

	runOnce := func() {
		if advanced, err := tournaments.AutoUpdateStatusesByDates(ctx); err != nil {
			logger.Error("scheduler: tournament status update failed", slog.Any("error", err))
		} else if advanced > 0 {
			logger.Info("scheduler: tournament statuses advanced", slog.Int("count", advanced))
		}

		if expired, err := matchmaking.ExpireStaleEntries(ctx, cfg.QueueEntryTTL); err != nil {
			logger.Error("scheduler: queue expiry failed", slog.Any("error", err))
		} else if expired > 0 {
			logger.Info("scheduler: stale queue entries cancelled", slog.Int64("count", expired))
		}
	}

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			return
		}
	}
}
