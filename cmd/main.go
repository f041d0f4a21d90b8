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

	"golang.org/x/sync/errgroup"

	"github.com/ssclub/club-system/cache"
	"github.com/ssclub/club-system/config"
	"github.com/ssclub/club-system/db"
	"github.com/ssclub/club-system/handlers"
	"github.com/ssclub/club-system/live"
	"github.com/ssclub/club-system/repositories"
	"github.com/ssclub/club-system/routes"
	"github.com/ssclub/club-system/services"
	"github.com/ssclub/club-system/storage"

	_ "github.com/lib/pq"
)

const rankingCacheTTL = 7 * 24 * time.Hour

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

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}

	rankingCache, err := cache.NewFileCache(cfg.RankingCacheDir, rankingCacheTTL)
	if err != nil {
		logger.Error("failed to initialize ranking cache", slog.Any("error", err))
		os.Exit(1)
	}

	hub := live.NewHub(logger)
	go hub.Run()

	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	rankGroupRepo := repositories.NewPostgresRankGroupRepository(dbConn)
	fundRepo := repositories.NewPostgresFundRepository(dbConn)
	settingsRepo := repositories.NewPostgresFundSettingsRepository(dbConn)
	costRepo := repositories.NewPostgresTournamentCostRepository(dbConn)
	attendanceRepo := repositories.NewPostgresAttendanceRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRepository(dbConn)
	achievementRepo := repositories.NewPostgresAchievementRepository(dbConn)

	playerService := services.NewPlayerService(playerRepo)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		rankGroupRepo,
		playerRepo,
		attendanceRepo,
		fundRepo,
		hub,
		logger,
	)
	fundService := services.NewFundService(
		dbConn,
		playerRepo,
		tournamentRepo,
		fundRepo,
		settingsRepo,
		costRepo,
		attendanceRepo,
		paymentRepo,
		logger,
	)
	statsService := services.NewStatsService(attendanceRepo, fundRepo)
	rankingService := services.NewRankingService(rankingCache, nil, services.DefaultRankingPrefix, logger)
	newsService := services.NewNewsService(achievementRepo, uploader, hub, logger)

	router := routes.InitRoutes(routes.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Player:     handlers.NewPlayerHandler(playerService),
		Fund:       handlers.NewFundHandler(fundService, statsService),
		News:       handlers.NewNewsHandler(newsService),
		Ranking:    handlers.NewRankingHandler(rankingService),
		WebSocket:  handlers.NewWebSocketHandler(hub),
	}, cfg.AdminPassword)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
