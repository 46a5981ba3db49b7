package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/app/judge"
	"codearena/internal/app/service"
	"codearena/internal/app/worker"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/queue"

	"github.com/lmittmann/tint"
)

func main() {
	config.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	security.InitJWT()

	database.Connect()
	defer database.Close()

	queue.ConnectRedis()
	defer queue.CloseRedis()

	registry, err := judge.NewRegistry(config.AppConfig.LanguageConfigPath)
	if err != nil {
		logger.Error("could not load language registry", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	contestRepo := repository.NewPgContestRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	statsRecorder := repository.NewPgStatsRecorder(database.DB)

	client := judge.NewHTTPClient(config.AppConfig.JudgeBackendURL, config.AppConfig.JudgeBackendOverhead, logger)
	runner := judge.NewRunner(client, registry, judge.ParsePolicy(config.AppConfig.JudgePolicy), config.AppConfig.JudgeRetryPerTest, logger)
	orchestrator := judge.NewOrchestrator(submissionRepo, problemRepo, runner, statsRecorder, config.AppConfig.PersistMaxAttempts, logger)

	authService := service.NewAuthService(userRepo)
	problemService := service.NewProblemService(problemRepo, database.DB)
	contestService := service.NewContestService(contestRepo, problemRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, contestRepo, userRepo, registry, orchestrator, database.DB)
	leaderboardService := service.NewLeaderboardService(contestRepo, submissionRepo)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	judgeWorker := worker.NewJudgeWorker(queue.RDB, orchestrator, logger)
	go judgeWorker.Start(workerCtx)

	sweeper := worker.NewSweeper(queue.RDB, contestRepo, submissionRepo, logger)
	go sweeper.Start(workerCtx)

	router := api.NewRouter(registry, authService, problemService, contestService, submissionService, leaderboardService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // judging is synchronous, requests can be slow
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	logger.Info("shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
