package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/consumers"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/handler"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/auth"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/messaging"
)

const serviceName = "timesheet-service"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Timesheet Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	publisher, err := events.NewTimesheetEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Repositories
	entryRepo := repository.NewTimeEntryRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	// Services
	settingsService := service.NewSettingsService(settingsRepo, cfg.Timesheet, publisher, log)
	projectService := service.NewProjectService(projectRepo, settingsService, log)
	entryService := service.NewTimeEntryService(entryRepo, settingsService, projectService, publisher, log)
	approvalService := service.NewApprovalService(entryRepo, publisher, log)
	statsService := service.NewStatsService(entryRepo, settingsService)

	handlers := &handler.Handlers{
		Entries:   handler.NewTimeEntryHandler(entryService, log),
		Approvals: handler.NewApprovalHandler(approvalService, log),
		Settings:  handler.NewSettingsHandler(settingsService, log),
		Stats:     handler.NewStatsHandler(statsService),
		Projects:  handler.NewProjectHandler(projectService, log),
	}

	userConsumer, err := consumers.NewUserEventConsumer(rmq, settingsRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	}

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	verifier := auth.NewVerifier(&cfg.JWT)
	r := handlers.NewRouter(verifier, log, health, middleware.RealIP, corsMiddleware)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consuming before the connections close.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
