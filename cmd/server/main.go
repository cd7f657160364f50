package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/alerts"
	"github.com/dennisdiepolder/calldesk/internal/auth"
	"github.com/dennisdiepolder/calldesk/internal/config"
	"github.com/dennisdiepolder/calldesk/internal/desk"
	"github.com/dennisdiepolder/calldesk/internal/notify"
	"github.com/dennisdiepolder/calldesk/internal/scheduler"
	"github.com/dennisdiepolder/calldesk/internal/sentiment"
	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/websocket"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = log.Output(logWriter(cfg))

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("db_driver", cfg.DBDriver).
		Msg("starting calldesk server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Call store
	store, err := storage.Open(cfg.DBDriver, cfg.DBDSN, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open call store")
	}
	defer store.Close()

	if cfg.SeedFile != "" {
		seed, err := storage.LoadSeed(cfg.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to load seed")
		}
		if err := store.ApplySeed(ctx, seed); err != nil {
			log.Fatal().Err(err).Msg("failed to apply seed")
		}
		log.Info().Str("file", cfg.SeedFile).Msg("seed applied")
	}

	// Stats archive
	archive, err := storage.NewArchive(ctx, storage.LoadDynamoConfig(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize stats archive")
	}

	// Transcript analysis
	lens, err := sentiment.NewClient(ctx, cfg.AWSRegion, cfg.ContactLensURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Contact Lens client")
	}
	if cfg.ConnectInstanceID == "" {
		log.Warn().Msg("CONNECT_INSTANCE_ID not set, sentiment fetches will fail")
	}
	fetcher := sentiment.NewFetcher(lens, cfg.ConnectInstanceID, cfg.TranscriptTimeout, log.Logger)

	// Alerts
	var notifier alerts.Notifier = alerts.NewLogNotifier(log.Logger)
	if cfg.SlackWebhookURL != "" {
		notifier = alerts.NewSlackNotifier(cfg.SlackWebhookURL)
	}
	dispatcher := alerts.NewDispatcher(notifier, log.Logger)

	hub := websocket.NewHub(log.Logger)
	views := desk.NewBuilder(store)
	coord := notify.NewCoordinator(store, views, hub, fetcher, dispatcher, log.Logger)

	// Daily stats snapshots
	sched := scheduler.NewScheduler(cfg.StatsSnapshotSchedule, store, archive, log.Logger)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	authn := auth.NewAuthenticator(auth.Options{
		SkipAuth:        cfg.SkipAuth,
		VerifySignature: cfg.VerifySignature,
		OIDCIssuer:      cfg.OIDCIssuer,
	}, log.Logger)
	if cfg.SkipAuth {
		log.Warn().Msg("SKIP_AUTH enabled, requests are not authenticated")
	} else if cfg.VerifySignature {
		if err := authn.InitJWKS(); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize JWKS")
		}
	}

	r, err := newRouter(cfg, deps{
		store:   store,
		archive: archive,
		views:   views,
		coord:   coord,
		hub:     hub,
		auth:    authn,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.TranscriptTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	sched.Stop()
	dispatcher.Wait()

	log.Info().Msg("server stopped")
}

// logWriter writes to the console and, when LOG_FILE is set, to a rotated file
func logWriter(cfg *config.Config) io.Writer {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.LogFile == "" {
		return console
	}
	return zerolog.MultiLevelWriter(console, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
}
