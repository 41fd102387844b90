package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pricelens/config"
	"pricelens/internal/llm"
	"pricelens/internal/predict"
	"pricelens/internal/server"
	"pricelens/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()
	cfg := config.Load()

	if cfg.GeminiAPIKey == "" {
		// Not fatal: the server still answers, with a configuration error per
		// request, so a missing key is visible to callers instead of a dead port.
		log.Warn().Msg("GEMINI_API_KEY is not set, predictions will fail until configured")
	}

	var generator llm.Generator
	switch cfg.LLMBackend {
	case "sdk":
		generator = llm.NewGenAIClient(llm.GenAIClientOpts{
			Model:  cfg.GeminiModel,
			APIKey: cfg.GeminiAPIKey,
		})
	default:
		generator = llm.NewRestClient(llm.RestClientOpts{
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			APIKey:  cfg.GeminiAPIKey,
		})
	}
	log.Info().Str("backend", cfg.LLMBackend).Str("model", cfg.GeminiModel).Msg("llm client initialized")

	var store storage.Store
	if cfg.DBPath != "" {
		sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize history store")
		}
		defer sqliteStore.Close()
		store = sqliteStore
		log.Info().Str("dbPath", cfg.DBPath).Msg("prediction history store initialized")
	}

	service := predict.NewService(generator, store)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(service, store).Handler(),
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
