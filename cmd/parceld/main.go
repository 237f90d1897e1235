// Command parceld runs the local Parcel daemon: it hydrates the note store
// from disk and serves it to the UI over HTTP on a loopback address.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/config"
	"github.com/parcel-notes/parcel/internal/server"
	"github.com/parcel-notes/parcel/internal/storage"
	"github.com/parcel-notes/parcel/internal/storage/file"
	"github.com/parcel-notes/parcel/internal/storage/memory"
	"github.com/parcel-notes/parcel/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Optional; env vars win over the config file either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	var backend storage.Backend
	var dataDir string
	if cfg.DevMode {
		logger.Info().Msg("dev mode: using in-memory storage")
		backend = memory.New()
	} else {
		fb := file.New(cfg.DataDir, logger)
		dataDir = fb.DataDir()
		backend = fb
	}

	st := store.New(backend, logger)
	st.Hydrate(context.Background())
	if msg := st.LastError(); msg != "" {
		logger.Warn().Str("error", msg).Msg("hydrated with recovery")
	}

	hub := server.NewHub(logger)
	go hub.Run()

	srv := server.New(st, hub, cfg.SaveDelay, logger)
	srv.DataDir = dataDir

	mux := http.NewServeMux()
	srv.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: corsMiddleware(mux),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", cfg.Listen).Str("data_dir", dataDir).Msg("parceld listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-done
	logger.Info().Msg("shutting down")

	// No edit may be left unpersisted when the process ends.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Flush(ctx)
	httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
