package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"powercast/internal/api"
	"powercast/internal/cfg"
	"powercast/internal/ensemble"
	"powercast/internal/metrics"
	"powercast/internal/model"
	"powercast/internal/storage"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	m := metrics.New()

	// Both artifacts are required; the sum contract cannot be honored with
	// only one model, so load failure is fatal at startup.
	tree, err := model.LoadTreeEnsemble(c.TreeModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model_path", c.TreeModelPath).Msg("tree model load failed")
	}
	seq, err := model.LoadRecurrentNet(c.SeqModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model_path", c.SeqModelPath).Msg("sequence model load failed")
	}
	setModelAge(m, c.TreeModelPath, c.SeqModelPath)

	svc, err := ensemble.New(tree, seq, metrics.NewWrapper(m))
	if err != nil {
		log.Fatal().Err(err).Msg("ensemble construction failed")
	}

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	server := api.New(svc, store, m, c.Addr(), c.RequestTimeout, c.HistoryLimit)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("prediction server failed")
		}
	}()

	waitForShutdown(server)
}

// initializeStorage initializes history storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

func setModelAge(m *metrics.Metrics, treePath, seqPath string) {
	if info, err := os.Stat(treePath); err == nil {
		m.TreeModelAge.Set(time.Since(info.ModTime()).Seconds())
	}
	if info, err := os.Stat(seqPath); err == nil {
		m.SeqModelAge.Set(time.Since(info.ModTime()).Seconds())
	}
}

// waitForShutdown waits for shutdown signals and drains the server.
func waitForShutdown(server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received, shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
