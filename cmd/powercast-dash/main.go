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

	"powercast/internal/cfg"
	"powercast/internal/dashboard"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	d := dashboard.New(c.ServiceURL, c.DashboardPort)

	go func() {
		if err := d.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("dashboard failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("dashboard shutdown failed")
	}
}
