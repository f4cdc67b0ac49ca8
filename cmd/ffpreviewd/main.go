// Command ffpreviewd serves the thumbnail pipeline over HTTP: remote
// presentation layers fetch manifests and thumbnail images, trigger
// extractions and launch the local media player.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/irrwahn/ffpreview/internal/config"
	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/player"
	"github.com/irrwahn/ffpreview/internal/preview"
	"github.com/irrwahn/ffpreview/internal/server"
)

func main() {
	configPath := os.Getenv("FFPREVIEW_CONFIG")
	if configPath == "" {
		configPath = "ffpreview.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		panic(err)
	}

	svc, err := preview.FromConfig(cfg, log)
	if err != nil {
		log.Fatalf("failed to set up pipeline: %v", err)
	}

	pl := player.New(cfg.Player.Command, cfg.Player.PausedCommand, log)
	srv := server.New(cfg, svc, pl, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
