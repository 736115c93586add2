package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/a7exd/cheap-flights-finder/internal/app"
	"github.com/a7exd/cheap-flights-finder/internal/config"
	"github.com/a7exd/cheap-flights-finder/internal/flight"
	"github.com/a7exd/cheap-flights-finder/internal/logger"
)

// Usage: flightalert <offer.json|offer.yaml>
// The config path comes from FLIGHTALERT_CONFIG (default configs/config.yaml);
// set it to an empty string to configure from the environment only.
func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath, ok := os.LookupEnv("FLIGHTALERT_CONFIG")
	if !ok {
		cfgPath = "configs/config.yaml"
	}
	if len(os.Args) < 2 {
		log.Printf("usage: %s <offer file>", filepath.Base(os.Args[0]))
		return 2
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("load config failed: %v", err)
		return 1
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Printf("open log file failed: %v", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, channels=%s)", cfg.App.Env, strings.Join(cfg.Notify.EnabledChannels(), ","))

	offer, err := flight.Load(os.Args[1])
	if err != nil {
		log.Printf("load offer failed: %v", err)
		return 1
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Printf("init app failed: %v", err)
		return 1
	}
	if err := a.Run(ctx, offer); err != nil {
		logger.Errorf("flight alert incomplete: %v", err)
		return 1
	}
	return 0
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
