package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quickscribe/internal/config"
	"quickscribe/internal/daemon"
	"quickscribe/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "quickscribed:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if !exists {
		logger.Warn("no config file found, using defaults",
			logging.String("looked_at", resolvedPath))
	} else {
		logger.Info("config loaded", logging.String("path", resolvedPath))
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
