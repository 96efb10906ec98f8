package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/app"
	"github.com/ykvlv/schedule-bot/internal/config"
	"github.com/ykvlv/schedule-bot/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 2
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("app init failed", zap.Error(err))
		return 1
	}
	if err := application.Run(context.Background()); err != nil {
		log.Error("app run failed", zap.Error(err))
		return 1
	}
	return 0
}
