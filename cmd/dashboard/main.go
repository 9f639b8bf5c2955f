package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/anrid/colombia-stats/pkg/config"
	"github.com/anrid/colombia-stats/pkg/dashboard"
	"github.com/anrid/colombia-stats/pkg/stats"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ds, err := stats.NewLoader(cfg.LoaderConfig(), logger).Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load merged dataset", zap.Error(err))
	}
	logger.Info("Data loaded",
		zap.Int("regions", len(ds.Regions)),
		zap.Float64("top_quartile_cutoff", ds.QuartileCutoff))

	srv, err := dashboard.NewServer(ds, dashboard.ServerConfig{CORSOrigins: cfg.CORSOrigins}, logger)
	if err != nil {
		logger.Fatal("Failed to build dashboard", zap.Error(err))
	}

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
