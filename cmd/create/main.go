package main

import (
	"context"
	"log"
	"os"

	"github.com/anrid/colombia-stats/pkg/config"
	"github.com/anrid/colombia-stats/pkg/stats"
	"go.uber.org/zap"
)

// Builds the merged dataset cache ahead of starting the dashboard. An
// existing cache is kept unless REBUILD_CACHE=true.
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

	ds, err := stats.NewLoader(cfg.LoaderConfig(), logger).Load(context.Background())
	if err != nil {
		logger.Fatal("Failed to build merged dataset", zap.Error(err))
	}

	ds.Info(os.Stdout)
}
