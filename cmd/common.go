package cmd

import (
	"context"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/logger"
)

// bootstrap builds the logger, config and components, exiting on any failure.
func bootstrap(ctx context.Context) (*zap.Logger, *Config, *components) {
	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interview-brain", zap.String("version", version))
	logger.Debug("resolved config",
		zap.String("embedding_provider", config.Embedding.Provider),
		zap.String("vector_store", config.VectorStore.Backend),
		zap.String("ai_provider", config.AI.Provider),
		zap.String("grounding", config.Interview.Grounding),
	)

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	return logger, config, comps
}
