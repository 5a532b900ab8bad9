package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("index-on-start", true, "index all content before serving")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.index-on-start", serveCmd.Flags().Lookup("index-on-start"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config, comps := bootstrap(ctx)

	if config.Server.IndexOnStart {
		res, err := comps.orchestrator.IndexAllContent(ctx)
		if err != nil {
			logger.Fatal("indexing content", zap.Error(err))
		}
		logger.Info("content indexed",
			zap.Int("indexed", res.Indexed),
			zap.Int("skipped", res.Skipped),
			zap.Int("chunks", res.Chunks),
		)
	}

	srv := server.New(server.Config{
		Addr:           config.Server.Addr,
		AllowedOrigins: config.Server.AllowedOrigins,
	}, comps.orchestrator, comps.registry, logger.Named("http"))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}
