package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and upsert all rubrics and resumes into the vector store",
	Run: func(_ *cobra.Command, _ []string) {
		index()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func index() {
	ctx := context.Background()
	logger, _, comps := bootstrap(ctx)

	res, err := comps.orchestrator.IndexAllContent(ctx)
	if err != nil {
		logger.Fatal("indexing content", zap.Error(err))
	}

	// do not bother error since the status is plain data
	pretty, _ := json.MarshalIndent(comps.orchestrator.IndexStatus(), "", "  ")
	logger.Info("content indexed",
		zap.Int("indexed", res.Indexed),
		zap.Int("skipped", res.Skipped),
		zap.Int("removed", res.Removed),
		zap.Int("chunks", res.Chunks),
	)
	logger.Debug(fmt.Sprintf("index status: \n %s", pretty))
}
