package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/app"
)

func newReindexCmd(opts *rootOptions) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed every active listing and rewrite the vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App, logger *zap.Logger) error {
				size := batchSize
				if size <= 0 {
					size = a.Config.Indexing.BatchSize
				}
				stats, err := a.Indexer.Reindex(cmd.Context(), size)
				if err != nil {
					return err
				}
				logger.Info("Reindex finished", zap.Int("listings", stats.Listings))
				cmd.Printf("reindexed %d listings in %d batches (%d tokens)\n",
					stats.Listings, stats.Batches, stats.Tokens)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Listings per embedding call (default from config)")
	return cmd
}
