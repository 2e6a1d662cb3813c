package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/app"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
)

type listingWriter interface {
	UpsertMany(ctx context.Context, ls []listing.Listing) ([]listing.Listing, error)
}

type listingIndexer interface {
	IndexListingBestEffort(ctx context.Context, l listing.Listing)
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Upsert listings from a JSON array and index the active ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := readListings(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App, logger *zap.Logger) error {
				var idx listingIndexer
				if !noIndex {
					idx = a.Indexer
				}
				n, err := importListings(cmd.Context(), a.Listings, idx, ls)
				if err != nil {
					return err
				}
				logger.Info("Import complete", zap.Int("listings", n))
				cmd.Printf("imported %d listings\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip embedding; run reindex later")
	return cmd
}

// importListings stores ls in one transaction, then indexes each stored listing.
// Indexing failures are logged per listing and do not fail the import.
func importListings(ctx context.Context, w listingWriter, idx listingIndexer, ls []listing.Listing) (int, error) {
	stored, err := w.UpsertMany(ctx, ls)
	if err != nil {
		return 0, fmt.Errorf("store listings: %w", err)
	}
	if idx != nil {
		for i := range stored {
			idx.IndexListingBestEffort(ctx, stored[i])
		}
	}
	return len(stored), nil
}
