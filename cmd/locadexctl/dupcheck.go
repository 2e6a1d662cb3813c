package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/app"
	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
)

var errBlocking = errors.New("blocking duplicate found")

type duplicateChecker interface {
	CheckForDuplicates(ctx context.Context, candidate *listing.Listing, ownerUserID string) ([]domdup.Match, error)
}

type dupcheckOptions struct {
	userID      string
	asJSON      bool
	failOnBlock bool
}

func newDupcheckCmd(opts *rootOptions) *cobra.Command {
	dopts := &dupcheckOptions{}

	cmd := &cobra.Command{
		Use:   "dupcheck <file.json|->",
		Short: "Check listings against the store for likely duplicates",
		Long: `Reads a JSON array of listings and reports, for each one, the existing
active listings of other users that likely describe the same place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := readListings(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App, _ *zap.Logger) error {
				return runDupcheck(cmd.Context(), cmd.OutOrStdout(), a.Duplicates, ls, dopts)
			})
		},
	}
	cmd.Flags().StringVar(&dopts.userID, "user", "", "Owner user id; defaults to each listing's user_id")
	cmd.Flags().BoolVar(&dopts.asJSON, "json", false, "Output matches as JSON")
	cmd.Flags().BoolVar(&dopts.failOnBlock, "fail-on-block", false,
		fmt.Sprintf("Exit non-zero when any match reaches confidence %d", domdup.BlockingConfidence))
	return cmd
}

type dupcheckReport struct {
	Title   string         `json:"title"`
	Matches []domdup.Match `json:"matches"`
}

func runDupcheck(
	ctx context.Context, out io.Writer, checker duplicateChecker, ls []listing.Listing, opts *dupcheckOptions,
) error {
	reports := make([]dupcheckReport, 0, len(ls))
	blocking := false

	for i := range ls {
		owner := opts.userID
		if owner == "" {
			owner = ls[i].UserID
		}
		matches, err := checker.CheckForDuplicates(ctx, &ls[i], owner)
		if err != nil {
			return fmt.Errorf("check %q: %w", ls[i].Title, err)
		}
		if domdup.AnyBlocking(matches) {
			blocking = true
		}
		reports = append(reports, dupcheckReport{Title: ls[i].Title, Matches: matches})
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		writeDupcheckTable(out, reports)
	}

	if blocking && opts.failOnBlock {
		return errBlocking
	}
	return nil
}

func writeDupcheckTable(out io.Writer, reports []dupcheckReport) {
	for _, r := range reports {
		if len(r.Matches) == 0 {
			fmt.Fprintf(out, "%s: no duplicates\n", r.Title)
			continue
		}
		fmt.Fprintf(out, "%s: %d possible duplicates\n", r.Title, len(r.Matches))
		for _, m := range r.Matches {
			fmt.Fprintf(out, "  [%3d] %-15s %s (%s)\n", m.Confidence, m.MatchType, m.ListingID, m.Reason)
		}
	}
}
