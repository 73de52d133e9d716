// Package cli implements the offline recommend command, which builds an index
// from a local catalog file and queries it without starting the server.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/assessment-engine/recommender/internal/catalog"
	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/search"
)

// NewRootCmd assembles the command tree. Defaults come from the environment
// configuration shared with the server.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "recommend",
		Short:        "Recommend assessments from a catalog using TF-IDF similarity",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("catalog", cfg.Catalog.Path, "Catalog file (.csv, .json, .yaml)")

	root.AddCommand(newQueryCmd(cfg), newStatsCmd(cfg))
	return root
}

// Execute is called by main.go.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadIndex reads the catalog named by --catalog and builds an index over it.
func loadIndex(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*search.Index, *catalog.Catalog, error) {
	path, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.NewFileSource(path).Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load catalog %s: %w", path, err)
	}
	for _, rej := range cat.Skipped {
		logrus.WithField("reason", rej.Reason).Debug("Skipped catalog record")
	}
	for _, w := range cat.Warnings {
		logrus.WithField("reason", w.Reason).Warn("Catalog record kept without link")
	}

	idx, err := search.Build(cat.Documents(), search.Options{
		Stopwords:      cfg.Index.Stopwords,
		MinTokenLength: cfg.Index.MinTokenLength,
		FoldDiacritics: cfg.Index.FoldDiacritics,
		Workers:        cfg.Index.Workers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cannot build index: %w", err)
	}
	return idx, cat, nil
}
