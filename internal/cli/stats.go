package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/assessment-engine/recommender/internal/config"
)

func newStatsCmd(cfg *config.Config) *cobra.Command {
	var terms int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics for a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, cat, err := loadIndex(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			vocab := idx.Vocabulary()
			fmt.Fprintf(out, "Documents:  %d\n", idx.Len())
			fmt.Fprintf(out, "Vocabulary: %d\n", vocab.Len())
			fmt.Fprintf(out, "Skipped:    %d\n", len(cat.Skipped))

			if terms <= 0 {
				return nil
			}

			// Lowest IDF first: the terms shared by the most documents.
			idf := idx.IDF()
			cols := make([]int, len(idf))
			for i := range cols {
				cols[i] = i
			}
			sort.SliceStable(cols, func(a, b int) bool {
				return idf[cols[a]] < idf[cols[b]]
			})

			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tIDF")
			for _, col := range cols[:min(terms, len(cols))] {
				fmt.Fprintf(w, "%s\t%.4f\n", vocab.Term(col), idf[col])
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&terms, "terms", 0, "Also list the N most common terms")
	return cmd
}
