package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/search"
)

type queryResult struct {
	Name                 string  `json:"name"`
	URL                  string  `json:"url"`
	TestType             string  `json:"test_type"`
	DurationMinutes      int     `json:"duration_minutes"`
	RemoteTestingSupport bool    `json:"remote_testing_support"`
	AdaptiveIRTSupport   bool    `json:"adaptive_irt_support"`
	SimilarityScore      float64 `json:"similarity_score"`
}

func newQueryCmd(cfg *config.Config) *cobra.Command {
	var (
		topN   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank catalog assessments against a job description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topN < 1 {
				return fmt.Errorf("--top must be at least 1")
			}
			idx, _, err := loadIndex(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			matches, err := idx.Query(query, topN)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, matches)
			}
			printMatches(cmd, query, matches)
			return nil
		},
	}
	cmd.Flags().IntVar(&topN, "top", cfg.Recommend.DefaultTopN, "Number of results to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func printJSON(cmd *cobra.Command, matches []search.RankedMatch) error {
	results := make([]queryResult, len(matches))
	for i, m := range matches {
		results[i] = queryResult{
			Name:                 m.Document.Name,
			URL:                  m.Document.URL,
			TestType:             m.Document.TestType,
			DurationMinutes:      m.Document.Duration,
			RemoteTestingSupport: m.Document.RemoteTesting,
			AdaptiveIRTSupport:   m.Document.AdaptiveIRT,
			SimilarityScore:      m.Score,
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{"results": results})
}

func printMatches(cmd *cobra.Command, query string, matches []search.RankedMatch) {
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintf(out, "No assessments match %q.\n", query)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCORE\tNAME\tTYPE\tMINUTES\tREMOTE\tADAPTIVE")
	for i, m := range matches {
		minutes := "-"
		if m.Document.Duration > 0 {
			minutes = fmt.Sprint(m.Document.Duration)
		}
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\t%s\t%s\n", i+1, m.Score, m.Document.Name,
			m.Document.TestType, minutes, yesNo(m.Document.RemoteTesting), yesNo(m.Document.AdaptiveIRT))
	}
	w.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
