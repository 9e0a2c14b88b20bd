package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verilex/policyaudit/pkg/client"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		scope           []int
		judgeOnly       bool
		rerank          bool
		recommendations bool
		topK            int
	)

	cmd := &cobra.Command{
		Use:   "analyze <document.txt>",
		Short: "Score a policy document against the article corpus",
		Long: `Analyze reads a plain-text policy document and reports per-article
coverage plus the aggregated compliance score.  Pass "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			c, err := opts.newClient()
			if err != nil {
				return err
			}
			report, err := c.Analyze(cmd.Context(), client.AnalyzeRequest{
				Text:            text,
				ScopeArticles:   scope,
				JudgeOnly:       judgeOnly,
				Rerank:          rerank,
				TopK:            topK,
				Recommendations: recommendations,
			})
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReportTable(cmd, report)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&scope, "scope", nil, "article numbers to score against (default: configured scope)")
	cmd.Flags().BoolVar(&judgeOnly, "judge-only", false, "fail instead of falling back when the judge is unavailable")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "enable the model re-rank retrieval stage")
	cmd.Flags().BoolVar(&recommendations, "recommendations", false, "draft remediation recommendations for gaps")
	cmd.Flags().IntVar(&topK, "top-k", 0, "retrieval candidate limit (0 = server default)")
	return cmd
}

func printReportTable(cmd *cobra.Command, report *client.Report) {
	out := cmd.OutOrStdout()
	o := report.Overall

	fmt.Fprintf(out, "Analysis %s (%.0f ms)\n", report.AnalysisID, float64(report.ElapsedMS))
	fmt.Fprintf(out, "Overall score: %.1f%% — %s\n", o.OverallScore, o.ComplianceLevel)
	fmt.Fprintf(out, "Covered: %v  Partial: %v  Low: %v  Missing: %v\n\n",
		o.CoveredArticles, o.PartiallyCoveredArticles, o.LowCoverageArticles, o.MissingArticles)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARTICLE\tTITLE\tBAND\tCOVERAGE\tMETHOD")
	for _, rec := range o.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\t%s\n",
			rec.ArticleNumber, truncateCell(rec.Title, 40), rec.Band, rec.CoveragePercentage, rec.Method)
	}
	w.Flush()

	if len(report.Recommendations) > 0 {
		fmt.Fprintf(out, "\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(out, "%d. [%s] %s\n", rec.Number, rec.Reference, rec.Action)
		}
	}
}

func truncateCell(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
