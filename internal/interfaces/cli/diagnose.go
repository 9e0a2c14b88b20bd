package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verilex/policyaudit/pkg/client"
)

func newDiagnoseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <document.txt>",
		Short: "List articles the document matches with near-certainty",
		Long: `Diagnose runs the strict text-similarity path: only articles clearing
a high embedding-similarity floor and a keyword-overlap floor are reported.
Useful for checking which requirements a passage speaks to directly.`,
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
			matches, err := c.Diagnose(cmd.Context(), client.AnalyzeRequest{Text: text})
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No direct matches.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ARTICLE\tTITLE\tEMBEDDING\tOVERLAP\tSEQUENCE")
			for _, m := range matches {
				fmt.Fprintf(w, "%d\t%s\t%.3f\t%.3f\t%.3f\n",
					m.ArticleNumber, truncateCell(m.Title, 40), m.EmbeddingScore, m.KeywordOverlap, m.SequenceSimilarity)
			}
			return w.Flush()
		},
	}
}
