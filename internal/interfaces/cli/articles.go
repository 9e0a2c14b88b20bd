package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verilex/policyaudit/pkg/client"
)

func newArticlesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "articles [number]",
		Short: "List the loaded corpus articles, or show one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				number, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid article number %q", args[0])
				}
				detail, err := c.GetArticle(cmd.Context(), number)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return printJSON(cmd.OutOrStdout(), detail)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Article %d: %s\n", detail.Number, detail.Title)
				if detail.Text != "" {
					fmt.Fprintln(cmd.OutOrStdout(), detail.Text)
				}
				printClauses(cmd, detail.Clauses, "  ")
				return nil
			}

			articles, err := c.ListArticles(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), articles)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ARTICLE\tTITLE\tCLAUSES")
			for _, a := range articles {
				fmt.Fprintf(w, "%d\t%s\t%d\n", a.Number, truncateCell(a.Title, 60), a.Clauses)
			}
			return w.Flush()
		},
	}
}

func printClauses(cmd *cobra.Command, clauses []client.Clause, indent string) {
	for _, c := range clauses {
		fmt.Fprintf(cmd.OutOrStdout(), "%s(%s) %s\n", indent, c.Label, c.Text)
		printClauses(cmd, c.Clauses, indent+"  ")
	}
}
