package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReloadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the article corpus on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			result, err := c.ReloadCorpus(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Corpus reloaded: %d articles (version %d)\n", result.Articles, result.Version)
			return nil
		},
	}
}
