package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.api.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			a.log.Debug("listed podcasts", "count", len(items))
			return render(a.out, a.output, items, func(w io.Writer) error { return writeTable(w, items) })
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max results (server bound when 0)")
	return cmd
}
