package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "get CODE",
		Short: "Show a job by code",
		Long: `Show the status of a job. Codes are case-insensitive and may contain
separators, so "ab-12-cd" finds AB12CD. --full prints the stored record
including generation parameters and references.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if full {
				p, err := a.api.Record(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get %s: %w", args[0], err)
				}
				return render(a.out, a.output, p, func(w io.Writer) error { return writeRecord(w, p) })
			}
			p, err := a.api.Podcast(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}
			return render(a.out, a.output, p, func(w io.Writer) error { return writeSummary(w, p) })
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "show the full record")
	return cmd
}
