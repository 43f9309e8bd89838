package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-podcast-backend/internal/domain"
)

func newWaitCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		deadline time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait CODE",
		Short: "Poll a job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deadline > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
				defer cancel()
				cmd.SetContext(ctx)
			}
			return a.waitFor(cmd, args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	cmd.Flags().DurationVar(&deadline, "max-wait", 0, "give up after this long (0 waits forever)")
	return cmd
}

// waitFor polls code and prints the final summary. A failed job is reported
// as an error so scripts can branch on the exit status.
func (a *app) waitFor(cmd *cobra.Command, code string, interval time.Duration) error {
	var last domain.Status
	p, err := a.api.Wait(cmd.Context(), code, interval, func(s *domain.PodcastSummary) {
		if s.Status != last {
			a.log.Info("status", "code", s.Code, "status", s.Status)
			last = s.Status
		}
	})
	if err != nil {
		return fmt.Errorf("wait %s: %w", code, err)
	}
	if err := render(a.out, a.output, p, func(w io.Writer) error { return writeSummary(w, p) }); err != nil {
		return err
	}
	if p.Status == domain.StatusFailed {
		return fmt.Errorf("podcast %s failed: %s", p.Code, deref(p.ErrorMessage))
	}
	return nil
}
