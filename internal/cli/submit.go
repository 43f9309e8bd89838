package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-podcast-backend/internal/client"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		req      client.GenerateRequest
		idemKey  string
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start a podcast generation job",
		Long: `Submit a city, language and length (minutes, 1 to 10) and print the
issued code. With --wait the command polls until the job has finished.

Examples:
  podcastctl submit --city Paris --language English --length 6
  podcastctl submit -c Kyoto -l Japanese -n 3 --idempotency-key kyoto-1 --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.api.Generate(ctx, req, idemKey)
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}
			a.log.Info("job submitted", "code", res.Code, "replayed", res.Replayed)

			if !wait {
				return render(a.out, a.output, map[string]any{"code": res.Code, "replayed": res.Replayed}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, res.Code)
					return err
				})
			}
			return a.waitFor(cmd, res.Code, interval)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.CityName, "city", "c", "", "city to cover (required)")
	f.StringVarP(&req.Language, "language", "l", "English", "narration language")
	f.Float64VarP(&req.Length, "length", "n", 5, "length in minutes")
	f.StringVar(&idemKey, "idempotency-key", "", "retry-safe submission key")
	f.BoolVarP(&wait, "wait", "w", false, "poll until the job has finished")
	f.DurationVar(&interval, "interval", 5*time.Second, "poll interval with --wait")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}
