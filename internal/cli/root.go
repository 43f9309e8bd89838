// Package cli provides the podcastctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-podcast-backend/internal/client"
	"github.com/tbourn/go-podcast-backend/internal/sysutil"
)

// Version is set at build time.
var Version = "dev"

const (
	envServer  = "PODCAST_API_URL"
	envTimeout = "PODCAST_CLIENT_TIMEOUT"

	defaultServer = "http://localhost:8080/api"
)

// app holds global flags and the lazily built client and logger.
type app struct {
	server  string
	timeout time.Duration
	output  string
	verbose bool
	logFile string

	out    io.Writer
	errOut io.Writer

	api     *client.Client
	log     *slog.Logger
	cleanup func() error
}

// NewRootCmd builds the podcastctl command tree writing results to out and
// logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "podcastctl",
		Short: "Submit and inspect city podcast generation jobs",
		Long: `podcastctl talks to the podcast generation API.

Submit a city, language and length to start a job, then poll its 6-character
code until the generator has finished.

Examples:
  podcastctl submit --city Paris --language English --length 6 --wait
  podcastctl get AB12CD
  podcastctl get ab-12-cd --full -o yaml
  podcastctl list --limit 10`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cleanup != nil {
				return a.cleanup()
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.server, "server", "s", strings.TrimSpace(sysutil.FirstNonEmpty(os.Getenv(envServer), defaultServer)), "API base URL including the base path")
	pf.DurationVar(&a.timeout, "timeout", envDuration(envTimeout, client.DefaultTimeout), "per-request timeout")
	pf.StringVarP(&a.output, "output", "o", "text", "output format: text|json|yaml")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&a.logFile, "log-file", "", "also write JSON logs to this file")

	root.AddCommand(
		newSubmitCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newWaitCmd(a),
	)
	return root
}

// Execute runs podcastctl against os.Args.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) init() error {
	switch a.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	logger, cleanup, err := newLogger(a.errOut, a.logFile, level)
	if err != nil {
		return err
	}
	a.log, a.cleanup = logger, cleanup
	a.api = client.New(a.server, client.WithTimeout(a.timeout))
	a.log.Debug("client ready", "server", a.server, "timeout", a.timeout)
	return nil
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && d > 0 {
		return d
	}
	return def
}
