package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rflorenc/awx-launch/internal/config"
	"github.com/rflorenc/awx-launch/internal/logging"
	"github.com/rflorenc/awx-launch/internal/output"
	"github.com/rflorenc/awx-launch/internal/platform"
	"github.com/rflorenc/awx-launch/internal/workflow"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "awx-launch",
		Short: "Launch an AWX job template from a CI step",
		Long: `Authenticates against an AWX / Ansible Tower controller, optionally creates an
inventory and registers the target hosts, launches a job template and waits
for the job to finish. Settings are read from PLUGIN_* environment variables;
results are appended to $DRONE_OUTPUT and, when PLUGIN_SAVE_TOKEN is set, the
token to $HARNESS_OUTPUT_SECRET_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stderr)
		},
	}
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func run(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		level.Error(logging.New(stderr, "INFO")).Log("msg", "invalid configuration", "err", err)
		return err
	}

	logger := log.With(logging.New(stderr, cfg.LogLevel), "run", uuid.New().String())
	creds := cfg.Credentials()
	level.Info(logger).Log("msg", "starting", "version", version, "endpoint", creds.Endpoint, "user", creds.Username, "password", creds.MaskedPassword())

	runner := &workflow.Runner{
		Controller: platform.New(creds, logger, platform.WatchOptions{
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
		}),
		Emitter: output.NewFileEmitter(cfg.OutputFile, cfg.SecretOutputFile, logger),
		Logger:  logger,
		Config:  cfg,
	}
	if _, err := runner.Run(ctx); err != nil {
		level.Error(logger).Log("msg", "launch failed", "err", err)
		return err
	}
	return nil
}
