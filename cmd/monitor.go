package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/truthdb/orchestrator/application"
	githubinfra "github.com/truthdb/orchestrator/infrastructure/github"
	"github.com/truthdb/orchestrator/infrastructure/reporter"
	"github.com/truthdb/orchestrator/tui"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var monitorPollIntervalSecs int

//nolint:gochecknoglobals // required by cobra CLI pattern
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously watch CI, release, and ahead-by status across the fleet",
	Long: `Continuously watch the organization's repositories.

Each pass reads the latest CI run, the latest published release tag, and
how many commits the default branch is ahead of that release. Rows fill
in one repo at a time so progress is visible between refreshes.`,
	RunE: runMonitor,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	monitorCmd.Flags().IntVar(
		&monitorPollIntervalSecs, "poll-interval-secs", 0,
		"Seconds between refresh passes (default from config)",
	)
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pollInterval := time.Duration(cfg.Monitor.PollIntervalSecs) * time.Second
	if monitorPollIntervalSecs > 0 {
		pollInterval = time.Duration(monitorPollIntervalSecs) * time.Second
	}

	token := githubinfra.TokenFromEnv()
	opts := application.MonitorOptions{
		Owner:        cfg.Owner,
		Repos:        cfg.Monitor.Repos,
		PollInterval: pollInterval,
		HasToken:     token != "",
	}

	if plain {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, buildErr := buildMonitorService(cfg, token, reporter.NewPlain())
		if buildErr != nil {
			return buildErr
		}
		return svc.Run(ctx, opts)
	}

	events := reporter.NewChannel(0)
	svc, buildErr := buildMonitorService(cfg, token, events)
	if buildErr != nil {
		return buildErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- svc.Run(ctx, opts)
	}()

	uiErr := tui.Run(events.Events(), false)

	// Quitting the dashboard stops observation; tell the worker to wind
	// down and join it before exiting.
	cancel()
	if runErr := <-workerErr; runErr != nil {
		logger.Errorf("Monitor failed: %v", runErr)
		return runErr
	}
	return uiErr
}
