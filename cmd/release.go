package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/truthdb/orchestrator/application"
	"github.com/truthdb/orchestrator/config"
	"github.com/truthdb/orchestrator/domain"
	githubinfra "github.com/truthdb/orchestrator/infrastructure/github"
	"github.com/truthdb/orchestrator/infrastructure/reporter"
	"github.com/truthdb/orchestrator/tui"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	releaseVersion   string
	reposRoot        string
	dryRun           bool
	resume           bool
	pollIntervalSecs int
	timeoutSecs      int
	autoExit         bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var releaseCmd = &cobra.Command{
	Use:   "release-iso",
	Short: "Tag and release all dependencies needed to produce an installer ISO",
	Long: `Tag and release all dependencies needed to produce an installer ISO.

This tags local repos in build-dependency order and pushes the tags to
origin. It then polls GitHub Releases until the required assets are
present and stable before proceeding to the next repo.

All safety checks run up-front for every repo before anything is tagged:
a preflight failure anywhere guarantees zero mutation across the run.
With --resume, repos whose tag is already on origin are skipped.`,
	RunE: runRelease,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	releaseCmd.Flags().StringVar(
		&releaseVersion, "version", "",
		"Version/tag to create (SemVer), e.g. v1.2.3, 1.2.3, v1.2.3-rc.1",
	)
	releaseCmd.Flags().StringVar(
		&reposRoot, "repos-root", "",
		"Directory containing the sibling repo checkouts (default: inferred from cwd)",
	)
	releaseCmd.Flags().BoolVar(
		&dryRun, "dry-run", false,
		"Don't create or push tags; just narrate what would happen",
	)
	releaseCmd.Flags().BoolVar(
		&resume, "resume", false,
		"Resume a partially completed release (skip repos already tagged on origin)",
	)
	releaseCmd.Flags().IntVar(
		&pollIntervalSecs, "poll-interval-secs", 0,
		"Poll interval in seconds while waiting for release assets (default from config)",
	)
	releaseCmd.Flags().IntVar(
		&timeoutSecs, "timeout-secs", 0,
		"Timeout in seconds per repo while waiting for release assets (default from config)",
	)
	releaseCmd.Flags().BoolVar(
		&autoExit, "auto-exit", false,
		"Close the dashboard automatically on success",
	)
	_ = releaseCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(_ *cobra.Command, _ []string) error {
	version, err := domain.ParseReleaseVersion(releaseVersion)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	root, err := resolveReposRoot(reposRoot, cfg)
	if err != nil {
		return err
	}

	pollInterval := time.Duration(cfg.Release.PollIntervalSecs) * time.Second
	if pollIntervalSecs > 0 {
		pollInterval = time.Duration(pollIntervalSecs) * time.Second
	}
	timeout := time.Duration(cfg.Release.TimeoutSecs) * time.Second
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	opts := application.ReleaseOptions{
		Version:      version,
		Plan:         cfg.ReleasePlan(root),
		Assets:       cfg.AssetTable(),
		DryRun:       dryRun,
		Resume:       resume,
		PollInterval: pollInterval,
		Timeout:      timeout,
	}

	token := githubinfra.TokenFromEnv()
	ctx := context.Background()

	if plain {
		rep := reporter.NewPlain()
		svc, buildErr := buildReleaseService(cfg, token, rep, dryRun)
		if buildErr != nil {
			return buildErr
		}
		runErr := svc.Run(ctx, opts)
		rep.Finish(runErr == nil)
		return runErr
	}

	events := reporter.NewChannel(0)
	svc, buildErr := buildReleaseService(cfg, token, events, dryRun)
	if buildErr != nil {
		return buildErr
	}

	// Worker and presentation are independent: the dashboard only observes.
	workerErr := make(chan error, 1)
	go func() {
		runErr := svc.Run(ctx, opts)
		events.Finish(runErr == nil)
		workerErr <- runErr
	}()

	uiErr := tui.Run(events.Events(), autoExit)

	// Always join the worker, even after the operator quit the dashboard;
	// its outcome must never be lost with the interactive surface gone.
	if runErr := <-workerErr; runErr != nil {
		logger.Errorf("Release failed: %v", runErr)
		return runErr
	}
	return uiErr
}

// resolveReposRoot returns the directory containing the sibling repo
// checkouts: the flag when given, else the cwd or its parent when one of
// them contains every planned repo.
func resolveReposRoot(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to read current directory: %w", err)
	}

	if looksLikeReposRoot(cwd, cfg) {
		return cwd, nil
	}
	if parent := filepath.Dir(cwd); parent != cwd && looksLikeReposRoot(parent, cfg) {
		return parent, nil
	}

	names := make([]string, 0, len(cfg.Release.Repos))
	for _, repo := range cfg.Release.Repos {
		names = append(names, repo.Name+"/")
	}
	return "", fmt.Errorf(
		"can't infer repos root from %s; pass --repos-root pointing to the directory containing %s",
		cwd, strings.Join(names, ", "),
	)
}

func looksLikeReposRoot(dir string, cfg *config.Config) bool {
	for _, repo := range cfg.Release.Repos {
		info, err := os.Stat(filepath.Join(dir, repo.Name))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}
