package cmd

import (
	"go.uber.org/dig"

	"github.com/truthdb/orchestrator/application"
	"github.com/truthdb/orchestrator/config"
	"github.com/truthdb/orchestrator/domain"
	gitinfra "github.com/truthdb/orchestrator/infrastructure/git"
	githubinfra "github.com/truthdb/orchestrator/infrastructure/github"
)

// buildReleaseService wires the release worker and its collaborators
// through dig. The waiter is absent (nil) when the run cannot poll assets:
// dry runs never poll, and without a credential the service fails before
// any mutation if assets would be expected.
func buildReleaseService(
	cfg *config.Config,
	token string,
	rep domain.Reporter,
	dryRun bool,
) (*application.ReleaseService, error) {
	container := dig.New()

	constructors := []any{
		func() domain.Reporter { return rep },
		func() domain.RepoOpener { return gitinfra.NewOpener(token) },
		func(r domain.Reporter) application.AssetWaiterContract {
			if dryRun || token == "" {
				return nil
			}
			return application.NewAssetWaiter(githubinfra.NewClient(cfg.Owner, token), r)
		},
		application.NewReleaseService,
	}

	for _, ctor := range constructors {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var svc *application.ReleaseService
	if err := container.Invoke(func(s *application.ReleaseService) {
		svc = s
	}); err != nil {
		return nil, err
	}
	return svc, nil
}

// buildMonitorService wires the fleet monitor the same way.
func buildMonitorService(
	cfg *config.Config,
	token string,
	rep domain.Reporter,
) (*application.MonitorService, error) {
	container := dig.New()

	constructors := []any{
		func() domain.Reporter { return rep },
		func() domain.HostingClient { return githubinfra.NewClient(cfg.Owner, token) },
		application.NewMonitorService,
	}

	for _, ctor := range constructors {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var svc *application.MonitorService
	if err := container.Invoke(func(s *application.MonitorService) {
		svc = s
	}); err != nil {
		return nil, err
	}
	return svc, nil
}

// loadConfig resolves the effective configuration: explicit --config path,
// else the first file found in standard locations, else built-in defaults.
// The --owner flag overrides whatever the config declares.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.FindConfigFile()
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if owner != "" {
		cfg.Owner = owner
	}
	return cfg, nil
}
