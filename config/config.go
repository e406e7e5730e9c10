package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/truthdb/orchestrator/domain"
)

// Config is the top-level configuration for the orchestrator. Every field
// has a built-in default; a config file only overrides what it sets.
type Config struct {
	Owner   string        `yaml:"owner"`
	Release ReleaseConfig `yaml:"release"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// ReleaseConfig declares the ordered release plan. Order is a hard
// invariant: it reflects the build dependency chain, and repos are tagged
// strictly in declaration order.
type ReleaseConfig struct {
	Repos            []RepoConfig `yaml:"repos"`
	PollIntervalSecs int          `yaml:"poll_interval_secs"`
	TimeoutSecs      int          `yaml:"timeout_secs"`
}

// RepoConfig describes one repository in the release plan. Assets holds
// artifact filename templates with a {version} placeholder; empty means
// the repo publishes nothing the orchestrator has to wait for.
type RepoConfig struct {
	Name   string   `yaml:"name"`
	Assets []string `yaml:"assets"`
}

// MonitorConfig declares the fleet monitor's fixed repo list.
type MonitorConfig struct {
	Repos            []string `yaml:"repos"`
	PollIntervalSecs int      `yaml:"poll_interval_secs"`
}

// Default returns the built-in configuration for the TruthDB organization:
// the four-repo release chain (bootloader -> installer -> engine -> image)
// and the full fleet watched by the monitor.
func Default() *Config {
	return &Config{
		Owner: "Truthdb",
		Release: ReleaseConfig{
			Repos: []RepoConfig{
				{
					Name:   "installer-kernel",
					Assets: []string{"BOOTX64.EFI"},
				},
				{
					Name: "installer",
					Assets: []string{
						"truthdb-installer-v{version}-x86_64-linux-musl.tar.gz",
						"truthdb-installer-v{version}-x86_64-linux-musl.sha256",
					},
				},
				{
					Name: "truthdb",
					Assets: []string{
						"truthdb-v{version}-x86_64-linux-gnu.tar.gz",
						"truthdb-v{version}-x86_64-linux-gnu.sha256",
					},
				},
				{
					Name: "installer-iso",
					Assets: []string{
						"truthdb-installer-v{version}.iso",
						"truthdb-installer-v{version}.iso.sha256",
					},
				},
			},
			PollIntervalSecs: 10,
			TimeoutSecs:      45 * 60,
		},
		Monitor: MonitorConfig{
			Repos: []string{
				".github",
				"docs",
				"installer",
				"installer-iso",
				"installer-kernel",
				"installer-kernel-builder-image",
				"orchestrator",
				"truthdb",
				"truthdb-cli",
				"truthdb-net",
				"truthdb-proto",
				"website",
			},
			PollIntervalSecs: 60,
		},
	}
}

// Load reads a configuration file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := Default()
	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	if validateErr := validate(cfg); validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns an empty path (not an error) when none exists: the defaults are
// a complete configuration.
func FindConfigFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".orchestrator.yaml",
		".orchestrator.yml",
		"orchestrator.yaml",
		"orchestrator.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				logger.Debugf("Using config file: %s", p)
				return p
			}
		}
	}

	return ""
}

// ReleasePlan converts the ordered repo list into descriptors rooted at
// reposRoot, preserving declaration order.
func (c *Config) ReleasePlan(reposRoot string) []domain.RepoDescriptor {
	plan := make([]domain.RepoDescriptor, 0, len(c.Release.Repos))
	for i, repo := range c.Release.Repos {
		plan = append(plan, domain.RepoDescriptor{
			Name:       repo.Name,
			LocalPath:  filepath.Join(reposRoot, repo.Name),
			Owner:      c.Owner,
			OrderIndex: i,
		})
	}
	return plan
}

// AssetTable builds the static repo -> asset-template mapping.
func (c *Config) AssetTable() domain.AssetTable {
	table := make(domain.AssetTable, len(c.Release.Repos))
	for _, repo := range c.Release.Repos {
		if len(repo.Assets) > 0 {
			table[repo.Name] = repo.Assets
		}
	}
	return table
}

// validate checks for required configuration values.
func validate(cfg *Config) error {
	if cfg.Owner == "" {
		return errors.New("owner is required")
	}
	if len(cfg.Release.Repos) == 0 {
		return errors.New("release.repos must have at least one entry")
	}

	seen := make(map[string]bool, len(cfg.Release.Repos))
	for i, repo := range cfg.Release.Repos {
		if repo.Name == "" {
			return fmt.Errorf("release.repos[%d].name is required", i)
		}
		if seen[repo.Name] {
			return fmt.Errorf("release.repos[%d]: duplicate repo %q", i, repo.Name)
		}
		seen[repo.Name] = true
	}

	if cfg.Release.PollIntervalSecs <= 0 {
		return errors.New("release.poll_interval_secs must be positive")
	}
	if cfg.Release.TimeoutSecs <= 0 {
		return errors.New("release.timeout_secs must be positive")
	}
	if len(cfg.Monitor.Repos) == 0 {
		return errors.New("monitor.repos must have at least one entry")
	}
	if cfg.Monitor.PollIntervalSecs <= 0 {
		return errors.New("monitor.poll_interval_secs must be positive")
	}

	return nil
}
