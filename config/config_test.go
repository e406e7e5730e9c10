package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthdb/orchestrator/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	t.Run("should declare the four-repo release chain in dependency order", func(t *testing.T) {
		t.Parallel()

		// when
		cfg := config.Default()

		// then
		names := make([]string, 0, len(cfg.Release.Repos))
		for _, repo := range cfg.Release.Repos {
			names = append(names, repo.Name)
		}
		assert.Equal(t, []string{"installer-kernel", "installer", "truthdb", "installer-iso"}, names)
		assert.Equal(t, "Truthdb", cfg.Owner)
		assert.Equal(t, 10, cfg.Release.PollIntervalSecs)
		assert.Equal(t, 45*60, cfg.Release.TimeoutSecs)
	})

	t.Run("should give every fleet repo to the monitor", func(t *testing.T) {
		t.Parallel()

		// when
		cfg := config.Default()

		// then
		assert.Len(t, cfg.Monitor.Repos, 12)
		assert.Contains(t, cfg.Monitor.Repos, "truthdb")
		assert.Contains(t, cfg.Monitor.Repos, "installer-iso")
		assert.Equal(t, 60, cfg.Monitor.PollIntervalSecs)
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("should overlay the file on the defaults", func(t *testing.T) {
		t.Parallel()

		// given a file that only overrides the owner and poll cadence
		path := writeConfigFile(t, `
owner: "Acme"
release:
  poll_interval_secs: 5
`)

		// when
		cfg, err := config.Load(path)

		// then: defaults survive for everything the file left unset
		require.NoError(t, err)
		assert.Equal(t, "Acme", cfg.Owner)
		assert.Equal(t, 5, cfg.Release.PollIntervalSecs)
		assert.Equal(t, 45*60, cfg.Release.TimeoutSecs)
		assert.Len(t, cfg.Monitor.Repos, 12)
	})

	t.Run("should replace the release plan when the file declares one", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfigFile(t, `
release:
  repos:
    - name: "lib"
    - name: "app"
      assets:
        - "app-v{version}.tar.gz"
`)

		// when
		cfg, err := config.Load(path)

		// then
		require.NoError(t, err)
		require.Len(t, cfg.Release.Repos, 2)
		assert.Equal(t, "lib", cfg.Release.Repos[0].Name)
		assert.Empty(t, cfg.Release.Repos[0].Assets)
		assert.Equal(t, []string{"app-v{version}.tar.gz"}, cfg.Release.Repos[1].Assets)
	})

	t.Run("should fail when the file does not exist", func(t *testing.T) {
		t.Parallel()

		// when
		cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))

		// then
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfigFile(t, "owner: [unclosed")

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("should reject an empty owner", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfigFile(t, `owner: ""`)

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner is required")
	})

	t.Run("should reject duplicate release repos", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfigFile(t, `
release:
  repos:
    - name: "app"
    - name: "app"
`)

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate repo")
	})

	t.Run("should reject a non-positive poll interval", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfigFile(t, `
release:
  poll_interval_secs: 0
`)

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "poll_interval_secs must be positive")
	})
}

func TestReleasePlan(t *testing.T) {
	t.Parallel()

	t.Run("should root every repo under the repos root and preserve order", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()

		// when
		plan := cfg.ReleasePlan("/home/dev/src")

		// then
		require.Len(t, plan, 4)
		assert.Equal(t, "installer-kernel", plan[0].Name)
		assert.Equal(t, filepath.Join("/home/dev/src", "installer-kernel"), plan[0].LocalPath)
		assert.Equal(t, "Truthdb", plan[0].Owner)
		for i, desc := range plan {
			assert.Equal(t, i, desc.OrderIndex)
		}
	})
}

func TestAssetTable(t *testing.T) {
	t.Parallel()

	t.Run("should omit repos without assets", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()
		cfg.Release.Repos = append(cfg.Release.Repos, config.RepoConfig{Name: "docs"})

		// when
		table := cfg.AssetTable()

		// then
		assert.Len(t, table, 4)
		assert.Nil(t, table.ExpectedFor("docs", "1.0.0"))
		assert.Equal(t, []string{"BOOTX64.EFI"}, table.ExpectedFor("installer-kernel", "1.0.0"))
	})
}
