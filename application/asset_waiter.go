package application

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/truthdb/orchestrator/domain"
)

// AssetWaiter polls the hosting service until a release's expected assets
// are present, non-zero, and stable. A release object can list correct
// asset names before their content finishes uploading, so "present and
// non-zero" alone is not sufficient: readiness requires the identical,
// fully-present size map on two consecutive ticks.
type AssetWaiter struct {
	hosting  domain.HostingClient
	reporter domain.Reporter

	// Injectable for tests; real runs use time.Sleep / time.Now.
	sleep func(time.Duration)
	now   func() time.Time
}

var _ AssetWaiterContract = (*AssetWaiter)(nil)

// NewAssetWaiter creates a waiter using the wall clock.
func NewAssetWaiter(hosting domain.HostingClient, reporter domain.Reporter) *AssetWaiter {
	return &AssetWaiter{
		hosting:  hosting,
		reporter: reporter,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Wait blocks until the assets are ready or the per-repo deadline passes.
// An absent release is not-ready, not an error. The timeout error
// enumerates the assets still missing or unstable at expiry.
func (w *AssetWaiter) Wait(
	ctx context.Context,
	repo, tag string,
	expected []string,
	pollInterval, timeout time.Duration,
) error {
	start := w.now()
	deadline := start.Add(timeout)

	var lastSizes map[string]int64
	stableCount := 0

	for {
		if w.now().After(deadline) {
			pending := pendingAssets(expected, lastSizes)
			return fmt.Errorf(
				"%w: %s %s still waiting for %v after %s (timeout %s)",
				domain.ErrAssetWaitTimeout, repo, tag,
				pending, w.now().Sub(start).Round(time.Second), timeout,
			)
		}

		release, err := w.hosting.ReleaseByTag(ctx, repo, tag)
		if err != nil {
			return err
		}
		if release == nil {
			w.reporter.Update(fmt.Sprintf("[%s] release %s not found yet; waiting...", repo, tag))
			w.sleep(pollInterval)
			continue
		}

		sizes := make(map[string]int64, len(release.Assets))
		for _, asset := range release.Assets {
			sizes[asset.Name] = asset.Size
		}

		missing := missingAssets(expected, sizes)
		if len(missing) > 0 {
			// An incomplete observation invalidates any stability progress.
			stableCount = 0
			lastSizes = nil
			w.reporter.Update(fmt.Sprintf(
				"[%s] waiting for assets (missing %d): %v", repo, len(missing), missing,
			))
			w.sleep(pollInterval)
			continue
		}

		// All assets exist and are non-zero. Now ensure they have stabilized.
		if lastSizes != nil && maps.Equal(lastSizes, sizes) {
			stableCount++
		} else {
			stableCount = 0
			lastSizes = sizes
		}

		if stableCount >= 1 {
			w.reporter.Update(fmt.Sprintf("[%s] assets ready for %s", repo, tag))
			return nil
		}

		w.reporter.Update(fmt.Sprintf("[%s] assets present; verifying stability...", repo))
		w.sleep(pollInterval)
	}
}

// missingAssets returns the expected names that are absent or reported
// with size <= 0.
func missingAssets(expected []string, sizes map[string]int64) []string {
	var missing []string
	for _, name := range expected {
		if size, ok := sizes[name]; !ok || size <= 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// pendingAssets describes what was still outstanding when the deadline
// passed: the missing names if any, otherwise everything (present but
// never observed stable).
func pendingAssets(expected []string, lastSizes map[string]int64) []string {
	if lastSizes == nil {
		return expected
	}
	missing := missingAssets(expected, lastSizes)
	if len(missing) == 0 {
		return expected
	}
	sort.Strings(missing)
	return missing
}
