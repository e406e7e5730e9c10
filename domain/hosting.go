package domain

import "context"

// HostingClient abstracts the release-hosting service (GitHub). All calls
// are blocking and confined to the worker context.
type HostingClient interface {
	// ReleaseByTag fetches the release for a tag. A nil release with a nil
	// error means the release does not exist (yet).
	ReleaseByTag(ctx context.Context, repo, tag string) (*ReleaseInfo, error)

	// DefaultBranch returns the repository's default branch name.
	DefaultBranch(ctx context.Context, repo string) (string, error)

	// LatestWorkflowRun returns the most recent CI run, or nil when the
	// repository has none.
	LatestWorkflowRun(ctx context.Context, repo string) (*WorkflowRun, error)

	// LatestReleaseTag returns the tag of the most recent published
	// release. ok is false when no release has been published.
	LatestReleaseTag(ctx context.Context, repo string) (tag string, ok bool, err error)

	// CompareAheadBy counts commits on head that are not on base.
	CompareAheadBy(ctx context.Context, repo, base, head string) (int, error)
}
