package domain

import "errors"

// Sentinel errors for every fatal condition of a release run. All of them
// terminate the whole run; callers wrap them with repo/path context via
// fmt.Errorf("%w", ...) and tests match with errors.Is.
var (
	// ErrInvalidVersion rejects operator input that is not SemVer 2.0.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrMissingDirectory means a planned repo has no local checkout.
	ErrMissingDirectory = errors.New("repo directory not found")

	// ErrOriginMismatch means the origin remote does not reference the
	// expected owner/repo.
	ErrOriginMismatch = errors.New("origin remote does not match expected repository")

	// ErrFetchFailed wraps network/auth failures while refreshing remote refs.
	ErrFetchFailed = errors.New("fetch from origin failed")

	// ErrDirtyWorktree means uncommitted changes block the release.
	ErrDirtyWorktree = errors.New("worktree has uncommitted changes")

	// ErrDetachedHead means no branch is checked out.
	ErrDetachedHead = errors.New("detached HEAD state")

	// ErrBranchDiverged means local HEAD differs from the remote-tracking HEAD.
	ErrBranchDiverged = errors.New("branch not synced with origin")

	// ErrTagAlreadyReleased means the tag already exists on origin and the
	// run was not started with resume.
	ErrTagAlreadyReleased = errors.New("tag already released on origin")

	// ErrTagAlreadyExists means the tag exists locally or remotely in a
	// non-resume run.
	ErrTagAlreadyExists = errors.New("tag already exists")

	// ErrTagConflict means a pre-existing local tag does not point at HEAD.
	ErrTagConflict = errors.New("local tag does not point at HEAD")

	// ErrAssetWaitTimeout means expected release assets never stabilized
	// within the configured deadline.
	ErrAssetWaitTimeout = errors.New("timed out waiting for release assets")

	// ErrMissingToken means no release credential was found in the
	// environment and the run needs to poll release assets.
	ErrMissingToken = errors.New("missing GITHUB_TOKEN (or GH_TOKEN)")

	// ErrAuthFailed means the hosting service rejected the credential.
	ErrAuthFailed = errors.New("hosting service auth failed")
)
