package domain

// ReleaseVersion is the normalized release identity. Tag is always
// "v" + Version; both are immutable once parsed from operator input.
type ReleaseVersion struct {
	Tag     string
	Version string
}

// RepoDescriptor identifies one repository in the release plan. The plan is
// an ordered table: OrderIndex reflects the build dependency chain, and the
// orchestrator never mutates repo k+1 before repo k completed its phase.
type RepoDescriptor struct {
	Name       string
	LocalPath  string
	Owner      string
	OrderIndex int
}

// PreflightSnapshot is the per-repo state captured during preflight and
// consulted, unverified, during apply. A concurrent actor tagging the repo
// between phases is documented behavior, not re-checked.
type PreflightSnapshot struct {
	AlreadyTaggedRemotely bool
}

// ReleaseAsset is one artifact attached to a hosted release.
type ReleaseAsset struct {
	Name string
	Size int64
}

// ReleaseInfo is a hosted release as seen by the asset poller.
type ReleaseInfo struct {
	Assets []ReleaseAsset
}

// WorkflowRun is the most recent CI run for a repository.
type WorkflowRun struct {
	Status     string
	Conclusion string
}

// CIState classifies the latest CI run of a repository.
type CIState string

const (
	CISuccess CIState = "success"
	CIFailure CIState = "failure"
	CIRunning CIState = "running"
	CIUnknown CIState = "unknown"
)

// RepoStatusRow is one row of the fleet monitor table, refreshed in place
// on every poll pass.
type RepoStatusRow struct {
	Name          string
	CI            CIState
	LatestRelease string // empty when no release has been published
	AheadBy       int
	AheadKnown    bool
	Loading       bool
}
