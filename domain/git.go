package domain

import "context"

// LocalRepo is the version-control handle for one local checkout. All
// network operations (fetch, remote tag queries, pushes) take a context;
// purely local reads do not.
type LocalRepo interface {
	// Name returns the repository name from the release plan.
	Name() string

	// Dir returns the absolute path of the local checkout.
	Dir() string

	// OriginURL returns the URL of the origin remote.
	OriginURL() (string, error)

	// FetchOrigin refreshes remote-tracking branches and tags from origin.
	FetchOrigin(ctx context.Context) error

	// DirtyPaths lists paths with uncommitted changes; empty means clean.
	DirtyPaths() ([]string, error)

	// CurrentBranch returns the checked-out branch name, or ErrDetachedHead.
	CurrentBranch() (string, error)

	// HeadCommit resolves HEAD to a commit SHA.
	HeadCommit() (string, error)

	// RemoteHeadCommit resolves origin/<branch> to a commit SHA.
	RemoteHeadCommit(branch string) (string, error)

	// Divergence counts commits on HEAD not on origin/<branch> (ahead) and
	// commits on origin/<branch> not on HEAD (behind).
	Divergence(branch string) (ahead, behind int, err error)

	// LocalTagCommit resolves a local tag to the commit it ultimately
	// points at. ok is false when the tag does not exist.
	LocalTagCommit(tag string) (sha string, ok bool, err error)

	// RemoteTagCommit queries origin for a tag. ok is false when the tag
	// does not exist on the remote; errors indicate network/auth problems.
	RemoteTagCommit(ctx context.Context, tag string) (sha string, ok bool, err error)

	// CreateAnnotatedTag creates an annotated tag at HEAD.
	CreateAnnotatedTag(tag, message string) error

	// PushTag pushes a named tag to origin.
	PushTag(ctx context.Context, tag string) error
}

// RepoOpener opens the local checkout for a planned repository.
// ErrMissingDirectory is returned when the local path does not exist.
type RepoOpener interface {
	Open(desc RepoDescriptor) (LocalRepo, error)
}
