package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/truthdb/orchestrator/domain"
)

// tagMessageTemplate is the annotated tag message, e.g. "Release v1.2.3".
const tagMessageTemplate = "Release %s"

// AssetWaiterContract blocks until a repo's release assets are present and
// stable, or the deadline passes.
type AssetWaiterContract interface {
	Wait(ctx context.Context, repo, tag string, expected []string, pollInterval, timeout time.Duration) error
}

// ReleaseService drives the ordered release plan through the two-phase
// preflight/apply protocol. It is strictly sequential across repos: later
// repos' CI depends on earlier repos' tags being visible.
type ReleaseService struct {
	opener   domain.RepoOpener
	waiter   AssetWaiterContract
	reporter domain.Reporter
}

// NewReleaseService creates a release service. waiter may be nil when the
// run cannot poll assets (dry run, or no credential); the service fails
// before mutating anything if assets would have to be polled without one.
func NewReleaseService(
	opener domain.RepoOpener,
	waiter AssetWaiterContract,
	reporter domain.Reporter,
) *ReleaseService {
	return &ReleaseService{
		opener:   opener,
		waiter:   waiter,
		reporter: reporter,
	}
}

// ReleaseOptions holds everything one release run needs.
type ReleaseOptions struct {
	Version      domain.ReleaseVersion
	Plan         []domain.RepoDescriptor
	Assets       domain.AssetTable
	DryRun       bool
	Resume       bool
	PollInterval time.Duration
	Timeout      time.Duration
}

// Run executes preflight for every repo in declared order, then apply in
// the same order. Preflight runs to completion over all repos before apply
// starts for any: a failure on repo k guarantees zero mutation across the
// whole run. Every error is terminal; already-pushed tags from earlier
// repos in the same run stay pushed, and re-running with resume is the
// recovery path.
func (s *ReleaseService) Run(ctx context.Context, opts ReleaseOptions) error {
	repos := make([]domain.LocalRepo, 0, len(opts.Plan))
	snapshots := make(map[string]domain.PreflightSnapshot, len(opts.Plan))

	for _, desc := range opts.Plan {
		s.reporter.Step(
			fmt.Sprintf("Preflight %s", desc.Name),
			fmt.Sprintf("dir=%s\ntag=%s", desc.LocalPath, opts.Version.Tag),
		)

		repo, snapshot, err := s.preflightRepo(ctx, desc, opts)
		if err != nil {
			s.reporter.Error(err.Error())
			return err
		}

		repos = append(repos, repo)
		snapshots[desc.Name] = snapshot
	}

	if err := s.ensureWaiterAvailable(opts); err != nil {
		s.reporter.Error(err.Error())
		return err
	}

	for _, repo := range repos {
		snapshot := snapshots[repo.Name()]
		if err := s.applyRepo(ctx, repo, snapshot, opts); err != nil {
			s.reporter.Error(err.Error())
			return err
		}
	}

	s.reporter.Step(
		"Release complete",
		fmt.Sprintf("All repos released for %s.", opts.Version.Tag),
	)
	s.reporter.Ok(fmt.Sprintf("Release %s complete", opts.Version.Tag))
	return nil
}

// preflightRepo runs the read-only safety checks for one repo and captures
// the snapshot consulted later during apply. The snapshot is never
// re-queried: a concurrent actor tagging the repo between phases is
// documented behavior.
func (s *ReleaseService) preflightRepo(
	ctx context.Context,
	desc domain.RepoDescriptor,
	opts ReleaseOptions,
) (domain.LocalRepo, domain.PreflightSnapshot, error) {
	var snapshot domain.PreflightSnapshot

	repo, err := s.opener.Open(desc)
	if err != nil {
		return nil, snapshot, err
	}

	if originErr := s.ensureOriginMatches(repo, desc); originErr != nil {
		return nil, snapshot, originErr
	}

	// Always fetch so remote tag and branch comparisons are reliable.
	s.reporter.Update(fmt.Sprintf("[%s] fetching origin...", desc.Name))
	if fetchErr := repo.FetchOrigin(ctx); fetchErr != nil {
		return nil, snapshot, fmt.Errorf(
			"%w: %s: %w", domain.ErrFetchFailed, desc.Name, fetchErr,
		)
	}

	_, remoteTagged, tagErr := repo.RemoteTagCommit(ctx, opts.Version.Tag)
	if tagErr != nil {
		return nil, snapshot, fmt.Errorf(
			"%s: failed to query remote tag %s: %w",
			desc.Name, opts.Version.Tag, tagErr,
		)
	}
	snapshot.AlreadyTaggedRemotely = remoteTagged

	if remoteTagged {
		if opts.Resume {
			// Tag already on origin; don't block resume on local state.
			s.reporter.Update(fmt.Sprintf(
				"[%s] %s already on origin; will skip tagging",
				desc.Name, opts.Version.Tag,
			))
			return repo, snapshot, nil
		}
		return nil, snapshot, fmt.Errorf(
			"%w: %s already has %s on origin. Re-run with --resume to continue",
			domain.ErrTagAlreadyReleased, desc.Name, opts.Version.Tag,
		)
	}

	if cleanErr := s.ensureWorktreeClean(repo); cleanErr != nil {
		return nil, snapshot, cleanErr
	}

	if syncErr := s.ensureOnBranchAndSynced(repo); syncErr != nil {
		return nil, snapshot, syncErr
	}

	if localErr := s.checkLocalTag(repo, opts); localErr != nil {
		return nil, snapshot, localErr
	}

	return repo, snapshot, nil
}

func (s *ReleaseService) ensureOriginMatches(repo domain.LocalRepo, desc domain.RepoDescriptor) error {
	url, err := repo.OriginURL()
	if err != nil {
		return fmt.Errorf("%s: failed to read origin URL: %w", desc.Name, err)
	}

	// Accept both SSH and HTTPS; just sanity-check that owner/repo appear.
	needle := strings.ToLower(desc.Owner + "/" + desc.Name)
	if !strings.Contains(strings.ToLower(url), needle) {
		return fmt.Errorf(
			"%w: %s origin doesn't look like %s/%s (got %q); refusing to push tags",
			domain.ErrOriginMismatch, repo.Dir(), desc.Owner, desc.Name, url,
		)
	}
	return nil
}

func (s *ReleaseService) ensureWorktreeClean(repo domain.LocalRepo) error {
	dirty, err := repo.DirtyPaths()
	if err != nil {
		return fmt.Errorf("%s: failed to read worktree status: %w", repo.Name(), err)
	}
	if len(dirty) > 0 {
		return fmt.Errorf(
			"%w: %s:\n  %s\nCommit/stash them before releasing",
			domain.ErrDirtyWorktree, repo.Dir(), strings.Join(dirty, "\n  "),
		)
	}
	return nil
}

func (s *ReleaseService) ensureOnBranchAndSynced(repo domain.LocalRepo) error {
	branch, err := repo.CurrentBranch()
	if err != nil {
		return fmt.Errorf("%s: %w", repo.Dir(), err)
	}

	localHead, err := repo.HeadCommit()
	if err != nil {
		return fmt.Errorf("%s: failed to resolve HEAD: %w", repo.Name(), err)
	}

	remoteHead, err := repo.RemoteHeadCommit(branch)
	if err != nil {
		return fmt.Errorf(
			"%s: failed to resolve origin/%s: %w", repo.Name(), branch, err,
		)
	}

	if localHead != remoteHead {
		ahead, behind, divErr := repo.Divergence(branch)
		if divErr != nil {
			ahead, behind = -1, -1
		}
		return fmt.Errorf(
			"%w: %s is not synced with origin/%s (local %s, remote %s, ahead %d, behind %d). "+
				"Pull / fast-forward the branch before tagging",
			domain.ErrBranchDiverged, repo.Dir(), branch, localHead, remoteHead, ahead, behind,
		)
	}

	return nil
}

func (s *ReleaseService) checkLocalTag(repo domain.LocalRepo, opts ReleaseOptions) error {
	tagSha, exists, err := repo.LocalTagCommit(opts.Version.Tag)
	if err != nil {
		return fmt.Errorf("%s: failed to resolve local tag: %w", repo.Name(), err)
	}

	if !opts.Resume {
		// Remote absence was already established via the snapshot query.
		if exists {
			return fmt.Errorf(
				"%w: %s already has local tag %s",
				domain.ErrTagAlreadyExists, repo.Dir(), opts.Version.Tag,
			)
		}
		return nil
	}

	// In resume mode a pre-existing local tag is allowed only if it points
	// at the commit we would tag now.
	if exists {
		head, headErr := repo.HeadCommit()
		if headErr != nil {
			return fmt.Errorf("%s: failed to resolve HEAD: %w", repo.Name(), headErr)
		}
		if tagSha != head {
			return fmt.Errorf(
				"%w: %s has local tag %s at %s but HEAD is %s; delete/fix the tag or pick a new version",
				domain.ErrTagConflict, repo.Dir(), opts.Version.Tag, tagSha, head,
			)
		}
	}

	return nil
}

// ensureWaiterAvailable fails the run after preflight, before any
// mutation, when assets would have to be polled without a credential.
func (s *ReleaseService) ensureWaiterAvailable(opts ReleaseOptions) error {
	if opts.DryRun || s.waiter != nil {
		return nil
	}

	for _, desc := range opts.Plan {
		if len(opts.Assets.ExpectedFor(desc.Name, opts.Version.Version)) > 0 {
			return fmt.Errorf(
				"%w: required to poll release assets after tagging", domain.ErrMissingToken,
			)
		}
	}
	return nil
}

func (s *ReleaseService) applyRepo(
	ctx context.Context,
	repo domain.LocalRepo,
	snapshot domain.PreflightSnapshot,
	opts ReleaseOptions,
) error {
	tag := opts.Version.Tag
	s.reporter.Step(
		fmt.Sprintf("Tagging %s", repo.Name()),
		fmt.Sprintf("tag=%s", tag),
	)

	switch {
	case opts.DryRun && snapshot.AlreadyTaggedRemotely:
		s.reporter.Update(fmt.Sprintf(
			"[%s] (dry-run) tag already on origin; would skip tagging", repo.Name(),
		))
	case opts.DryRun:
		s.reporter.Update(fmt.Sprintf(
			"[%s] (dry-run) would create annotated tag %s and push", repo.Name(), tag,
		))
	case snapshot.AlreadyTaggedRemotely:
		s.reporter.Update(fmt.Sprintf(
			"[%s] tag already exists on origin; skipping create/push", repo.Name(),
		))
	default:
		// The tag may already exist locally in a resume run, or another
		// actor may have created it between phases; only create when absent.
		_, exists, err := repo.LocalTagCommit(tag)
		if err != nil {
			return fmt.Errorf("%s: failed to resolve local tag: %w", repo.Name(), err)
		}
		if !exists {
			if createErr := repo.CreateAnnotatedTag(tag, fmt.Sprintf(tagMessageTemplate, tag)); createErr != nil {
				return fmt.Errorf("%s: failed to create tag %s: %w", repo.Name(), tag, createErr)
			}
		}
		if pushErr := repo.PushTag(ctx, tag); pushErr != nil {
			return fmt.Errorf("%s: failed to push tag %s: %w", repo.Name(), tag, pushErr)
		}
		s.reporter.Ok(fmt.Sprintf("[%s] pushed %s", repo.Name(), tag))
	}

	expected := opts.Assets.ExpectedFor(repo.Name(), opts.Version.Version)
	if len(expected) == 0 {
		return nil
	}

	if opts.DryRun {
		s.reporter.Update(fmt.Sprintf(
			"[%s] (dry-run) would wait for assets: %s",
			repo.Name(), strings.Join(expected, ", "),
		))
		return nil
	}

	s.reporter.Update(fmt.Sprintf(
		"[%s] waiting for release assets: %s", repo.Name(), strings.Join(expected, ", "),
	))
	if err := s.waiter.Wait(ctx, repo.Name(), tag, expected, opts.PollInterval, opts.Timeout); err != nil {
		return fmt.Errorf("waiting for %s assets: %w", repo.Name(), err)
	}
	s.reporter.Ok(fmt.Sprintf("[%s] assets ready for %s", repo.Name(), tag))

	return nil
}
