// Package git implements the version-control handle on top of go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/truthdb/orchestrator/domain"
)

const originRemote = "origin"

// Opener opens local checkouts for planned repositories. The token is used
// for HTTPS remotes; SSH remotes fall back to go-git's agent-based auth.
type Opener struct {
	token string
}

var _ domain.RepoOpener = (*Opener)(nil)

// NewOpener creates an opener. An empty token means unauthenticated HTTPS.
func NewOpener(token string) *Opener {
	return &Opener{token: token}
}

// Open returns the handle for one planned repo, or ErrMissingDirectory
// when the local checkout does not exist.
func (o *Opener) Open(desc domain.RepoDescriptor) (domain.LocalRepo, error) {
	info, err := os.Stat(desc.LocalPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingDirectory, desc.LocalPath)
	}

	repo, err := gogit.PlainOpen(desc.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", desc.LocalPath, err)
	}

	return &Repo{
		name:  desc.Name,
		dir:   desc.LocalPath,
		repo:  repo,
		token: o.token,
	}, nil
}

// Repo is the go-git-backed implementation of domain.LocalRepo.
type Repo struct {
	name  string
	dir   string
	repo  *gogit.Repository
	token string
}

var _ domain.LocalRepo = (*Repo)(nil)

func (r *Repo) Name() string { return r.name }
func (r *Repo) Dir() string  { return r.dir }

// auth returns the auth method for network operations against origin.
// Token auth only applies to HTTPS remotes; for SSH, go-git negotiates
// with the agent when Auth is nil.
func (r *Repo) auth() transport.AuthMethod {
	if r.token == "" {
		return nil
	}
	url, err := r.OriginURL()
	if err != nil || !strings.HasPrefix(url, "http") {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: r.token,
	}
}

func (r *Repo) OriginURL() (string, error) {
	remote, err := r.repo.Remote(originRemote)
	if err != nil {
		return "", fmt.Errorf("no origin remote in %s: %w", r.dir, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote in %s has no URL", r.dir)
	}
	return urls[0], nil
}

func (r *Repo) FetchOrigin(ctx context.Context) error {
	err := r.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: originRemote,
		Tags:       gogit.AllTags,
		Auth:       r.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

func (r *Repo) DirtyPaths() ([]string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, err
	}

	var dirty []string
	for path, fileStatus := range status {
		if fileStatus.Worktree != gogit.Unmodified || fileStatus.Staging != gogit.Unmodified {
			dirty = append(dirty, path)
		}
	}
	sort.Strings(dirty)
	return dirty, nil
}

func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("%w: check out a branch first", domain.ErrDetachedHead)
	}
	return head.Name().Short(), nil
}

func (r *Repo) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func (r *Repo) RemoteHeadCommit(branch string) (string, error) {
	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(originRemote, branch), true)
	if err != nil {
		return "", fmt.Errorf("failed to resolve origin/%s: %w", branch, err)
	}
	return ref.Hash().String(), nil
}

// Divergence counts commits present on only one side of HEAD vs
// origin/<branch>, equivalent to `git rev-list --left-right --count`.
func (r *Repo) Divergence(branch string) (int, int, error) {
	head, err := r.repo.Head()
	if err != nil {
		return 0, 0, err
	}
	local, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return 0, 0, err
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(originRemote, branch), true)
	if err != nil {
		return 0, 0, err
	}
	remote, err := r.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return 0, 0, err
	}

	ahead, err := countExclusiveCommits(local, remote)
	if err != nil {
		return 0, 0, err
	}
	behind, err := countExclusiveCommits(remote, local)
	if err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// countExclusiveCommits counts commits reachable from `from` but not from
// `other`.
func countExclusiveCommits(from, other *object.Commit) (int, error) {
	reachable := make(map[plumbing.Hash]bool)
	otherIter := object.NewCommitPreorderIter(other, nil, nil)
	err := otherIter.ForEach(func(c *object.Commit) error {
		reachable[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	fromIter := object.NewCommitPreorderIter(from, reachable, nil)
	err = fromIter.ForEach(func(_ *object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LocalTagCommit resolves a tag to the commit it ultimately points at,
// peeling annotated tags.
func (r *Repo) LocalTagCommit(tag string) (string, bool, error) {
	ref, err := r.repo.Tag(tag)
	if errors.Is(err, gogit.ErrTagNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if tagObj, objErr := r.repo.TagObject(ref.Hash()); objErr == nil {
		commit, commitErr := tagObj.Commit()
		if commitErr != nil {
			return "", false, fmt.Errorf("failed to peel tag %s: %w", tag, commitErr)
		}
		return commit.Hash.String(), true, nil
	}

	return ref.Hash().String(), true, nil
}

// RemoteTagCommit lists origin's advertised refs and looks the tag up,
// preferring the peeled ref when the remote advertises one. Absence is
// not an error; listing failures (network/auth) are.
func (r *Repo) RemoteTagCommit(ctx context.Context, tag string) (string, bool, error) {
	remote, err := r.repo.Remote(originRemote)
	if err != nil {
		return "", false, err
	}

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: r.auth()})
	if err != nil {
		return "", false, fmt.Errorf("ls-remote against origin failed: %w", err)
	}

	tagRef := plumbing.NewTagReferenceName(tag).String()
	peeledRef := tagRef + "^{}"

	var sha string
	for _, ref := range refs {
		switch ref.Name().String() {
		case peeledRef:
			return ref.Hash().String(), true, nil
		case tagRef:
			sha = ref.Hash().String()
		}
	}

	if sha == "" {
		return "", false, nil
	}
	return sha, true, nil
}

func (r *Repo) CreateAnnotatedTag(tag, message string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	_, err = r.repo.CreateTag(tag, head.Hash(), &gogit.CreateTagOptions{
		Message: message,
		Tagger: &object.Signature{
			Name:  "truthdb-orchestrator",
			Email: "release@truthdb.dev",
			When:  time.Now(),
		},
	})
	return err
}

func (r *Repo) PushTag(ctx context.Context, tag string) error {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag))
	err := r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: originRemote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       r.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}
