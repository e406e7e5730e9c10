package git //nolint:testpackage // builds Repo handles over throwaway checkouts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthdb/orchestrator/domain"
)

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, contents, message string) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)

	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@truthdb.dev",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash
}

func addOrigin(t *testing.T, repo *gogit.Repository, url string) {
	t.Helper()

	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	require.NoError(t, err)
}

func setRemoteBranch(t *testing.T, repo *gogit.Repository, branch string, hash plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", branch), hash)
	require.NoError(t, repo.Storer.SetReference(ref))
}

func openHandle(t *testing.T, dir string) domain.LocalRepo {
	t.Helper()

	handle, err := NewOpener("").Open(domain.RepoDescriptor{
		Name:      "truthdb",
		LocalPath: dir,
		Owner:     "Truthdb",
	})
	require.NoError(t, err)
	return handle
}

func TestOpener_Open(t *testing.T) {
	t.Parallel()

	t.Run("should fail on a missing directory", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := NewOpener("").Open(domain.RepoDescriptor{
			Name:      "truthdb",
			LocalPath: filepath.Join(t.TempDir(), "nope"),
		})

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMissingDirectory)
	})

	t.Run("should fail on a directory that is not a repository", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := NewOpener("").Open(domain.RepoDescriptor{
			Name:      "truthdb",
			LocalPath: t.TempDir(),
		})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open repository")
	})

	t.Run("should open an initialized checkout", func(t *testing.T) {
		t.Parallel()

		// given
		dir, _ := initRepo(t)

		// when
		handle := openHandle(t, dir)

		// then
		assert.Equal(t, "truthdb", handle.Name())
		assert.Equal(t, dir, handle.Dir())
	})
}

func TestRepo_OriginURL(t *testing.T) {
	t.Parallel()

	t.Run("should return the configured origin URL", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		addOrigin(t, repo, "git@github.com:Truthdb/truthdb.git")

		// when
		url, err := openHandle(t, dir).OriginURL()

		// then
		require.NoError(t, err)
		assert.Equal(t, "git@github.com:Truthdb/truthdb.git", url)
	})

	t.Run("should fail without an origin remote", func(t *testing.T) {
		t.Parallel()

		// given
		dir, _ := initRepo(t)

		// when
		_, err := openHandle(t, dir).OriginURL()

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no origin remote")
	})
}

func TestRepo_DirtyPaths(t *testing.T) {
	t.Parallel()

	t.Run("should be empty for a clean worktree", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")

		// when
		dirty, err := openHandle(t, dir).DirtyPaths()

		// then
		require.NoError(t, err)
		assert.Empty(t, dirty)
	})

	t.Run("should list untracked and modified files sorted", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("new"), 0o600))

		// when
		dirty, err := openHandle(t, dir).DirtyPaths()

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md", "untracked.txt"}, dirty)
	})
}

func TestRepo_Branches(t *testing.T) {
	t.Parallel()

	t.Run("should return the checked out branch", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")

		// when
		branch, err := openHandle(t, dir).CurrentBranch()

		// then
		require.NoError(t, err)
		assert.Equal(t, "master", branch)
	})

	t.Run("should detect a detached HEAD", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		hash := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		worktree, err := repo.Worktree()
		require.NoError(t, err)
		require.NoError(t, worktree.Checkout(&gogit.CheckoutOptions{Hash: hash}))

		// when
		_, err = openHandle(t, dir).CurrentBranch()

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDetachedHead)
	})

	t.Run("should resolve local and remote branch heads", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		hash := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		setRemoteBranch(t, repo, "master", hash)
		handle := openHandle(t, dir)

		// when
		local, localErr := handle.HeadCommit()
		remote, remoteErr := handle.RemoteHeadCommit("master")

		// then
		require.NoError(t, localErr)
		require.NoError(t, remoteErr)
		assert.Equal(t, hash.String(), local)
		assert.Equal(t, local, remote)
	})
}

func TestRepo_Divergence(t *testing.T) {
	t.Parallel()

	t.Run("should be zero-zero when synced", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		hash := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		setRemoteBranch(t, repo, "master", hash)

		// when
		ahead, behind, err := openHandle(t, dir).Divergence("master")

		// then
		require.NoError(t, err)
		assert.Zero(t, ahead)
		assert.Zero(t, behind)
	})

	t.Run("should count local-only commits as ahead", func(t *testing.T) {
		t.Parallel()

		// given a remote ref frozen two commits back
		dir, repo := initRepo(t)
		base := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		setRemoteBranch(t, repo, "master", base)
		commitFile(t, repo, dir, "a.txt", "a", "second commit")
		commitFile(t, repo, dir, "b.txt", "b", "third commit")

		// when
		ahead, behind, err := openHandle(t, dir).Divergence("master")

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, ahead)
		assert.Zero(t, behind)
	})
}

func TestRepo_Tags(t *testing.T) {
	t.Parallel()

	t.Run("should report an absent tag without error", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")

		// when
		sha, exists, err := openHandle(t, dir).LocalTagCommit("v1.2.3")

		// then
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Empty(t, sha)
	})

	t.Run("should create an annotated tag and peel it back to the commit", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		hash := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		handle := openHandle(t, dir)

		// when
		require.NoError(t, handle.CreateAnnotatedTag("v1.2.3", "Release v1.2.3"))
		sha, exists, err := handle.LocalTagCommit("v1.2.3")

		// then
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, hash.String(), sha)

		// and the tag object carries the message
		ref, refErr := repo.Tag("v1.2.3")
		require.NoError(t, refErr)
		tagObj, objErr := repo.TagObject(ref.Hash())
		require.NoError(t, objErr)
		assert.Equal(t, "Release v1.2.3", tagObj.Message)
	})

	t.Run("should resolve a lightweight tag to its commit", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		hash := commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		_, err := repo.CreateTag("v0.1.0", hash, nil)
		require.NoError(t, err)

		// when
		sha, exists, tagErr := openHandle(t, dir).LocalTagCommit("v0.1.0")

		// then
		require.NoError(t, tagErr)
		assert.True(t, exists)
		assert.Equal(t, hash.String(), sha)
	})

	t.Run("should refuse to create the same tag twice", func(t *testing.T) {
		t.Parallel()

		// given
		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		handle := openHandle(t, dir)
		require.NoError(t, handle.CreateAnnotatedTag("v1.2.3", "Release v1.2.3"))

		// when
		err := handle.CreateAnnotatedTag("v1.2.3", "Release v1.2.3")

		// then
		require.Error(t, err)
	})
}

func TestRepo_RemoteTagCommit(t *testing.T) {
	t.Parallel()

	t.Run("should find a tag advertised by a local origin", func(t *testing.T) {
		t.Parallel()

		// given a bare "origin" with one tagged commit
		originDir, origin := initRepo(t)
		hash := commitFile(t, origin, originDir, "README.md", "hello", "initial commit")
		_, err := origin.CreateTag("v1.2.3", hash, nil)
		require.NoError(t, err)

		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		addOrigin(t, repo, originDir)

		// when
		sha, exists, tagErr := openHandle(t, dir).RemoteTagCommit(t.Context(), "v1.2.3")

		// then
		require.NoError(t, tagErr)
		assert.True(t, exists)
		assert.Equal(t, hash.String(), sha)
	})

	t.Run("should report absence for an untagged origin", func(t *testing.T) {
		t.Parallel()

		// given
		originDir, origin := initRepo(t)
		commitFile(t, origin, originDir, "README.md", "hello", "initial commit")

		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		addOrigin(t, repo, originDir)

		// when
		_, exists, err := openHandle(t, dir).RemoteTagCommit(t.Context(), "v1.2.3")

		// then
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestRepo_PushTag(t *testing.T) {
	t.Parallel()

	t.Run("should push a tag to a local origin", func(t *testing.T) {
		t.Parallel()

		// given a bare origin and a clone-like checkout
		originDir := t.TempDir()
		_, err := gogit.PlainInit(originDir, true)
		require.NoError(t, err)

		dir, repo := initRepo(t)
		commitFile(t, repo, dir, "README.md", "hello", "initial commit")
		addOrigin(t, repo, originDir)

		handle := openHandle(t, dir)
		require.NoError(t, handle.CreateAnnotatedTag("v1.2.3", "Release v1.2.3"))

		// when
		require.NoError(t, handle.PushTag(t.Context(), "v1.2.3"))

		// then origin advertises the tag
		sha, exists, tagErr := handle.RemoteTagCommit(t.Context(), "v1.2.3")
		require.NoError(t, tagErr)
		assert.True(t, exists)
		assert.NotEmpty(t, sha)

		// and pushing again is a no-op, not an error
		require.NoError(t, handle.PushTag(t.Context(), "v1.2.3"))
	})
}
