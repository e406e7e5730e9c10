package github //nolint:testpackage // exercises the unexported error mapping

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gh "github.com/google/go-github/v66/github"

	"github.com/truthdb/orchestrator/domain"
)

// newStubClient points a Client at a local HTTP stub.
func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient("Truthdb", "")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.gh.BaseURL = base
	return client
}

func responseWithStatus(code int) *gh.Response {
	return &gh.Response{Response: &http.Response{StatusCode: code}}
}

func TestTokenFromEnv(t *testing.T) {
	t.Run("should prefer GITHUB_TOKEN over GH_TOKEN", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_TOKEN", "first")
		t.Setenv("GH_TOKEN", "second")

		// then
		assert.Equal(t, "first", TokenFromEnv())
	})

	t.Run("should fall back to GH_TOKEN", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("GH_TOKEN", "fallback")

		// then
		assert.Equal(t, "fallback", TokenFromEnv())
	})

	t.Run("should return empty when neither is set", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("GH_TOKEN", "")

		// then
		assert.Empty(t, TokenFromEnv())
	})
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	t.Run("should map unauthorized and forbidden to the auth sentinel", func(t *testing.T) {
		t.Parallel()

		// given
		client := NewClient("Truthdb", "")

		for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
			// when
			err := client.apiError("truthdb", responseWithStatus(code), fmt.Errorf("denied"))

			// then
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAuthFailed)
			assert.Contains(t, err.Error(), "Truthdb/truthdb")
		}
	})

	t.Run("should keep other statuses as plain API errors", func(t *testing.T) {
		t.Parallel()

		// given
		client := NewClient("Truthdb", "")

		// when
		err := client.apiError("truthdb", responseWithStatus(http.StatusBadGateway), fmt.Errorf("bad gateway"))

		// then
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrAuthFailed)
		assert.Contains(t, err.Error(), "bad gateway")
	})
}

func TestReleaseByTag(t *testing.T) {
	t.Parallel()

	t.Run("should map assets with their sizes", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/Truthdb/truthdb/releases/tags/v1.2.3", r.URL.Path)
			fmt.Fprint(w, `{
				"tag_name": "v1.2.3",
				"assets": [
					{"name": "truthdb-v1.2.3-x86_64-linux-gnu.tar.gz", "size": 1048576},
					{"name": "truthdb-v1.2.3-x86_64-linux-gnu.sha256", "size": 64}
				]
			}`)
		})

		// when
		release, err := client.ReleaseByTag(t.Context(), "truthdb", "v1.2.3")

		// then
		require.NoError(t, err)
		require.NotNil(t, release)
		require.Len(t, release.Assets, 2)
		assert.Equal(t, domain.ReleaseAsset{
			Name: "truthdb-v1.2.3-x86_64-linux-gnu.tar.gz",
			Size: 1048576,
		}, release.Assets[0])
	})

	t.Run("should treat a missing release as absent, not an error", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
		})

		// when
		release, err := client.ReleaseByTag(t.Context(), "truthdb", "v9.9.9")

		// then
		require.NoError(t, err)
		assert.Nil(t, release)
	})
}

func TestLatestWorkflowRun(t *testing.T) {
	t.Parallel()

	t.Run("should return the most recent run", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("per_page"))
			fmt.Fprint(w, `{
				"total_count": 1,
				"workflow_runs": [{"status": "completed", "conclusion": "success"}]
			}`)
		})

		// when
		run, err := client.LatestWorkflowRun(t.Context(), "truthdb")

		// then
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, "completed", run.Status)
		assert.Equal(t, "success", run.Conclusion)
	})

	t.Run("should return nil when the repo has no runs", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"total_count": 0, "workflow_runs": []}`)
		})

		// when
		run, err := client.LatestWorkflowRun(t.Context(), "truthdb")

		// then
		require.NoError(t, err)
		assert.Nil(t, run)
	})
}

func TestLatestReleaseTag(t *testing.T) {
	t.Parallel()

	t.Run("should report ok with the tag name", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"tag_name": "v2.4.0"}`)
		})

		// when
		tag, ok, err := client.LatestReleaseTag(t.Context(), "truthdb")

		// then
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2.4.0", tag)
	})

	t.Run("should report not-ok for a repo without releases", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
		})

		// when
		tag, ok, err := client.LatestReleaseTag(t.Context(), "website")

		// then
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, tag)
	})
}

func TestCompareAheadBy(t *testing.T) {
	t.Parallel()

	t.Run("should return the ahead count", func(t *testing.T) {
		t.Parallel()

		// given
		client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/compare/v1.0.0...main")
			fmt.Fprint(w, `{"ahead_by": 5}`)
		})

		// when
		ahead, err := client.CompareAheadBy(t.Context(), "truthdb", "v1.0.0", "main")

		// then
		require.NoError(t, err)
		assert.Equal(t, 5, ahead)
	})
}
