// Package github implements the hosting client on the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"os"

	gh "github.com/google/go-github/v66/github"

	"github.com/truthdb/orchestrator/domain"
)

// tokenEnvVars are the recognized credential variables, first present wins.
var tokenEnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// TokenFromEnv reads the release credential from the environment. An empty
// result means unauthenticated requests.
func TokenFromEnv() string {
	for _, name := range tokenEnvVars {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// Client implements domain.HostingClient for one GitHub owner.
type Client struct {
	owner string
	gh    *gh.Client
}

var _ domain.HostingClient = (*Client)(nil)

// NewClient creates a client for the given owner. An empty token yields an
// unauthenticated client.
func NewClient(owner, token string) *Client {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Client{
		owner: owner,
		gh:    client,
	}
}

// apiError maps a response/error pair into the taxonomy: auth failures get
// a dedicated sentinel, everything else keeps go-github's status+body.
func (c *Client) apiError(repo string, resp *gh.Response, err error) error {
	if resp != nil &&
		(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return fmt.Errorf(
			"%w (status %d): set GITHUB_TOKEN/GH_TOKEN with access to %s/%s",
			domain.ErrAuthFailed, resp.StatusCode, c.owner, repo,
		)
	}
	return fmt.Errorf("GitHub API error for %s/%s: %w", c.owner, repo, err)
}

func notFound(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func (c *Client) ReleaseByTag(ctx context.Context, repo, tag string) (*domain.ReleaseInfo, error) {
	release, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, c.owner, repo, tag)
	if notFound(resp) {
		return nil, nil
	}
	if err != nil {
		return nil, c.apiError(repo, resp, err)
	}

	info := &domain.ReleaseInfo{
		Assets: make([]domain.ReleaseAsset, 0, len(release.Assets)),
	}
	for _, asset := range release.Assets {
		info.Assets = append(info.Assets, domain.ReleaseAsset{
			Name: asset.GetName(),
			Size: int64(asset.GetSize()),
		})
	}
	return info, nil
}

func (c *Client) DefaultBranch(ctx context.Context, repo string) (string, error) {
	repository, resp, err := c.gh.Repositories.Get(ctx, c.owner, repo)
	if err != nil {
		return "", c.apiError(repo, resp, err)
	}
	return repository.GetDefaultBranch(), nil
}

func (c *Client) LatestWorkflowRun(ctx context.Context, repo string) (*domain.WorkflowRun, error) {
	runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, c.owner, repo,
		&gh.ListWorkflowRunsOptions{
			ListOptions: gh.ListOptions{PerPage: 1},
		})
	if notFound(resp) {
		return nil, nil
	}
	if err != nil {
		return nil, c.apiError(repo, resp, err)
	}
	if len(runs.WorkflowRuns) == 0 {
		return nil, nil
	}

	run := runs.WorkflowRuns[0]
	return &domain.WorkflowRun{
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
	}, nil
}

func (c *Client) LatestReleaseTag(ctx context.Context, repo string) (string, bool, error) {
	release, resp, err := c.gh.Repositories.GetLatestRelease(ctx, c.owner, repo)
	if notFound(resp) {
		return "", false, nil
	}
	if err != nil {
		return "", false, c.apiError(repo, resp, err)
	}
	return release.GetTagName(), true, nil
}

func (c *Client) CompareAheadBy(ctx context.Context, repo, base, head string) (int, error) {
	comparison, resp, err := c.gh.Repositories.CompareCommits(ctx, c.owner, repo, base, head, nil)
	if notFound(resp) {
		return 0, fmt.Errorf("compare not available for %s/%s", c.owner, repo)
	}
	if err != nil {
		return 0, c.apiError(repo, resp, err)
	}
	return comparison.GetAheadBy(), nil
}
