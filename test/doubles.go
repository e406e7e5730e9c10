// Package testdoubles provides test doubles (spies, stubs, dummies) for
// domain interfaces. These are hand-crafted implementations — no mock
// frameworks.
package testdoubles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/truthdb/orchestrator/domain"
)

// ---------------------------------------------------------------------------
// SpyRepo
// ---------------------------------------------------------------------------

// SpyRepo implements domain.LocalRepo as a configurable spy. Configure the
// response fields for the checks your test exercises, then inspect the
// call-tracking fields to verify behavior.
type SpyRepo struct {
	// --- identity ---
	RepoName string
	RepoDir  string

	// --- preflight responses ---
	OriginURLValue  string
	OriginURLErr    error
	FetchErr        error
	Dirty           []string
	DirtyErr        error
	Branch          string
	BranchErr       error
	Head            string
	HeadErr         error
	RemoteHead      string
	RemoteHeadErr   error
	AheadCount      int
	BehindCount     int
	DivergenceErr   error
	LocalTagSha     string
	LocalTagExists  bool
	LocalTagErr     error
	RemoteTagSha    string
	RemoteTagExists bool
	RemoteTagErr    error

	// --- apply responses ---
	CreateTagErr error
	PushTagErr   error

	// spy: mutation and query tracking
	FetchCalls      int
	RemoteTagCalls  int
	CreatedTags     []string
	CreatedMessages []string
	PushedTags      []string
}

var _ domain.LocalRepo = (*SpyRepo)(nil)

func (r *SpyRepo) Name() string { return r.RepoName }

func (r *SpyRepo) Dir() string {
	if r.RepoDir != "" {
		return r.RepoDir
	}
	return "/repos/" + r.RepoName
}

func (r *SpyRepo) OriginURL() (string, error) {
	if r.OriginURLErr != nil {
		return "", r.OriginURLErr
	}
	if r.OriginURLValue != "" {
		return r.OriginURLValue, nil
	}
	return fmt.Sprintf("git@github.com:Truthdb/%s.git", r.RepoName), nil
}

func (r *SpyRepo) FetchOrigin(_ context.Context) error {
	r.FetchCalls++
	return r.FetchErr
}

func (r *SpyRepo) DirtyPaths() ([]string, error) {
	return r.Dirty, r.DirtyErr
}

func (r *SpyRepo) CurrentBranch() (string, error) {
	if r.BranchErr != nil {
		return "", r.BranchErr
	}
	if r.Branch != "" {
		return r.Branch, nil
	}
	return "main", nil
}

func (r *SpyRepo) HeadCommit() (string, error) {
	if r.HeadErr != nil {
		return "", r.HeadErr
	}
	if r.Head != "" {
		return r.Head, nil
	}
	return "aaaa1111", nil
}

func (r *SpyRepo) RemoteHeadCommit(_ string) (string, error) {
	if r.RemoteHeadErr != nil {
		return "", r.RemoteHeadErr
	}
	if r.RemoteHead != "" {
		return r.RemoteHead, nil
	}
	head, err := r.HeadCommit()
	return head, err
}

func (r *SpyRepo) Divergence(_ string) (int, int, error) {
	return r.AheadCount, r.BehindCount, r.DivergenceErr
}

func (r *SpyRepo) LocalTagCommit(_ string) (string, bool, error) {
	return r.LocalTagSha, r.LocalTagExists, r.LocalTagErr
}

func (r *SpyRepo) RemoteTagCommit(_ context.Context, _ string) (string, bool, error) {
	r.RemoteTagCalls++
	return r.RemoteTagSha, r.RemoteTagExists, r.RemoteTagErr
}

func (r *SpyRepo) CreateAnnotatedTag(tag, message string) error {
	if r.CreateTagErr != nil {
		return r.CreateTagErr
	}
	r.CreatedTags = append(r.CreatedTags, tag)
	r.CreatedMessages = append(r.CreatedMessages, message)
	r.LocalTagExists = true
	return nil
}

func (r *SpyRepo) PushTag(_ context.Context, tag string) error {
	if r.PushTagErr != nil {
		return r.PushTagErr
	}
	r.PushedTags = append(r.PushedTags, tag)
	return nil
}

// MutationCount returns how many mutating version-control calls happened.
func (r *SpyRepo) MutationCount() int {
	return len(r.CreatedTags) + len(r.PushedTags)
}

// ---------------------------------------------------------------------------
// SpyOpener
// ---------------------------------------------------------------------------

// SpyOpener implements domain.RepoOpener over a fixed set of SpyRepos.
type SpyOpener struct {
	Repos    map[string]*SpyRepo
	OpenErrs map[string]error
	// spy: names opened, in order
	Opened []string
}

var _ domain.RepoOpener = (*SpyOpener)(nil)

func (o *SpyOpener) Open(desc domain.RepoDescriptor) (domain.LocalRepo, error) {
	o.Opened = append(o.Opened, desc.Name)
	if err, ok := o.OpenErrs[desc.Name]; ok {
		return nil, err
	}
	repo, ok := o.Repos[desc.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingDirectory, desc.LocalPath)
	}
	return repo, nil
}

// ---------------------------------------------------------------------------
// StubHostingClient
// ---------------------------------------------------------------------------

// StubHostingClient implements domain.HostingClient with scripted
// responses. ReleaseScript entries are consumed one per ReleaseByTag call;
// the last entry repeats once the script is exhausted.
type StubHostingClient struct {
	ReleaseScript []*domain.ReleaseInfo
	ReleaseErr    error

	DefaultBranchValue string
	DefaultBranchErr   error

	WorkflowRunValue *domain.WorkflowRun
	WorkflowRunErr   error

	LatestTag    string
	LatestTagOK  bool
	LatestTagErr error

	AheadByValue int
	AheadByErr   error

	// spy: call tracking
	ReleaseCalls []string
	CompareCalls []string
}

var _ domain.HostingClient = (*StubHostingClient)(nil)

func (c *StubHostingClient) ReleaseByTag(_ context.Context, repo, tag string) (*domain.ReleaseInfo, error) {
	c.ReleaseCalls = append(c.ReleaseCalls, fmt.Sprintf("%s@%s", repo, tag))
	if c.ReleaseErr != nil {
		return nil, c.ReleaseErr
	}
	if len(c.ReleaseScript) == 0 {
		return nil, nil
	}
	idx := len(c.ReleaseCalls) - 1
	if idx >= len(c.ReleaseScript) {
		idx = len(c.ReleaseScript) - 1
	}
	return c.ReleaseScript[idx], nil
}

func (c *StubHostingClient) DefaultBranch(_ context.Context, _ string) (string, error) {
	if c.DefaultBranchErr != nil {
		return "", c.DefaultBranchErr
	}
	if c.DefaultBranchValue != "" {
		return c.DefaultBranchValue, nil
	}
	return "main", nil
}

func (c *StubHostingClient) LatestWorkflowRun(_ context.Context, _ string) (*domain.WorkflowRun, error) {
	return c.WorkflowRunValue, c.WorkflowRunErr
}

func (c *StubHostingClient) LatestReleaseTag(_ context.Context, _ string) (string, bool, error) {
	return c.LatestTag, c.LatestTagOK, c.LatestTagErr
}

func (c *StubHostingClient) CompareAheadBy(_ context.Context, repo, base, head string) (int, error) {
	c.CompareCalls = append(c.CompareCalls, fmt.Sprintf("%s:%s...%s", repo, base, head))
	return c.AheadByValue, c.AheadByErr
}

// ---------------------------------------------------------------------------
// RecordingReporter
// ---------------------------------------------------------------------------

// RecordingReporter implements domain.Reporter, capturing every event in
// emission order. Safe for concurrent use.
type RecordingReporter struct {
	mu     sync.Mutex
	Events []domain.ProgressEvent
}

var _ domain.Reporter = (*RecordingReporter)(nil)

func (r *RecordingReporter) record(ev domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

func (r *RecordingReporter) Step(title, body string) {
	r.record(domain.StepChanged{Title: title, Body: body})
}

func (r *RecordingReporter) Update(body string) {
	r.record(domain.BodyUpdated{Body: body})
}

func (r *RecordingReporter) Ok(msg string) {
	r.record(domain.MarkOk{Msg: msg})
}

func (r *RecordingReporter) Error(msg string) {
	r.record(domain.MarkError{Msg: msg})
}

func (r *RecordingReporter) Rows(rows []domain.RepoStatusRow) {
	r.record(domain.RepoRowsUpdated{Rows: rows})
}

func (r *RecordingReporter) Finish(ok bool) {
	r.record(domain.Finished{Ok: ok})
}

// Narration concatenates every textual event body, for asserting that a
// run mentioned something.
func (r *RecordingReporter) Narration() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out string
	for _, ev := range r.Events {
		switch e := ev.(type) {
		case domain.StepChanged:
			out += e.Title + "\n" + e.Body + "\n"
		case domain.BodyUpdated:
			out += e.Body + "\n"
		case domain.MarkOk:
			out += e.Msg + "\n"
		case domain.MarkError:
			out += e.Msg + "\n"
		}
	}
	return out
}

// RowSnapshots returns every published row set, in order.
func (r *RecordingReporter) RowSnapshots() [][]domain.RepoStatusRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out [][]domain.RepoStatusRow
	for _, ev := range r.Events {
		if rows, ok := ev.(domain.RepoRowsUpdated); ok {
			out = append(out, rows.Rows)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// FakeClock
// ---------------------------------------------------------------------------

// FakeClock drives time-dependent code without real sleeping: Sleep
// advances Now by the requested duration.
type FakeClock struct {
	Current time.Time
	Slept   []time.Duration
}

// NewFakeClock starts at an arbitrary fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	return c.Current
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.Slept = append(c.Slept, d)
	c.Current = c.Current.Add(d)
}
