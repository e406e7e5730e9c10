package application

import (
	"context"
	"fmt"
	"time"

	"github.com/truthdb/orchestrator/domain"
)

// shutdownSlice bounds how long a stop request can go unnoticed while the
// monitor sleeps between passes.
const shutdownSlice = 200 * time.Millisecond

// MonitorService is the continuous read-only status loop over a fixed repo
// list. Each pass fills the rows one repo at a time, publishing after every
// repo so progress is visible instead of an opaque full-table stall.
type MonitorService struct {
	hosting  domain.HostingClient
	reporter domain.Reporter

	sleep func(time.Duration)
}

// NewMonitorService creates a monitor using the wall clock.
func NewMonitorService(hosting domain.HostingClient, reporter domain.Reporter) *MonitorService {
	return &MonitorService{
		hosting:  hosting,
		reporter: reporter,
		sleep:    time.Sleep,
	}
}

// MonitorOptions holds the static fleet and poll cadence.
type MonitorOptions struct {
	Owner        string
	Repos        []string
	PollInterval time.Duration
	HasToken     bool
}

// Run polls until ctx is cancelled. Cancellation is observed between
// repos and in small sleep slices, never mid-call.
func (s *MonitorService) Run(ctx context.Context, opts MonitorOptions) error {
	s.reporter.Step(
		"Monitor",
		fmt.Sprintf(
			"owner=%s\nrepos=%d\nrefresh=%s",
			opts.Owner, len(opts.Repos), opts.PollInterval,
		),
	)

	if !opts.HasToken {
		s.reporter.Error(
			"Missing GITHUB_TOKEN (or GH_TOKEN). Repo status will likely be rate-limited/unauthenticated.",
		)
	} else {
		s.reporter.Ok("OK")
	}

	// Initial paint: list all repos immediately with a loading indicator,
	// then fill them in.
	rows := placeholderRows(opts.Repos)
	s.publishRows(rows)
	if err := s.refreshRows(ctx, opts, rows, true); err != nil {
		s.reporter.Error(fmt.Sprintf("Monitor refresh failed: %v", err))
	}

	for {
		if stopped := s.sleepInterruptibly(ctx, opts.PollInterval); stopped {
			return nil
		}

		if err := s.refreshRows(ctx, opts, rows, false); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.reporter.Error(fmt.Sprintf("Monitor refresh failed: %v", err))
			continue
		}

		if opts.HasToken {
			s.reporter.Ok("OK")
		}
	}
}

// sleepInterruptibly sleeps in small fixed slices, checking for
// cancellation at each slice. Returns true when the context was cancelled.
func (s *MonitorService) sleepInterruptibly(ctx context.Context, total time.Duration) bool {
	var slept time.Duration
	for slept < total {
		if ctx.Err() != nil {
			return true
		}
		s.sleep(shutdownSlice)
		slept += shutdownSlice
	}
	return ctx.Err() != nil
}

func placeholderRows(repos []string) []domain.RepoStatusRow {
	rows := make([]domain.RepoStatusRow, 0, len(repos))
	for _, name := range repos {
		rows = append(rows, domain.RepoStatusRow{
			Name:    name,
			CI:      domain.CIUnknown,
			Loading: true,
		})
	}
	return rows
}

// refreshRows updates the rows in place, one repo at a time, publishing
// the row set after each repo finishes. Existing values stay visible
// between refreshes.
func (s *MonitorService) refreshRows(
	ctx context.Context,
	opts MonitorOptions,
	rows []domain.RepoStatusRow,
	showLoading bool,
) error {
	if showLoading {
		for i := range rows {
			rows[i].Loading = true
		}
		s.publishRows(rows)
	}

	for i := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rows[i].Loading = showLoading
		s.fillRow(ctx, opts, &rows[i])
		rows[i].Loading = false

		s.publishRows(rows)
	}

	return nil
}

func (s *MonitorService) fillRow(ctx context.Context, opts MonitorOptions, row *domain.RepoStatusRow) {
	defaultBranch, err := s.hosting.DefaultBranch(ctx, row.Name)
	if err != nil {
		defaultBranch = "main"
	}

	row.CI = s.latestCIState(ctx, row.Name)

	row.LatestRelease = ""
	if tag, ok, tagErr := s.hosting.LatestReleaseTag(ctx, row.Name); tagErr == nil && ok {
		row.LatestRelease = tag
	}

	row.AheadKnown = false
	row.AheadBy = 0
	if row.LatestRelease != "" {
		if ahead, cmpErr := s.hosting.CompareAheadBy(ctx, row.Name, row.LatestRelease, defaultBranch); cmpErr == nil {
			row.AheadBy = ahead
			row.AheadKnown = true
		}
	}
}

func (s *MonitorService) latestCIState(ctx context.Context, repo string) domain.CIState {
	run, err := s.hosting.LatestWorkflowRun(ctx, repo)
	if err != nil || run == nil {
		return domain.CIUnknown
	}

	if run.Status != "completed" {
		return domain.CIRunning
	}

	switch run.Conclusion {
	case "success":
		return domain.CISuccess
	case "failure", "cancelled", "timed_out":
		return domain.CIFailure
	default:
		return domain.CIUnknown
	}
}

// publishRows hands the presentation layer its own copy of the row set.
func (s *MonitorService) publishRows(rows []domain.RepoStatusRow) {
	snapshot := make([]domain.RepoStatusRow, len(rows))
	copy(snapshot, rows)
	s.reporter.Rows(snapshot)
}
