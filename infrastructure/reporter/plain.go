// Package reporter provides the two narration sinks: line-oriented text
// through logrus, and the event channel feeding the live dashboard.
package reporter

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/truthdb/orchestrator/domain"
)

// Plain narrates through logrus for non-interactive runs and for worker
// errors surfaced after the dashboard has closed.
type Plain struct{}

var _ domain.Reporter = (*Plain)(nil)

// NewPlain creates a plain text reporter.
func NewPlain() *Plain {
	return &Plain{}
}

func (*Plain) Step(title, body string) {
	logger.Infof("==> %s", title)
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			logger.Info(line)
		}
	}
}

func (*Plain) Update(body string) {
	if strings.TrimSpace(body) != "" {
		logger.Info(body)
	}
}

func (*Plain) Ok(msg string) {
	if strings.TrimSpace(msg) == "" {
		logger.Info("OK")
		return
	}
	logger.Infof("OK: %s", msg)
}

func (*Plain) Error(msg string) {
	logger.Errorf("ERROR: %s", msg)
}

func (*Plain) Rows(rows []domain.RepoStatusRow) {
	for _, row := range rows {
		if row.Loading {
			continue
		}
		ahead := "-"
		if row.AheadKnown {
			ahead = fmt.Sprintf("+%d", row.AheadBy)
		}
		release := row.LatestRelease
		if release == "" {
			release = "-"
		}
		logger.Debugf("%-32s ci=%-8s release=%-14s ahead=%s", row.Name, row.CI, release, ahead)
	}
}

func (*Plain) Finish(ok bool) {
	if ok {
		logger.Info("Done")
		return
	}
	logger.Error("Finished with errors")
}
