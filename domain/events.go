package domain

// ProgressEvent is the tagged union carried from the worker to the
// presentation layer. Events are transient and consumed at most once.
type ProgressEvent interface {
	isProgressEvent()
}

// StepChanged enters a new phase and resets the elapsed-time anchor.
type StepChanged struct {
	Title string
	Body  string
}

// BodyUpdated replaces the in-phase detail text.
type BodyUpdated struct {
	Body string
}

// MarkOk sets a persistent OK status and clears any sticky error.
type MarkOk struct {
	Msg string
}

// MarkError sets a sticky error status. It never self-clears; only the
// next StepChanged or MarkOk does.
type MarkError struct {
	Msg string
}

// RepoRowsUpdated replaces the fleet monitor table.
type RepoRowsUpdated struct {
	Rows []RepoStatusRow
}

// Finished reports worker completion. On success the display stays open
// unless auto-exit was requested; on failure it always stays open.
type Finished struct {
	Ok bool
}

func (StepChanged) isProgressEvent()     {}
func (BodyUpdated) isProgressEvent()     {}
func (MarkOk) isProgressEvent()          {}
func (MarkError) isProgressEvent()       {}
func (RepoRowsUpdated) isProgressEvent() {}
func (Finished) isProgressEvent()        {}

// Reporter is the narration surface used by the orchestrator and the
// fleet monitor. Implementations must never block the worker: delivery is
// best-effort and dropped silently when no consumer is listening.
type Reporter interface {
	Step(title, body string)
	Update(body string)
	Ok(msg string)
	Error(msg string)
	Rows(rows []RepoStatusRow)
	Finish(ok bool)
}
