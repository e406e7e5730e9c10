package reporter

import "github.com/truthdb/orchestrator/domain"

// defaultBuffer is generous relative to the worker's event rate; the
// consumer drains everything once per render tick.
const defaultBuffer = 256

// Channel is the single-producer reporter feeding the dashboard through a
// FIFO queue. Sends never block and never fail: when the buffer is full or
// the consumer is gone, events are dropped so the orchestration is never
// slowed or errored by presentation.
type Channel struct {
	events chan domain.ProgressEvent
}

var _ domain.Reporter = (*Channel)(nil)

// NewChannel creates a channel reporter. A non-positive buffer uses the
// default.
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Channel{
		events: make(chan domain.ProgressEvent, buffer),
	}
}

// Events is the consumer side of the queue.
func (c *Channel) Events() <-chan domain.ProgressEvent {
	return c.events
}

func (c *Channel) send(ev domain.ProgressEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Channel) Step(title, body string) {
	c.send(domain.StepChanged{Title: title, Body: body})
}

func (c *Channel) Update(body string) {
	c.send(domain.BodyUpdated{Body: body})
}

func (c *Channel) Ok(msg string) {
	c.send(domain.MarkOk{Msg: msg})
}

func (c *Channel) Error(msg string) {
	c.send(domain.MarkError{Msg: msg})
}

func (c *Channel) Rows(rows []domain.RepoStatusRow) {
	c.send(domain.RepoRowsUpdated{Rows: rows})
}

func (c *Channel) Finish(ok bool) {
	c.send(domain.Finished{Ok: ok})
}
