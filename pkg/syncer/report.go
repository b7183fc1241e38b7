package syncer

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
)

type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
	StateDead    State = "dead"
	StateSkipped State = "skipped"
)

const (
	ReasonUpToDate       = "up_to_date"
	ReasonNoCoherentPage = "no_coherent_page"
)

type WorkResult struct {
	WorkID string
	State  State
	// Reason says why a work was skipped.
	Reason string
	Title  string
	// Chapters is the number of valid entries on the index page.
	Chapters  int
	Fetched   int
	Abandoned int
}

type Report struct {
	// Works holds one result per distinct seed, in seed order.
	Works []WorkResult
	// Dead lists the works the metadata API did not return.
	Dead []string
}

// Count returns how many works ended in state.
func (r *Report) Count(state State) int {
	n := 0
	for _, w := range r.Works {
		if w.State == state {
			n++
		}
	}
	return n
}

// Fetched is the number of chapter bodies stored during the run.
func (r *Report) Fetched() int {
	n := 0
	for _, w := range r.Works {
		n += w.Fetched
	}
	return n
}

func (r *Report) summary() logger.Data {
	return logger.Data{
		"done":     r.Count(StateDone),
		"skipped":  r.Count(StateSkipped),
		"dead":     r.Count(StateDead),
		"chapters": r.Fetched(),
	}
}

// progress writes to the run's ProgressLogger when there is one, and to the
// context logger otherwise.
type progress struct {
	log  logger.Logger
	sink ProgressLogger
}

func newProgress(ctx context.Context, sink ProgressLogger) *progress {
	return &progress{log: logger.FromContext(ctx), sink: sink}
}

func (p *progress) Info(msg string, data logger.Data) {
	if p.sink != nil {
		p.sink.Info(msg, data)
		return
	}
	p.log.Info(msg, data)
}

func (p *progress) Warn(msg string, data logger.Data) {
	if p.sink != nil {
		p.sink.Warn(msg, data)
		return
	}
	p.log.Warn(msg, data)
}
