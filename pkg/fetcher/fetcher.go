// Package fetcher downloads chapter bodies in sequential, bounded batches.
// Each batch fans out up to the connection limit, persists whatever
// succeeded, backs off when anything failed and sleeps to keep the sustained
// rate under the configured ceiling. Failed items are carried into later
// batches until they succeed or run out of attempts.
package fetcher

import (
	"context"
	"time"

	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/htmlutil"
	"github.com/narourip/narourip/pkg/listing"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"
)

type Task struct {
	listing.Entry
	// Attempts counts failed fetches so far.
	Attempts int
}

type Result struct {
	Task    Task
	Content string
}

// Sink stores the successful results of one batch. It must be atomic: either
// every result is durable when it returns nil or none is.
type Sink func(ctx context.Context, results []Result) error

type Report struct {
	Fetched  int
	Failures int
	Batches  int
	// Abandoned lists tasks that reached the attempt cap.
	Abandoned []Task
}

type Fetcher struct {
	remote   *remote.Client
	throttle *Throttle

	batchSize       int
	connectionLimit int
	perSecond       float64
	backoff         time.Duration
	maxAttempts     int
	selector        string
}

func New(cfg *config.Config, rc *remote.Client, throttle *Throttle) *Fetcher {
	return &Fetcher{
		remote:          rc,
		throttle:        throttle,
		batchSize:       cfg.BatchSize,
		connectionLimit: cfg.ConnectionLimit,
		perSecond:       cfg.ChaptersPerSecond,
		backoff:         cfg.RateLimitWait,
		maxAttempts:     cfg.MaxAttempts,
		selector:        cfg.ContentSelector,
	}
}

// NewThrottleFromConfig builds the shared throttle for cfg.
func NewThrottleFromConfig(cfg *config.Config) *Throttle {
	return NewThrottle(cfg.ChaptersPerSecond, cfg.BatchSize)
}

type outcome struct {
	content string
	err     error
}

// Run fetches every task and hands each batch's successes to sink before
// the next batch starts. With no attempt cap it returns only once every task
// has been stored, ctx is done, or sink fails.
func (f *Fetcher) Run(ctx context.Context, tasks []Task, sink Sink) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{}

	pending := append([]Task(nil), tasks...)
	for len(pending) > 0 {
		n := min(f.batchSize, len(pending))
		batch := pending[:n]
		pending = append([]Task(nil), pending[n:]...)

		start := time.Now()
		outcomes := f.fetchBatch(ctx, batch)
		if ctx.Err() != nil {
			return report, errors.WithStack(ctx.Err())
		}
		report.Batches++

		results := make([]Result, 0, len(batch))
		failed := 0
		for i, o := range outcomes {
			task := batch[i]
			if o.err == nil {
				results = append(results, Result{Task: task, Content: o.content})
				continue
			}

			failed++
			task.Attempts++
			if f.maxAttempts > 0 && task.Attempts >= f.maxAttempts {
				log.Err(o.err).Error("giving up on chapter", logger.Data{"url": task.URL, "attempts": task.Attempts})
				report.Abandoned = append(report.Abandoned, task)
				continue
			}
			pending = append(pending, task)
		}
		report.Failures += failed

		if len(results) > 0 {
			if err := sink(ctx, results); err != nil {
				return report, err
			}
			report.Fetched += len(results)
		}
		log.Info("batch done", logger.Data{"stored": len(results), "failed": failed})

		if failed > 0 {
			log.Warn("possibly rate limited, backing off", logger.Data{"wait": f.backoff.String()})
			if err := f.throttle.Backoff(ctx, f.backoff); err != nil {
				return report, err
			}
		}

		want := time.Duration(float64(len(batch)) / f.perSecond * float64(time.Second))
		if rest := want - time.Since(start); rest > 0 {
			log.Debug("sleeping to stay under the rate ceiling", logger.Data{"sleep_ms": rest.Milliseconds()})
			if err := remote.Sleep(ctx, rest); err != nil {
				return report, err
			}
		}

		if len(pending) > 0 {
			log.Info("chapters left", logger.Data{"count": len(pending)})
		}
	}

	return report, nil
}

// fetchBatch fetches every task of batch with bounded concurrency. Each
// goroutine writes only its own slot, and slots are read after Wait.
func (f *Fetcher) fetchBatch(ctx context.Context, batch []Task) []outcome {
	outcomes := make([]outcome, len(batch))

	var g errgroup.Group
	g.SetLimit(f.connectionLimit)
	for i := range batch {
		g.Go(func() error {
			outcomes[i] = f.fetchOne(ctx, batch[i])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (f *Fetcher) fetchOne(ctx context.Context, task Task) outcome {
	if err := f.throttle.Wait(ctx); err != nil {
		return outcome{err: err}
	}

	resp, err := f.remote.Get(ctx, task.URL)
	if err != nil {
		return outcome{err: err}
	}
	if err := f.remote.CheckPage(resp); err != nil {
		return outcome{err: err}
	}

	content, err := htmlutil.OuterHTML(resp.Body, f.selector)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{content: content}
}
