package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/joblogs"
	"github.com/narourip/narourip/pkg/jobs"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/ranking"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/narourip/narourip/pkg/syncer"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

// RankingSource lists the works of the current ranking page.
type RankingSource interface {
	Fetch(ctx context.Context) ([]syncer.Seed, error)
}

type Worker struct {
	config *config.Config
	log    logger.Logger

	processFuncs map[string]func(ctx context.Context, job *models.Job) error

	jobService    *jobs.Service
	jobLogService *joblogs.Service
	workService   *works.Service
	syncer        *syncer.Syncer
	ranking       RankingSource

	// ctx is cancelled on shutdown so running jobs stop between chapters.
	ctx    context.Context
	cancel context.CancelFunc

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
	doneScheduling chan struct{}
}

type Option func(*Worker)

func WithRankingSource(r RankingSource) Option {
	return func(w *Worker) {
		w.ranking = r
	}
}

func New(cfg *config.Config, db *bun.DB, opts ...Option) (*Worker, error) {
	s, err := syncer.New(cfg, db)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		config: cfg,
		log:    logger.New(),

		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),
		workService:   works.NewService(db),
		syncer:        s,
		ranking:       ranking.NewSource(cfg, remote.NewClient(cfg)),

		ctx:    ctx,
		cancel: cancel,

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
		doneScheduling: make(chan struct{}),
	}

	w.processFuncs = map[string]func(ctx context.Context, job *models.Job) error{
		models.JobTypeSync: w.ProcessSyncJob,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

func (w *Worker) Start() {
	go w.fetchJobs()
	go w.schedule()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	duration := 5 * time.Second
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(context.Background(), jobs.ListJobsOptions{
				Limit:              pointerutil.Int(1),
				Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
				ProcessIDToExclude: &processID,
				StaleBefore:        pointerutil.Time(time.Now().Add(-w.config.JobLease)),
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(duration)
				continue
			}
			for _, job := range j {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(duration)
		}
	}
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			// Prep the context to be passed down to the process function.
			id, err := uuid.NewRandom()
			if err != nil {
				w.log.Err(err).Error("new uuid error")
				continue
			}
			log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": processID})
			ctx := log.WithContext(w.ctx)

			// The fetcher can hand out the same job again before this process
			// has claimed it, so only one claim may win.
			claimed, err := w.jobService.ClaimJob(ctx, job, jobs.ClaimJobOptions{
				ProcessID: processID,
				Lease:     w.config.JobLease,
			})
			if err != nil {
				log.Err(err).Error("claim job error")
				continue
			}
			if !claimed {
				continue
			}

			if err := w.RunJob(ctx, job); err != nil {
				log.Err(err).Error("process error")
			}
		}
	}
}

// RunJob runs a claimed job and records its final status. A job interrupted
// by shutdown is left in progress so another process picks it up.
func (w *Worker) RunJob(ctx context.Context, job *models.Job) error {
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		return w.finishJob(ctx, job, errors.Errorf("can't find process function for type %q", job.Type))
	}
	return w.run(ctx, job, fn)
}

// run calls fn while renewing the job's lease, then records the outcome. If
// another process takes the job over, fn is cancelled and the job is left to
// its new holder.
func (w *Worker) run(ctx context.Context, job *models.Job, fn func(ctx context.Context, job *models.Job) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	lost := make(chan bool, 1)
	go func() {
		lost <- w.heartbeat(runCtx, job.ID, cancel)
	}()

	runErr := fn(runCtx, job)
	cancel()
	if <-lost {
		if runErr == nil {
			runErr = errors.Errorf("job %d was taken over by another process", job.ID)
		}
		return runErr
	}
	return w.finishJob(ctx, job, runErr)
}

// heartbeat renews the lease on jobID until ctx is done. It cancels the run
// and reports true when the lease turns out to be held by someone else.
func (w *Worker) heartbeat(ctx context.Context, jobID int, cancel context.CancelFunc) bool {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(w.config.JobLease / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			held, err := w.jobService.Heartbeat(ctx, jobID, processID)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.Err(err).Warn("job heartbeat error")
				continue
			}
			if !held {
				log.Warn("job lease lost", logger.Data{"job_id": jobID})
				cancel()
				return true
			}
		}
	}
}

func (w *Worker) finishJob(ctx context.Context, job *models.Job, runErr error) error {
	if runErr != nil && ctx.Err() != nil {
		return runErr
	}

	// Update job so that it's not picked up anymore.
	job.Status = models.JobStatusCompleted
	if runErr != nil {
		job.Status = models.JobStatusFailed
	}
	// Shutdown can land right after the run returned.
	err := w.jobService.UpdateJob(context.WithoutCancel(ctx), job, jobs.UpdateJobOptions{
		Columns: []string{"status", "progress"},
	})
	if err != nil {
		return err
	}
	return runErr
}

func (w *Worker) Shutdown() {
	close(w.shutdown)
	w.cancel()

	<-w.doneFetching
	<-w.doneScheduling
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
