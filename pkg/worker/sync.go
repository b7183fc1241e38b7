package worker

import (
	"context"

	"github.com/narourip/narourip/pkg/jobs"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/syncer"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

func (w *Worker) ProcessSyncJob(ctx context.Context, job *models.Job) error {
	_, err := w.runSync(ctx, job)
	return err
}

// SyncNow records a sync job for data and runs it in the calling goroutine,
// returning the run's report.
func (w *Worker) SyncNow(ctx context.Context, data *models.JobSyncData) (*models.Job, *syncer.Report, error) {
	job := &models.Job{
		Type:       models.JobTypeSync,
		Status:     models.JobStatusPending,
		DataParsed: data,
	}
	if err := w.jobService.CreateJob(ctx, job); err != nil {
		return nil, nil, err
	}
	claimed, err := w.jobService.ClaimJob(ctx, job, jobs.ClaimJobOptions{ProcessID: processID})
	if err != nil {
		return job, nil, err
	}
	if !claimed {
		return job, nil, errors.Errorf("job %d was claimed by another process", job.ID)
	}

	var report *syncer.Report
	err = w.run(ctx, job, func(ctx context.Context, job *models.Job) error {
		var runErr error
		report, runErr = w.runSync(ctx, job)
		return runErr
	})
	return job, report, err
}

func (w *Worker) runSync(ctx context.Context, job *models.Job) (*syncer.Report, error) {
	data, ok := job.DataParsed.(*models.JobSyncData)
	if !ok {
		return nil, errors.Errorf("sync job %d has no sync data", job.ID)
	}
	jobLog := w.jobLogService.NewJobLogger(ctx, job.ID, logger.FromContext(ctx))

	seeds, err := w.seeds(ctx, data)
	if err != nil {
		jobLog.Error("collecting works failed", err, nil)
		return nil, err
	}
	jobLog.Info("sync started", logger.Data{"works": len(seeds), "known": data.Known, "ranking": data.Ranking})

	report, err := w.syncer.Run(ctx, seeds, syncer.Options{
		AuthoritativeRanks: data.Ranking,
		Log:                jobLog,
	})
	if report != nil {
		job.Progress = len(report.Works) - report.Count(syncer.StatePending)
	}
	if err != nil {
		jobLog.Error("sync failed", err, nil)
		return report, err
	}
	return report, nil
}

// seeds lists the works a sync job covers: the ranking first, then the
// explicit ids, then every stored work. Later duplicates are dropped by the
// syncer, so a ranked work keeps its rank.
func (w *Worker) seeds(ctx context.Context, data *models.JobSyncData) ([]syncer.Seed, error) {
	var seeds []syncer.Seed
	if data.Ranking {
		ranked, err := w.ranking.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, ranked...)
	}
	seeds = append(seeds, syncer.SeedsFromIDs(data.WorkIDs)...)
	if data.Known {
		ids, err := w.workService.ListWorkIDs(ctx)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, syncer.SeedsFromIDs(ids)...)
	}
	return seeds, nil
}
