package worker

import (
	"context"
	"time"

	"github.com/narourip/narourip/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// schedule queues a sync of every known work each SyncIntervalMinutes.
func (w *Worker) schedule() {
	if w.config.SyncIntervalMinutes <= 0 {
		<-w.shutdown
		w.doneScheduling <- struct{}{}
		return
	}

	ticker := time.NewTicker(time.Duration(w.config.SyncIntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			w.doneScheduling <- struct{}{}
			return
		case <-ticker.C:
			if _, err := w.scheduleSync(context.Background()); err != nil {
				w.log.Err(err).Error("schedule sync error")
			}
		}
	}
}

// scheduleSync creates a sync job for the known works unless one is already
// pending or running, or there is nothing stored to sync.
func (w *Worker) scheduleSync(ctx context.Context) (*models.Job, error) {
	active, err := w.jobService.HasActiveJobByType(ctx, models.JobTypeSync)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, nil
	}

	ids, err := w.workService.ListWorkIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	job := &models.Job{
		Type:       models.JobTypeSync,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobSyncData{Known: true},
	}
	if err := w.jobService.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	w.log.Info("scheduled sync job", logger.Data{"job_id": job.ID, "works": len(ids)})
	return job, nil
}
