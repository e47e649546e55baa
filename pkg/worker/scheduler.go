package worker

import (
	"context"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// schedule runs the periodic chores: queueing a catalog sync and pruning old
// jobs. The sync itself also checks the interval against its cursor, so an
// early tick after a restart just produces a skipped job.
func (w *Worker) schedule() {
	syncing := w.config.CatalogSyncEnabled && w.config.CatalogSyncInterval > 0
	pruning := w.config.JobRetention > 0
	if !syncing && !pruning {
		<-w.shutdown
		w.doneScheduling <- struct{}{}
		return
	}

	interval := time.Hour
	if syncing {
		interval = w.config.CatalogSyncInterval
	}

	// First pass shortly after boot, then once per interval.
	timer := time.NewTimer(time.Minute)

	for {
		select {
		case <-w.shutdown:
			timer.Stop()
			w.doneScheduling <- struct{}{}
			return
		case <-timer.C:
			if pruning {
				w.pruneJobs(w.ctx)
			}
			if syncing {
				if _, err := w.enqueueCatalogSync(w.ctx); err != nil {
					w.log.Err(err).Error("schedule catalog sync error")
				}
			}
			timer.Reset(interval)
		}
	}
}

// enqueueCatalogSync creates a pending catalog sync job unless one is already
// pending or running. It reports whether a job was created.
func (w *Worker) enqueueCatalogSync(ctx context.Context) (bool, error) {
	active, err := w.jobService.HasActiveJobByType(ctx, models.JobTypeCatalogSync)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}

	job := &models.Job{
		Type:       models.JobTypeCatalogSync,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobCatalogSyncData{},
	}
	if err := w.jobService.CreateJob(ctx, job); err != nil {
		return false, err
	}
	w.log.Info("scheduled catalog sync", logger.Data{"job_id": job.ID})
	return true, nil
}

func (w *Worker) pruneJobs(ctx context.Context) {
	removed, err := w.jobService.PruneFinishedJobs(ctx, time.Now().Add(-w.config.JobRetention))
	if err != nil {
		w.log.Err(err).Error("prune jobs error")
		return
	}
	if removed > 0 {
		w.log.Info("pruned finished jobs", logger.Data{"count": removed})
	}
}
