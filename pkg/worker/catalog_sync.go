package worker

import (
	"context"

	"github.com/ludotheque/ludotheque/pkg/joblogs"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// ProcessCatalogSyncJob runs one catalog sync and stores its summary as the
// job result. A skipped run still completes the job.
func (w *Worker) ProcessCatalogSyncJob(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobCatalogSyncData)
	if !ok || data == nil {
		data = &models.JobCatalogSyncData{}
	}

	res, runErr := w.syncer.Run(ctx, data.Force, jobLog)

	if res != nil {
		result := models.JobCatalogSyncResult{
			Skipped:    res.Skipped,
			SkipReason: res.Reason,
			Processed:  res.Processed,
			Created:    res.Created,
			Updated:    res.Updated,
			Errors:     res.Errors,
			Complete:   res.Complete,
		}
		b, err := json.Marshal(result)
		if err != nil {
			return errors.WithStack(err)
		}
		s := string(b)
		job.Result = &s
	}

	if runErr != nil {
		return runErr
	}
	if res != nil && res.Skipped {
		jobLog.Info("catalog sync skipped", logger.Data{"reason": res.Reason, "wait_seconds": res.WaitSeconds})
	}
	return nil
}
