package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/ludotheque/ludotheque/pkg/catalogsync"
	"github.com/ludotheque/ludotheque/pkg/config"
	"github.com/ludotheque/ludotheque/pkg/joblogs"
	"github.com/ludotheque/ludotheque/pkg/jobs"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

// catalogSyncer is the part of *catalogsync.Syncer the worker drives.
type catalogSyncer interface {
	Run(ctx context.Context, force bool, log catalogsync.Logger) (*catalogsync.Result, error)
}

type Worker struct {
	config *config.Config
	log    logger.Logger

	processFuncs map[string]func(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error

	jobService    *jobs.Service
	jobLogService *joblogs.Service
	syncer        catalogSyncer

	// ctx is canceled on shutdown so a running sync stops between records.
	ctx    context.Context
	cancel context.CancelFunc

	fetchInterval time.Duration

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneScheduling chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, syncer *catalogsync.Syncer) *Worker {
	return newWorker(cfg, db, syncer)
}

func newWorker(cfg *config.Config, db *bun.DB, syncer catalogSyncer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		config: cfg,
		log:    logger.New(),

		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),
		syncer:        syncer,

		ctx:    ctx,
		cancel: cancel,

		fetchInterval: 5 * time.Second,

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneScheduling: make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]func(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error{
		models.JobTypeCatalogSync: w.ProcessCatalogSyncJob,
	}

	return w
}

func (w *Worker) Start() {
	go w.fetchJobs()
	go w.schedule()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	timer := time.NewTimer(w.fetchInterval)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			timer.Stop()
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(w.ctx, jobs.ListJobsOptions{
				Limit:       pointerutil.Int(1),
				Statuses:    []string{models.JobStatusPending, models.JobStatusInProgress},
				ClaimableBy: &processID,
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(w.fetchInterval)
				continue
			}
			for _, job := range j {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					timer.Stop()
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(w.fetchInterval)
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
			w.processJob(job)
		}
	}
}

// processJob claims the job, runs it, and records how it ended. A job that
// errors or panics is marked failed so it isn't picked up again.
func (w *Worker) processJob(job *models.Job) {
	// Prep the context to be passed down to the process function.
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": processID})
	ctx := log.WithContext(w.ctx)

	// Update job to be in progress and claimed by this process.
	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID

	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status", "process_id"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
		return
	}

	err = w.run(ctx, job)

	switch {
	case err == nil:
		job.Status = models.JobStatusCompleted
	case errors.Is(err, context.Canceled):
		// Shutting down. Leave it in progress for the next process to pick up.
		log.Info("job interrupted by shutdown")
		return
	default:
		log.Err(err).Error("process error")
		job.Status = models.JobStatusFailed
	}

	// Update the job so that it's not picked up anymore.
	err = w.jobService.UpdateJob(context.WithoutCancel(ctx), job, jobs.UpdateJobOptions{
		Columns: []string{"status", "result"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
	}
}

func (w *Worker) run(ctx context.Context, job *models.Job) (err error) {
	jobLog := w.jobLogService.NewJobLogger(ctx, job.ID, logger.FromContext(ctx))
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job panicked: %v", r)
			jobLog.Fatal("job panicked", err, nil)
		}
	}()

	// Find and invoke the appropriate process function.
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		return errors.Errorf("can't find process function for type %q", job.Type)
	}
	return fn(ctx, job, jobLog)
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
