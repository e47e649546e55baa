package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string
	Type     *string
	// ClaimableBy skips jobs already claimed by the named worker process.
	ClaimableBy *string
	Newest      bool

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

// finishedStatuses are the statuses a job never leaves.
var finishedStatuses = []string{models.JobStatusCompleted, models.JobStatusFailed}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt

	if job.Data == "" && job.DataParsed != nil {
		raw, err := json.Marshal(job.DataParsed)
		if err != nil {
			return errors.Wrap(err, "failed to encode job data")
		}
		job.Data = string(raw)
	}

	if _, err := svc.db.NewInsert().Model(job).Returning("*").Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}
	q := svc.db.NewSelect().Model(job)
	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if err := job.UnmarshalData(); err != nil {
		return nil, errors.WithStack(err)
	}
	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	list, _, err := svc.list(ctx, opts)
	return list, err
}

// ListJobsWithTotal also counts every job matching the filters, ignoring
// Limit and Offset.
func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.list(ctx, opts)
}

func (svc *Service) list(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	list := []*models.Job{}

	direction := "ASC"
	if opts.Newest {
		direction = "DESC"
	}
	q := svc.db.NewSelect().
		Model(&list).
		OrderExpr("j.created_at " + direction).
		OrderExpr("j.id " + direction)

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("j.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}
	if opts.ClaimableBy != nil {
		q = q.Where("(j.process_id IS NULL OR j.process_id != ?)", *opts.ClaimableBy)
	}

	var total int
	var err error
	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range list {
		if err := job.UnmarshalData(); err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}
	return list, total, nil
}

// HasActiveJobByType reports whether a job of the type is pending or running.
func (svc *Service) HasActiveJobByType(ctx context.Context, jobType string) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("j.type = ?", jobType).
		Where("j.status IN (?)", bun.In([]string{models.JobStatusPending, models.JobStatusInProgress})).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	job.UpdatedAt = time.Now()
	columns := append(append([]string{}, opts.Columns...), "updated_at")

	res, err := svc.db.NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Job")
	}
	return nil
}

// PruneFinishedJobs deletes completed and failed jobs last touched before the
// cutoff, along with their logs, and returns how many jobs were removed.
func (svc *Service) PruneFinishedJobs(ctx context.Context, before time.Time) (int, error) {
	var removed int
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		stale := tx.NewSelect().
			Model((*models.Job)(nil)).
			Column("j.id").
			Where("j.status IN (?)", bun.In(finishedStatuses)).
			Where("j.updated_at < ?", before)

		_, err := tx.NewDelete().
			Model((*models.JobLog)(nil)).
			Where("job_id IN (?)", stale).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Job)(nil)).
			Where("status IN (?)", bun.In(finishedStatuses)).
			Where("updated_at < ?", before).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		removed = int(n)
		return errors.WithStack(err)
	})
	return removed, err
}
