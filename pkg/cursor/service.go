// Package cursor tracks the watermark of recurring sync jobs and decides
// whether a job is due and which time window it should query.
package cursor

import (
	"context"
	"database/sql"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Decision is the outcome of ShouldRun.
type Decision struct {
	Run           bool
	Reason        string
	WaitRemaining time.Duration
	LastRun       *time.Time
}

const (
	ReasonForced         = "forced"
	ReasonNeverRun       = "never_run"
	ReasonIntervalDue    = "interval_elapsed"
	ReasonIntervalWait   = "interval_not_elapsed"
	ReasonAlreadyRunning = "already_running"
)

// Window is the [From, To) range of upstream change times a run queries.
type Window struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Bootstrap bool      `json:"bootstrap"`
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Retrieve returns the cursor for job, or nil if the job has never completed.
func (svc *Service) Retrieve(ctx context.Context, job string) (*models.SyncCursor, error) {
	c := &models.SyncCursor{}
	err := svc.db.NewSelect().
		Model(c).
		Where("sc.job_name = ?", job).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return c, nil
}

// ShouldRun reports whether job is due. force skips the interval check.
func (svc *Service) ShouldRun(ctx context.Context, job string, minInterval time.Duration, force bool) (Decision, error) {
	c, err := svc.Retrieve(ctx, job)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{}
	if c != nil {
		last := c.Watermark
		d.LastRun = &last
	}

	switch {
	case force:
		d.Run = true
		d.Reason = ReasonForced
	case c == nil:
		d.Run = true
		d.Reason = ReasonNeverRun
	default:
		elapsed := svc.now().Sub(c.Watermark)
		if elapsed >= minInterval {
			d.Run = true
			d.Reason = ReasonIntervalDue
		} else {
			d.Reason = ReasonIntervalWait
			d.WaitRemaining = minInterval - elapsed
		}
	}
	return d, nil
}

// Window returns the range the next run of job should query. Without a
// watermark, or when the catalog is empty, the window starts lookback before
// now.
func (svc *Service) Window(ctx context.Context, job string, lookback time.Duration, catalogEmpty bool, now time.Time) (Window, error) {
	c, err := svc.Retrieve(ctx, job)
	if err != nil {
		return Window{}, err
	}

	w := Window{To: now}
	if c == nil || catalogEmpty || !c.Watermark.Before(now) {
		w.From = now.Add(-lookback)
		w.Bootstrap = true
		return w, nil
	}
	w.From = c.Watermark
	return w, nil
}

// Commit stores at as the watermark of job. Only call it once a run has
// completed without upstream failures.
func (svc *Service) Commit(ctx context.Context, job string, at time.Time) error {
	c := &models.SyncCursor{
		JobName:   job,
		Watermark: at.UTC(),
		UpdatedAt: svc.now().UTC(),
	}
	_, err := svc.db.NewInsert().
		Model(c).
		On("CONFLICT (job_name) DO UPDATE").
		Set("watermark = EXCLUDED.watermark").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}
