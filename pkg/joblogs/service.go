package joblogs

import (
	"context"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ListJobLogsOptions filters a job's log lines. AfterID lets a client tail a
// running sync by polling with the last id it saw.
type ListJobLogsOptions struct {
	JobID   int
	AfterID *int
	Levels  []string
	Search  *string
	Limit   *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJobLog(ctx context.Context, log *models.JobLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(log).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) ListJobLogs(ctx context.Context, opts ListJobLogsOptions) ([]*models.JobLog, error) {
	logs := []*models.JobLog{}

	q := svc.db.
		NewSelect().
		Model(&logs).
		Where("jl.job_id = ?", opts.JobID).
		Order("jl.id ASC")

	if opts.AfterID != nil {
		q = q.Where("jl.id > ?", *opts.AfterID)
	}

	if len(opts.Levels) > 0 {
		q = q.Where("jl.level IN (?)", bun.In(opts.Levels))
	}

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where(`jl.message LIKE ? ESCAPE '\'`, "%"+escapeLike(*opts.Search)+"%")
	}

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return logs, nil
}

// CountJobLogsByLevel tallies a job's lines per level, so a sync that logged
// thousands of skipped records can be judged without paging through them.
func (svc *Service) CountJobLogsByLevel(ctx context.Context, jobID int) (map[string]int, error) {
	var rows []struct {
		Level string `bun:"level"`
		Count int    `bun:"count"`
	}
	err := svc.db.
		NewSelect().
		Model((*models.JobLog)(nil)).
		ColumnExpr("jl.level AS level").
		ColumnExpr("COUNT(*) AS count").
		Where("jl.job_id = ?", jobID).
		Group("jl.level").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	counts := map[string]int{
		models.JobLogLevelInfo:  0,
		models.JobLogLevelWarn:  0,
		models.JobLogLevelError: 0,
		models.JobLogLevelFatal: 0,
	}
	for _, r := range rows {
		counts[r.Level] = r.Count
	}
	return counts, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
