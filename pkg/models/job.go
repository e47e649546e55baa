package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeCatalogSync = "catalog_sync"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID           int         `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Type         string      `bun:",nullzero" json:"type"`
	Status       string      `bun:",nullzero" json:"status"`
	Data         string      `bun:",nullzero" json:"-"`
	DataParsed   interface{} `bun:"-" json:"data"`
	Result       *string     `json:"-"`
	ResultParsed interface{} `bun:"-" json:"result,omitempty"`
	ProcessID    *string     `json:"process_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeCatalogSync:
		job.DataParsed = &JobCatalogSyncData{}
		if job.Result != nil {
			result := &JobCatalogSyncResult{}
			if err := json.Unmarshal([]byte(*job.Result), result); err != nil {
				return errors.WithStack(err)
			}
			job.ResultParsed = result
		}
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}

	if job.Data == "" {
		return nil
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// JobCatalogSyncData is the payload of a catalog sync job.
type JobCatalogSyncData struct {
	Force bool `json:"force"`
}

// JobCatalogSyncResult summarizes a finished catalog sync run.
type JobCatalogSyncResult struct {
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
	Processed  int    `json:"processed"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Errors     int    `json:"errors"`
	Complete   bool   `json:"complete"`
}
