package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SyncCursor stores the watermark of a recurring job: the start time of its
// last fully successful run.
type SyncCursor struct {
	bun.BaseModel `bun:"table:sync_cursors,alias:sc"`

	JobName   string    `bun:",pk" json:"job_name"`
	Watermark time.Time `json:"watermark"`
	UpdatedAt time.Time `json:"updated_at"`
}
