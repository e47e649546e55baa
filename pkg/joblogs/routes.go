package joblogs

import (
	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/jobs"
	"github.com/uptrace/bun"
)

// RegisterRoutes adds GET /:id/logs to the jobs group. Poll it with after_id
// to follow a running catalog sync.
func RegisterRoutes(jobsGroup *echo.Group, db *bun.DB) {
	h := &handler{
		jobLogService: NewService(db),
		jobService:    jobs.NewService(db),
	}

	jobsGroup.GET("/:id/logs", h.listLogs)
}
