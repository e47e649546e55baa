// Package catalogsync pulls changed games from the metadata provider into the
// catalog, one page at a time, paced and resumable through the sync cursor.
package catalogsync

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/ludotheque/ludotheque/pkg/catalog"
	"github.com/ludotheque/ludotheque/pkg/cursor"
	"github.com/ludotheque/ludotheque/pkg/igdb"
	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/time/rate"
)

// JobName keys the sync cursor and the in-process lock.
const JobName = "catalog_sync"

// ErrTooManyFailures aborts a run once upstream failures exceed the threshold.
var ErrTooManyFailures = errors.New("too many upstream failures")

// Fetcher is the part of the metadata client the sync uses.
type Fetcher interface {
	HasCredentials() bool
	Authenticate(ctx context.Context) error
	Games(ctx context.Context, q *igdb.Query) ([]igdb.Game, error)
}

// Logger receives progress lines. *joblogs.JobLogger satisfies it.
type Logger interface {
	Info(msg string, data logger.Data)
	Warn(msg string, data logger.Data)
	Error(msg string, err error, data logger.Data)
}

type Options struct {
	Interval        time.Duration
	Lookback        time.Duration
	PageSize        int
	MaxPages        int
	RequestInterval time.Duration
	Backoff         time.Duration
	ErrorThreshold  int
}

type Diagnostics struct {
	CredentialsPresent bool      `json:"credentials_present"`
	WindowFrom         time.Time `json:"window_from"`
	WindowTo           time.Time `json:"window_to"`
	Bootstrap          bool      `json:"bootstrap"`
	Pages              int       `json:"pages"`
	UpstreamFailures   int       `json:"upstream_failures"`
}

// Result is what a trigger returns: either a skip with the remaining wait, or
// the counts of a run.
type Result struct {
	Skipped     bool         `json:"skipped"`
	Reason      string       `json:"reason,omitempty"`
	WaitSeconds int          `json:"wait_seconds,omitempty"`
	Complete    bool         `json:"complete"`
	Watermark   *time.Time   `json:"watermark,omitempty"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
	catalog.BatchResult
}

type Syncer struct {
	fetcher Fetcher
	catalog *catalog.Service
	cursors *cursor.Service
	locker  *cursor.Locker
	limiter *rate.Limiter
	opts    Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(fetcher Fetcher, catalogService *catalog.Service, cursors *cursor.Service, locker *cursor.Locker, opts Options) *Syncer {
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 200
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = 5
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &Syncer{
		fetcher: fetcher,
		catalog: catalogService,
		cursors: cursors,
		locker:  locker,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Run performs one sync unless another run holds the lock or, without force,
// the interval since the last successful run hasn't elapsed. The returned
// result carries diagnostics even when err is non-nil.
func (s *Syncer) Run(ctx context.Context, force bool, log Logger) (*Result, error) {
	unlock, ok := s.locker.TryLock(JobName)
	if !ok {
		metrics.CatalogSyncRuns.WithLabelValues("skipped").Inc()
		return &Result{Skipped: true, Reason: cursor.ReasonAlreadyRunning}, nil
	}
	defer unlock()

	decision, err := s.cursors.ShouldRun(ctx, JobName, s.opts.Interval, force)
	if err != nil {
		return nil, err
	}
	if !decision.Run {
		metrics.CatalogSyncRuns.WithLabelValues("skipped").Inc()
		log.Info("catalog sync not due", logger.Data{"wait_seconds": waitSeconds(decision.WaitRemaining)})
		return &Result{
			Skipped:     true,
			Reason:      decision.Reason,
			WaitSeconds: waitSeconds(decision.WaitRemaining),
		}, nil
	}

	start := s.now()
	defer func() {
		metrics.CatalogSyncDuration.Observe(time.Since(start).Seconds())
	}()

	diag := &Diagnostics{CredentialsPresent: s.fetcher.HasCredentials()}
	res := &Result{Diagnostics: diag}

	count, err := s.catalog.Count(ctx)
	if err != nil {
		return res, err
	}
	window, err := s.cursors.Window(ctx, JobName, s.opts.Lookback, count == 0, start)
	if err != nil {
		return res, err
	}
	diag.WindowFrom = window.From
	diag.WindowTo = window.To
	diag.Bootstrap = window.Bootstrap

	runData := logger.Data{
		"reason":              decision.Reason,
		"credentials_present": diag.CredentialsPresent,
		"window_from":         window.From,
		"window_to":           window.To,
		"bootstrap":           window.Bootstrap,
	}
	log.Info("catalog sync started", runData)

	if err := s.fetcher.Authenticate(ctx); err != nil {
		metrics.CatalogSyncRuns.WithLabelValues("auth_error").Inc()
		log.Error("catalog sync could not authenticate", err, runData)
		return res, err
	}

	lastSeen, err := s.pages(ctx, window, res, log)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		metrics.CatalogSyncRuns.WithLabelValues(outcome).Inc()
		log.Error("catalog sync aborted", err, logger.Data{
			"processed":         res.Processed,
			"errors":            res.Errors,
			"upstream_failures": diag.UpstreamFailures,
		})
		return res, err
	}

	// A run cut short by the page cap only vouches for what it saw.
	watermark := window.To
	if !res.Complete {
		watermark = window.From
		if lastSeen.After(watermark) {
			watermark = lastSeen
		}
	}
	if err := s.cursors.Commit(ctx, JobName, watermark); err != nil {
		return res, err
	}
	res.Watermark = &watermark

	metrics.CatalogSyncRuns.WithLabelValues("success").Inc()
	metrics.CatalogSyncLastSuccess.Set(float64(s.now().Unix()))
	log.Info("catalog sync finished", logger.Data{
		"processed":         res.Processed,
		"created":           res.Created,
		"updated":           res.Updated,
		"errors":            res.Errors,
		"pages":             diag.Pages,
		"upstream_failures": diag.UpstreamFailures,
		"complete":          res.Complete,
		"watermark":         watermark,
	})
	return res, nil
}

// pages walks the window page by page. A failed page is retried after the
// backoff until the failures exceed the threshold. It returns the newest
// upstream change time it stored.
func (s *Syncer) pages(ctx context.Context, window cursor.Window, res *Result, log Logger) (time.Time, error) {
	var lastSeen time.Time
	offset := 0

	for page := 0; page < s.opts.MaxPages; {
		if err := s.limiter.Wait(ctx); err != nil {
			return lastSeen, errors.WithStack(err)
		}

		q := igdb.UpdatedSinceQuery(window.From, window.To, s.opts.PageSize, offset)
		games, err := s.fetcher.Games(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return lastSeen, errors.WithStack(ctx.Err())
			}
			if upstream.IsAuthError(err) {
				return lastSeen, err
			}
			res.Diagnostics.UpstreamFailures++
			if res.Diagnostics.UpstreamFailures > s.opts.ErrorThreshold {
				return lastSeen, errors.Wrapf(ErrTooManyFailures, "last: %v", err)
			}
			log.Warn("catalog page failed, backing off", logger.Data{
				"offset":      offset,
				"status_code": upstream.StatusCode(err),
				"failures":    res.Diagnostics.UpstreamFailures,
				"backoff":     s.opts.Backoff.String(),
				"error":       err.Error(),
			})
			if err := s.sleep(ctx, s.opts.Backoff); err != nil {
				return lastSeen, err
			}
			continue
		}

		page++
		res.Diagnostics.Pages++

		records := make([]catalog.ExternalRecord, 0, len(games))
		for i := range games {
			records = append(records, RecordFromGame(&games[i]))
		}
		batch, err := s.catalog.UpsertBatch(ctx, records)
		res.BatchResult.Add(batch)
		if err != nil {
			return lastSeen, err
		}
		for i := range games {
			if t := time.Unix(games[i].UpdatedAt, 0).UTC(); t.After(lastSeen) {
				lastSeen = t
			}
		}

		log.Info("catalog page stored", logger.Data{
			"offset":  offset,
			"records": len(games),
			"created": batch.Created,
			"updated": batch.Updated,
			"errors":  batch.Errors,
		})

		if len(games) < s.opts.PageSize {
			res.Complete = true
			return lastSeen, nil
		}
		offset += s.opts.PageSize
	}

	log.Warn("catalog sync stopped at the page limit", logger.Data{"max_pages": s.opts.MaxPages})
	return lastSeen, nil
}

// RecordFromGame maps a provider game onto the catalog's record shape.
func RecordFromGame(g *igdb.Game) catalog.ExternalRecord {
	rec := catalog.ExternalRecord{
		Provider:     "igdb",
		ExternalID:   g.ID,
		Slug:         g.Slug,
		Title:        g.Name,
		Description:  g.Summary,
		Developer:    g.FirstCompany(func(ic igdb.InvolvedCompany) bool { return ic.Developer }),
		Publisher:    g.FirstCompany(func(ic igdb.InvolvedCompany) bool { return ic.Publisher }),
		ReleaseDate:  g.ReleaseDate(),
		CriticScoreA: g.AggregatedRating,
	}
	if g.Cover != nil && g.Cover.ImageID != "" {
		rec.CoverURL = g.Cover.URL("cover_big")
	}
	for _, img := range g.Screenshots {
		if img.ImageID != "" {
			rec.Screenshots = append(rec.Screenshots, img.URL("screenshot_big"))
		}
	}
	for _, genre := range g.Genres {
		rec.Genres = append(rec.Genres, genre.Name)
	}
	for _, p := range g.Platforms {
		rec.Platforms = append(rec.Platforms, p.Name)
	}
	if uid := g.SteamUID(); uid != "" {
		if id, err := strconv.ParseInt(uid, 10, 64); err == nil && id > 0 {
			rec.SteamAppID = &id
		}
	}
	if rec.CriticScoreA != nil {
		rounded := math.Round(*rec.CriticScoreA*100) / 100
		rec.CriticScoreA = &rounded
	}
	return rec
}

func waitSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-t.C:
		return nil
	}
}
