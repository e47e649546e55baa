package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/htmlutil"
	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/normalize"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// overwrittenColumns take the newest upstream value on every ingestion.
// title_normalized and critic_score_b are only filled in while the stored
// value is NULL, and a record without an external id keeps the stored one.
var overwrittenColumns = []string{
	"steam_app_id",
	"title",
	"cover_url",
	"screenshots",
	"description",
	"developer",
	"publisher",
	"genres",
	"platforms",
	"release_date",
	"release_year",
	"critic_score_a",
	"updated_at",
}

// ExternalRecord is one game as the metadata provider describes it.
type ExternalRecord struct {
	Provider     string
	ExternalID   int64
	Slug         string
	Title        string
	CoverURL     string
	Screenshots  []string
	Description  string
	Developer    string
	Publisher    string
	Genres       []string
	Platforms    []string
	ReleaseDate  *time.Time
	SteamAppID   *int64
	CriticScoreA *float64
	CriticScoreB *float64
}

// Label identifies the record in logs and errors.
func (r ExternalRecord) Label() string {
	if r.ExternalID > 0 {
		return fmt.Sprintf("%s-%d", r.provider(), r.ExternalID)
	}
	if r.Slug != "" {
		return r.Slug
	}
	return "(unidentified)"
}

func (r ExternalRecord) provider() string {
	if r.Provider == "" {
		return "igdb"
	}
	return r.Provider
}

// ValidationError is returned for a record that can't be stored. Batches skip
// and count it.
type ValidationError struct {
	Record string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid catalog record %s: %s", e.Record, e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type UpsertResult struct {
	Entry   *models.CatalogEntry
	Created bool
}

// BatchResult counts the outcome of UpsertBatch. Processed is the number of
// records written, i.e. Created + Updated.
type BatchResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

func (r *BatchResult) Add(o BatchResult) {
	r.Processed += o.Processed
	r.Created += o.Created
	r.Updated += o.Updated
	r.Errors += o.Errors
}

type RetrieveEntryOptions struct {
	ID         *int
	Slug       *string
	ExternalID *int64
	SteamAppID *int64
}

type ListEntriesOptions struct {
	Limit           *int
	Offset          *int
	TitleNormalized *string
	Search          *string

	includeTotal bool
}

type CreateManualOptions struct {
	Title       string
	Platforms   []string
	Genres      []string
	Developer   string
	Publisher   string
	Description string
	CoverURL    string
	ReleaseDate *time.Time
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Upsert writes rec keyed by its slug. Re-ingesting the same record updates
// the existing row; it never creates a second one.
func (svc *Service) Upsert(ctx context.Context, rec ExternalRecord) (*UpsertResult, error) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return nil, &ValidationError{Record: rec.Label(), Reason: "missing title"}
	}
	if rec.ExternalID <= 0 && strings.TrimSpace(rec.Slug) == "" {
		return nil, &ValidationError{Record: rec.Label(), Reason: "missing external id and slug"}
	}

	s, err := svc.resolveSlug(ctx, rec)
	if err != nil {
		return nil, err
	}

	exists, err := svc.db.NewSelect().
		Model((*models.CatalogEntry)(nil)).
		Where("ce.slug = ?", s).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	entry := &models.CatalogEntry{
		CreatedAt:       now,
		UpdatedAt:       now,
		Slug:            s,
		SteamAppID:      rec.SteamAppID,
		Title:           title,
		TitleNormalized: nonEmpty(normalize.Title(title)),
		CoverURL:        nonEmpty(rec.CoverURL),
		Screenshots:     rec.Screenshots,
		Description:     nonEmpty(htmlutil.StripTags(rec.Description)),
		Developer:       nonEmpty(strings.TrimSpace(rec.Developer)),
		Publisher:       nonEmpty(strings.TrimSpace(rec.Publisher)),
		Genres:          rec.Genres,
		Platforms:       rec.Platforms,
		ReleaseDate:     rec.ReleaseDate,
		CriticScoreA:    rec.CriticScoreA,
		CriticScoreB:    rec.CriticScoreB,
	}
	if rec.ExternalID > 0 {
		id := rec.ExternalID
		entry.ExternalID = &id
	}
	if rec.ReleaseDate != nil {
		year := rec.ReleaseDate.Year()
		entry.ReleaseYear = &year
	}

	q := svc.db.NewInsert().
		Model(entry).
		On("CONFLICT (slug) DO UPDATE")
	for _, col := range overwrittenColumns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	// Unqualified columns in DO UPDATE refer to the stored row.
	q = q.
		Set("external_id = COALESCE(EXCLUDED.external_id, external_id)").
		Set("title_normalized = COALESCE(title_normalized, EXCLUDED.title_normalized)").
		Set("critic_score_b = COALESCE(critic_score_b, EXCLUDED.critic_score_b)")

	if _, err := q.Returning("*").Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "upsert catalog entry %s", s)
	}

	return &UpsertResult{Entry: entry, Created: !exists}, nil
}

// resolveSlug keeps the stored slug of a known external id so a renamed
// upstream slug doesn't fork the row. A derived slug already owned by a
// different external id falls back to "<provider>-<id>".
func (svc *Service) resolveSlug(ctx context.Context, rec ExternalRecord) (string, error) {
	fallback := fmt.Sprintf("%s-%d", rec.provider(), rec.ExternalID)

	if rec.ExternalID > 0 {
		existing, err := svc.Retrieve(ctx, RetrieveEntryOptions{ExternalID: &rec.ExternalID})
		if err == nil {
			return existing.Slug, nil
		}
		if !errors.Is(err, errcodes.NotFound("Catalog entry")) {
			return "", err
		}
	}

	s := slug.Make(rec.Slug)
	if s == "" {
		return fallback, nil
	}
	if rec.ExternalID <= 0 {
		return s, nil
	}

	owner, err := svc.Retrieve(ctx, RetrieveEntryOptions{Slug: &s})
	if errors.Is(err, errcodes.NotFound("Catalog entry")) {
		return s, nil
	}
	if err != nil {
		return "", err
	}
	if owner.ExternalID != nil && *owner.ExternalID != rec.ExternalID {
		return fallback, nil
	}
	return s, nil
}

// UpsertBatch upserts recs in order. Records that fail are logged, counted
// and skipped; only cancellation stops the batch early.
func (svc *Service) UpsertBatch(ctx context.Context, recs []ExternalRecord) (BatchResult, error) {
	log := logger.FromContext(ctx)
	res := BatchResult{}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, errors.WithStack(err)
		}

		r, err := svc.Upsert(ctx, rec)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			res.Errors++
			metrics.CatalogRecords.WithLabelValues("error").Inc()
			log.Err(err).Warn("skipping catalog record", logger.Data{"record": rec.Label()})
			continue
		}

		res.Processed++
		if r.Created {
			res.Created++
			metrics.CatalogRecords.WithLabelValues("created").Inc()
		} else {
			res.Updated++
			metrics.CatalogRecords.WithLabelValues("updated").Inc()
		}
	}

	return res, nil
}

// SetVerifiedScore overwrites critic_score_b. A negative score records that the
// score was looked for and doesn't exist.
func (svc *Service) SetVerifiedScore(ctx context.Context, id int, score float64) (*models.CatalogEntry, error) {
	entry, err := svc.Retrieve(ctx, RetrieveEntryOptions{ID: &id})
	if err != nil {
		return nil, err
	}
	if score < 0 {
		score = models.VerifiedScoreNotFound
	}
	entry.CriticScoreB = &score
	entry.UpdatedAt = time.Now()

	_, err = svc.db.NewUpdate().
		Model(entry).
		Column("critic_score_b", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

// CreateManual adds a game the provider doesn't know about. The slug comes
// from the title, suffixed until it is free.
func (svc *Service) CreateManual(ctx context.Context, opts CreateManualOptions) (*models.CatalogEntry, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return nil, errcodes.ValidationError("Title is required.")
	}

	base := slug.Make(title)
	if base == "" {
		base = "game"
	}
	s := base
	for i := 2; ; i++ {
		exists, err := svc.db.NewSelect().
			Model((*models.CatalogEntry)(nil)).
			Where("ce.slug = ?", s).
			Exists(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !exists {
			break
		}
		s = base + "-" + strconv.Itoa(i)
	}

	now := time.Now()
	entry := &models.CatalogEntry{
		CreatedAt:       now,
		UpdatedAt:       now,
		Slug:            s,
		Title:           title,
		TitleNormalized: nonEmpty(normalize.Title(title)),
		CoverURL:        nonEmpty(opts.CoverURL),
		Description:     nonEmpty(htmlutil.StripTags(opts.Description)),
		Developer:       nonEmpty(strings.TrimSpace(opts.Developer)),
		Publisher:       nonEmpty(strings.TrimSpace(opts.Publisher)),
		Genres:          opts.Genres,
		Platforms:       opts.Platforms,
		ReleaseDate:     opts.ReleaseDate,
	}
	if opts.ReleaseDate != nil {
		year := opts.ReleaseDate.Year()
		entry.ReleaseYear = &year
	}

	_, err := svc.db.NewInsert().
		Model(entry).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

func (svc *Service) Retrieve(ctx context.Context, opts RetrieveEntryOptions) (*models.CatalogEntry, error) {
	entry := &models.CatalogEntry{}

	q := svc.db.
		NewSelect().
		Model(entry)

	switch {
	case opts.ID != nil:
		q = q.Where("ce.id = ?", *opts.ID)
	case opts.Slug != nil:
		q = q.Where("ce.slug = ?", *opts.Slug)
	case opts.ExternalID != nil:
		q = q.Where("ce.external_id = ?", *opts.ExternalID)
	case opts.SteamAppID != nil:
		q = q.Where("ce.steam_app_id = ?", *opts.SteamAppID).Order("ce.id ASC").Limit(1)
	default:
		return nil, errors.New("catalog retrieve needs an id, slug, external id or steam app id")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Catalog entry")
		}
		return nil, errors.WithStack(err)
	}

	return entry, nil
}

func (svc *Service) List(ctx context.Context, opts ListEntriesOptions) ([]*models.CatalogEntry, error) {
	e, _, err := svc.listWithTotal(ctx, opts)
	return e, errors.WithStack(err)
}

func (svc *Service) ListWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.CatalogEntry, int, error) {
	opts.includeTotal = true
	return svc.listWithTotal(ctx, opts)
}

func (svc *Service) listWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.CatalogEntry, int, error) {
	var entries []*models.CatalogEntry
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&entries).
		Order("ce.title ASC", "ce.id ASC")

	if opts.TitleNormalized != nil {
		q = q.Where("ce.title_normalized = ?", *opts.TitleNormalized)
	}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("ce.title_normalized LIKE ? ESCAPE '\\'", "%"+escapeLike(normalize.Title(*opts.Search))+"%")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return entries, total, nil
}

// Count returns the number of catalog entries. Zero means the catalog has
// never been populated.
func (svc *Service) Count(ctx context.Context) (int, error) {
	n, err := svc.db.NewSelect().
		Model((*models.CatalogEntry)(nil)).
		Count(ctx)
	return n, errors.WithStack(err)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
