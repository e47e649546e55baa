package library

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ludotheque/ludotheque/pkg/database"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/sortname"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveEntryOptions struct {
	ID       *int
	UserID   *int
	Identity *models.Identity
}

type ListEntriesOptions struct {
	UserID int
	Limit  *int
	Offset *int
	Source *models.Source
	Status *string

	includeTotal bool
}

type CreateEntryOptions struct {
	UserID   int
	Source   models.Source
	SourceID string
	Title    string
	Platform string
	CoverURL string
	Status   string
}

type UpdateEntryOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// ManualSourceID returns a fresh source id for a game added by hand.
func ManualSourceID() string {
	return "manual-" + uuid.NewString()
}

// CatalogSourceID is the source id of a game added straight from the catalog.
func CatalogSourceID(catalogEntryID int) string {
	return models.CatalogSourceIDPrefix + strconv.Itoa(catalogEntryID)
}

// CreateEntry adds one game to the user's library. An identity that already
// exists is a 409.
func (svc *Service) CreateEntry(ctx context.Context, opts CreateEntryOptions) (*models.LibraryEntry, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return nil, errcodes.ValidationError("Title is required.")
	}
	if !opts.Source.Valid() {
		return nil, errcodes.ValidationError("Unknown source.")
	}
	if opts.SourceID == "" {
		return nil, errcodes.ValidationError("Source id is required.")
	}
	status := opts.Status
	if status == "" {
		status = models.LibraryStatusBacklog
	}

	now := time.Now()
	entry := &models.LibraryEntry{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    opts.UserID,
		Source:    opts.Source,
		SourceID:  opts.SourceID,
		Title:     title,
		SortTitle: sortname.Key(title),
		Platform:  nonEmpty(opts.Platform),
		CoverURL:  nonEmpty(opts.CoverURL),
		Status:    status,
	}

	_, err := svc.db.NewInsert().
		Model(entry).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errcodes.Conflict("This game is already in your library.")
		}
		return nil, errors.WithStack(err)
	}
	metrics.LibraryWrites.WithLabelValues("create").Inc()
	return entry, nil
}

func (svc *Service) RetrieveEntry(ctx context.Context, opts RetrieveEntryOptions) (*models.LibraryEntry, error) {
	entry := &models.LibraryEntry{}

	q := svc.db.
		NewSelect().
		Model(entry)

	if opts.ID != nil {
		q = q.Where("le.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("le.user_id = ?", *opts.UserID)
	}
	if opts.Identity != nil {
		q = q.Where("le.source = ? AND le.source_id = ?", opts.Identity.Source, opts.Identity.SourceID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library entry")
		}
		return nil, errors.WithStack(err)
	}

	return entry, nil
}

func (svc *Service) ListEntries(ctx context.Context, opts ListEntriesOptions) ([]*models.LibraryEntry, error) {
	e, _, err := svc.listEntriesWithTotal(ctx, opts)
	return e, errors.WithStack(err)
}

func (svc *Service) ListEntriesWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.LibraryEntry, int, error) {
	opts.includeTotal = true
	return svc.listEntriesWithTotal(ctx, opts)
}

func (svc *Service) listEntriesWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.LibraryEntry, int, error) {
	var entries []*models.LibraryEntry
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&entries).
		Where("le.user_id = ?", opts.UserID).
		Order("le.sort_title ASC", "le.id ASC")

	if opts.Source != nil {
		q = q.Where("le.source = ?", *opts.Source)
	}
	if opts.Status != nil {
		q = q.Where("le.status = ?", *opts.Status)
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

func (svc *Service) UpdateEntry(ctx context.Context, entry *models.LibraryEntry, opts UpdateEntryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	entry.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")
	for _, c := range opts.Columns {
		if c == "title" {
			entry.SortTitle = sortname.Key(entry.Title)
			columns = append(columns, "sort_title")
			break
		}
	}

	_, err := svc.db.
		NewUpdate().
		Model(entry).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	metrics.LibraryWrites.WithLabelValues("update").Inc()
	return nil
}

func (svc *Service) DeleteEntry(ctx context.Context, userID, id int) error {
	res, err := svc.db.NewDelete().
		Model((*models.LibraryEntry)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Library entry")
	}
	metrics.LibraryWrites.WithLabelValues("delete").Inc()
	return nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
