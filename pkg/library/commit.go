package library

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/database"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/reconcile"
	"github.com/ludotheque/ludotheque/pkg/sortname"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// CommitItem is a scanned game the user chose to add or ignore.
type CommitItem struct {
	Source   models.Source `json:"source" validate:"required"`
	SourceID string        `json:"source_id" validate:"required,max=200"`
	Title    string        `json:"title" validate:"required,max=500"`
	Platform string        `json:"platform,omitempty" validate:"max=100"`
	CoverURL string        `json:"cover_url,omitempty" validate:"max=2000"`
}

func (i CommitItem) Identity() models.Identity {
	return models.Identity{Source: i.Source, SourceID: i.SourceID}
}

// CommitResult counts what a commit did. Refreshed are adds that matched an
// existing entry.
type CommitResult struct {
	Added     int `json:"added"`
	Refreshed int `json:"refreshed"`
	Ignored   int `json:"ignored"`
	Errors    int `json:"errors"`
}

// Commit applies the user's choices after a scan. Each item is written on its
// own; one failing item doesn't stop the rest. An identity that is both added
// and ignored ends up ignored.
func (svc *Service) Commit(ctx context.Context, userID int, add, ignore []CommitItem) (CommitResult, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"user_id": userID})
	res := CommitResult{}

	ignoring := reconcile.NewIdentitySet()
	for _, item := range ignore {
		ignoring.Add(item.Identity())
	}

	for _, item := range add {
		if err := ctx.Err(); err != nil {
			return res, errors.WithStack(err)
		}
		if ignoring.Has(item.Identity()) {
			continue
		}

		created, err := svc.addItem(ctx, userID, item)
		if err != nil {
			res.Errors++
			log.Err(err).Warn("failed to add library entry", logger.Data{"identity": item.Identity().String()})
			continue
		}
		if created {
			res.Added++
		} else {
			res.Refreshed++
		}
	}

	for _, item := range ignore {
		if err := ctx.Err(); err != nil {
			return res, errors.WithStack(err)
		}
		if err := svc.ignoreItem(ctx, userID, item); err != nil {
			res.Errors++
			log.Err(err).Warn("failed to ignore game", logger.Data{"identity": item.Identity().String()})
			continue
		}
		res.Ignored++
	}

	log.Info("library commit", logger.Data{
		"added":     res.Added,
		"refreshed": res.Refreshed,
		"ignored":   res.Ignored,
		"errors":    res.Errors,
	})
	return res, nil
}

// addItem creates the entry, or refreshes the existing one. created reports
// which happened. Adding an ignored game lifts its tombstone.
func (svc *Service) addItem(ctx context.Context, userID int, item CommitItem) (created bool, err error) {
	if !item.Source.Valid() || strings.TrimSpace(item.SourceID) == "" {
		return false, errcodes.ValidationError("Invalid source identity.")
	}
	id := item.Identity()

	existing, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{UserID: &userID, Identity: &id})
	if err != nil && !errors.Is(err, errcodes.NotFound("Library entry")) {
		return false, err
	}
	if existing != nil {
		return false, svc.refreshExisting(ctx, userID, item)
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		entry := &models.LibraryEntry{
			CreatedAt: now,
			UpdatedAt: now,
			UserID:    userID,
			Source:    item.Source,
			SourceID:  item.SourceID,
			Title:     strings.TrimSpace(item.Title),
			Platform:  nonEmpty(item.Platform),
			CoverURL:  nonEmpty(item.CoverURL),
			Status:    models.LibraryStatusBacklog,
		}
		entry.SortTitle = sortname.Key(entry.Title)
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		return deleteTombstone(ctx, tx, userID, id)
	})
	if err != nil {
		// Lost a race with a concurrent add of the same game.
		if database.IsUniqueViolation(err) {
			return false, svc.refreshExisting(ctx, userID, item)
		}
		return false, errors.WithStack(err)
	}

	metrics.LibraryWrites.WithLabelValues("create").Inc()
	return true, nil
}

// refreshExisting updates the platform metadata of an entry that already
// exists. The user's own fields (status, progress, rating) are left alone.
func (svc *Service) refreshExisting(ctx context.Context, userID int, item CommitItem) error {
	id := item.Identity()
	entry, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{UserID: &userID, Identity: &id})
	if err != nil {
		return err
	}

	var columns []string
	if title := strings.TrimSpace(item.Title); title != "" && title != entry.Title {
		entry.Title = title
		columns = append(columns, "title")
	}
	if p := nonEmpty(item.Platform); p != nil && (entry.Platform == nil || *entry.Platform != *p) {
		entry.Platform = p
		columns = append(columns, "platform")
	}
	if c := nonEmpty(item.CoverURL); c != nil && (entry.CoverURL == nil || *entry.CoverURL != *c) {
		entry.CoverURL = c
		columns = append(columns, "cover_url")
	}

	return svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: columns})
}

// ignoreItem records the tombstone and drops any library entry for the same
// identity, atomically.
func (svc *Service) ignoreItem(ctx context.Context, userID int, item CommitItem) error {
	if !item.Source.Valid() || strings.TrimSpace(item.SourceID) == "" {
		return errcodes.ValidationError("Invalid source identity.")
	}
	id := item.Identity()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.IgnoredEntry)(nil)).
			Where("ie.user_id = ? AND ie.source = ? AND ie.source_id = ?", userID, id.Source, id.SourceID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			tombstone := &models.IgnoredEntry{
				CreatedAt: time.Now(),
				UserID:    userID,
				Source:    item.Source,
				SourceID:  item.SourceID,
				Title:     strings.TrimSpace(item.Title),
			}
			_, err := tx.NewInsert().Model(tombstone).Exec(ctx)
			if err != nil && !database.IsUniqueViolation(err) {
				return err
			}
		}

		_, err = tx.NewDelete().
			Model((*models.LibraryEntry)(nil)).
			Where("user_id = ? AND source = ? AND source_id = ?", userID, id.Source, id.SourceID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}

	metrics.LibraryWrites.WithLabelValues("ignore").Inc()
	return nil
}

func deleteTombstone(ctx context.Context, db bun.IDB, userID int, id models.Identity) error {
	_, err := db.NewDelete().
		Model((*models.IgnoredEntry)(nil)).
		Where("user_id = ? AND source = ? AND source_id = ?", userID, id.Source, id.SourceID).
		Exec(ctx)
	return err
}

func (svc *Service) ListIgnored(ctx context.Context, userID int, source *models.Source) ([]*models.IgnoredEntry, error) {
	entries := []*models.IgnoredEntry{}
	q := svc.db.NewSelect().
		Model(&entries).
		Where("ie.user_id = ?", userID).
		Order("ie.created_at DESC", "ie.id DESC")
	if source != nil {
		q = q.Where("ie.source = ?", *source)
	}
	err := q.Scan(ctx)
	return entries, errors.WithStack(err)
}

// RestoreIgnored deletes the user's tombstones with the given ids. The games
// are not added back; they just show up as new on the next scan.
func (svc *Service) RestoreIgnored(ctx context.Context, userID int, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := svc.db.NewDelete().
		Model((*models.IgnoredEntry)(nil)).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	metrics.LibraryWrites.WithLabelValues("restore").Add(float64(n))
	return int(n), nil
}

// IdentitySets loads the identities of the user's library entries and
// tombstones for one source, for reconciliation.
func (svc *Service) IdentitySets(ctx context.Context, userID int, source models.Source) (library, ignored reconcile.IdentitySet, err error) {
	var owned []models.Identity
	err = svc.db.NewSelect().
		Model((*models.LibraryEntry)(nil)).
		Column("source", "source_id").
		Where("le.user_id = ? AND le.source = ?", userID, source).
		Scan(ctx, &owned)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	var skipped []models.Identity
	err = svc.db.NewSelect().
		Model((*models.IgnoredEntry)(nil)).
		Column("source", "source_id").
		Where("ie.user_id = ? AND ie.source = ?", userID, source).
		Scan(ctx, &skipped)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	return reconcile.NewIdentitySet(owned...), reconcile.NewIdentitySet(skipped...), nil
}
