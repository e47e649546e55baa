// Package accounts stores the platform accounts users link for scanning. API
// keys are encrypted at rest and only decrypted right before a scan.
package accounts

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// SaveAccountOptions describes a PUT of an account. A nil APIKey keeps the
// stored key; an empty one clears it.
type SaveAccountOptions struct {
	UserID    int
	Source    models.Source
	AccountID string
	APIKey    *string
}

type Service struct {
	db  *bun.DB
	enc *secrets.Encryptor
}

func NewService(db *bun.DB, enc *secrets.Encryptor) *Service {
	return &Service{db: db, enc: enc}
}

func (svc *Service) Save(ctx context.Context, opts SaveAccountOptions) (*models.SourceAccount, error) {
	if !opts.Source.Scannable() {
		return nil, errcodes.UnsupportedSource(opts.Source.String())
	}

	existing, err := svc.Retrieve(ctx, opts.UserID, opts.Source)
	if err != nil && !errors.Is(err, errcodes.NotFound("Source account")) {
		return nil, err
	}

	now := time.Now()
	account := &models.SourceAccount{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    opts.UserID,
		Source:    opts.Source,
		AccountID: strings.TrimSpace(opts.AccountID),
	}
	if existing != nil {
		account.CreatedAt = existing.CreatedAt
		account.APIKeyEncrypted = existing.APIKeyEncrypted
	}

	if opts.APIKey != nil {
		key := strings.TrimSpace(*opts.APIKey)
		if key == "" {
			account.APIKeyEncrypted = nil
		} else {
			sealed, err := svc.enc.Encrypt(key)
			if err != nil {
				return nil, errors.Wrap(err, "encrypt api key")
			}
			account.APIKeyEncrypted = &sealed
		}
	}

	_, err = svc.db.NewInsert().
		Model(account).
		On("CONFLICT (user_id, source) DO UPDATE").
		Set("account_id = EXCLUDED.account_id").
		Set("api_key_encrypted = EXCLUDED.api_key_encrypted").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return account, nil
}

func (svc *Service) Retrieve(ctx context.Context, userID int, source models.Source) (*models.SourceAccount, error) {
	account := &models.SourceAccount{}
	err := svc.db.NewSelect().
		Model(account).
		Where("sa.user_id = ?", userID).
		Where("sa.source = ?", source).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Source account")
		}
		return nil, errors.WithStack(err)
	}
	return account, nil
}

func (svc *Service) List(ctx context.Context, userID int) ([]*models.SourceAccount, error) {
	accounts := []*models.SourceAccount{}
	err := svc.db.NewSelect().
		Model(&accounts).
		Where("sa.user_id = ?", userID).
		Order("sa.source ASC").
		Scan(ctx)
	return accounts, errors.WithStack(err)
}

func (svc *Service) Delete(ctx context.Context, userID int, source models.Source) error {
	res, err := svc.db.NewDelete().
		Model((*models.SourceAccount)(nil)).
		Where("user_id = ?", userID).
		Where("source = ?", source).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Source account")
	}
	return nil
}

// Credentials loads and decrypts what a scan of source needs.
func (svc *Service) Credentials(ctx context.Context, userID int, source models.Source) (sources.Credentials, error) {
	account, err := svc.Retrieve(ctx, userID, source)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Source account")) {
			return sources.Credentials{}, errcodes.MissingCredentials(source.DisplayName())
		}
		return sources.Credentials{}, err
	}

	creds := sources.Credentials{AccountID: account.AccountID}
	if account.HasAPIKey() {
		key, err := svc.enc.Decrypt(*account.APIKeyEncrypted)
		if err != nil {
			// A key sealed under another credential secret can't be used
			// until the account is linked again.
			if errors.Is(err, secrets.ErrDecryptionFailed) || errors.Is(err, secrets.ErrInvalidCiphertext) {
				return sources.Credentials{}, &upstream.AuthError{Service: source.String(), Err: err}
			}
			return sources.Credentials{}, errors.Wrapf(err, "decrypt %s api key", source)
		}
		creds.APIKey = key
	}
	return creds, nil
}
