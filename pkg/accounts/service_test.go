package accounts

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/migrations"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func newTestService(t *testing.T) (*Service, *bun.DB) {
	t.Helper()
	db := setupTestDB(t)
	enc, err := secrets.NewEncryptor("test-secret")
	require.NoError(t, err)
	return NewService(db, enc), db
}

func strPtr(s string) *string { return &s }

func TestService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the key encrypted and decrypts it for scans", func(t *testing.T) {
		svc, db := newTestService(t)
		user := createTestUser(t, db, "ada")

		account, err := svc.Save(ctx, SaveAccountOptions{
			UserID:    user.ID,
			Source:    models.SourceSteam,
			AccountID: " 76561197960287930 ",
			APIKey:    strPtr("steam-key"),
		})
		require.NoError(t, err)
		assert.NotZero(t, account.ID)
		assert.True(t, account.HasAPIKey())
		assert.NotContains(t, *account.APIKeyEncrypted, "steam-key")

		var raw string
		err = db.NewSelect().Table("source_accounts").Column("api_key_encrypted").Scan(ctx, &raw)
		require.NoError(t, err)
		assert.NotEqual(t, "steam-key", raw)

		creds, err := svc.Credentials(ctx, user.ID, models.SourceSteam)
		require.NoError(t, err)
		assert.Equal(t, "76561197960287930", creds.AccountID)
		assert.Equal(t, "steam-key", creds.APIKey)
	})

	t.Run("keeps the key when none is sent and clears it when empty", func(t *testing.T) {
		svc, db := newTestService(t)
		user := createTestUser(t, db, "ada")

		first, err := svc.Save(ctx, SaveAccountOptions{UserID: user.ID, Source: models.SourceXbox, APIKey: strPtr("xbl")})
		require.NoError(t, err)

		second, err := svc.Save(ctx, SaveAccountOptions{UserID: user.ID, Source: models.SourceXbox, AccountID: "2533274800000000"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		creds, err := svc.Credentials(ctx, user.ID, models.SourceXbox)
		require.NoError(t, err)
		assert.Equal(t, "xbl", creds.APIKey)
		assert.Equal(t, "2533274800000000", creds.AccountID)

		_, err = svc.Save(ctx, SaveAccountOptions{UserID: user.ID, Source: models.SourceXbox, APIKey: strPtr("")})
		require.NoError(t, err)
		creds, err = svc.Credentials(ctx, user.ID, models.SourceXbox)
		require.NoError(t, err)
		assert.Empty(t, creds.APIKey)

		accounts, err := svc.List(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})

	t.Run("refuses sources without a scanner", func(t *testing.T) {
		svc, db := newTestService(t)
		user := createTestUser(t, db, "ada")

		_, err := svc.Save(ctx, SaveAccountOptions{UserID: user.ID, Source: models.SourceManual})
		assert.True(t, errors.Is(err, errcodes.UnsupportedSource("manual")))
	})
}

func TestService_Credentials(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	user := createTestUser(t, db, "ada")

	_, err := svc.Credentials(ctx, user.ID, models.SourceRetroAchievements)
	assert.True(t, errors.Is(err, errcodes.MissingCredentials("RetroAchievements")))

	// A key sealed under another secret can't be read back.
	other, err := secrets.NewEncryptor("rotated")
	require.NoError(t, err)
	sealed, err := other.Encrypt("ra-key")
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.SourceAccount{
		UserID:          user.ID,
		Source:          models.SourceRetroAchievements,
		AccountID:       "MaxMilyin",
		APIKeyEncrypted: &sealed,
	}).Exec(ctx)
	require.NoError(t, err)

	_, err = svc.Credentials(ctx, user.ID, models.SourceRetroAchievements)
	assert.True(t, errors.Is(err, secrets.ErrDecryptionFailed))
	assert.True(t, upstream.IsAuthError(err))

	// So can a value that was never ciphertext.
	garbage := "not base64 at all"
	_, err = db.NewUpdate().Model((*models.SourceAccount)(nil)).
		Set("api_key_encrypted = ?", garbage).
		Where("user_id = ?", user.ID).
		Exec(ctx)
	require.NoError(t, err)

	_, err = svc.Credentials(ctx, user.ID, models.SourceRetroAchievements)
	assert.True(t, errors.Is(err, secrets.ErrInvalidCiphertext))
	assert.True(t, upstream.IsAuthError(err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	user := createTestUser(t, db, "ada")

	_, err := svc.Save(ctx, SaveAccountOptions{UserID: user.ID, Source: models.SourceSteam, AccountID: "gaben"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID, models.SourceSteam))
	err = svc.Delete(ctx, user.ID, models.SourceSteam)
	assert.True(t, errors.Is(err, errcodes.NotFound("Source account")))
}
