package library

import (
	"context"
	"testing"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/reconcile"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steamItem(id, title string) CommitItem {
	return CommitItem{Source: models.SourceSteam, SourceID: id, Title: title, Platform: "PC"}
}

func TestService_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("adds new games and ignores others", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		res, err := svc.Commit(ctx, user.ID,
			[]CommitItem{steamItem("620", "Portal 2"), steamItem("400", "Portal")},
			[]CommitItem{steamItem("10", "Counter-Strike")},
		)
		require.NoError(t, err)
		assert.Equal(t, CommitResult{Added: 2, Ignored: 1}, res)

		entries, err := svc.ListEntries(ctx, ListEntriesOptions{UserID: user.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		ignored, err := svc.ListIgnored(ctx, user.ID, nil)
		require.NoError(t, err)
		require.Len(t, ignored, 1)
		assert.Equal(t, "10", ignored[0].SourceID)
	})

	t.Run("ignore wins when a game is in both lists", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		item := steamItem("620", "Portal 2")
		res, err := svc.Commit(ctx, user.ID, []CommitItem{item}, []CommitItem{item})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 1, res.Ignored)

		entries, err := svc.ListEntries(ctx, ListEntriesOptions{UserID: user.ID})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("ignoring an owned game removes it from the library", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		_, err := svc.Commit(ctx, user.ID, []CommitItem{steamItem("620", "Portal 2")}, nil)
		require.NoError(t, err)

		res, err := svc.Commit(ctx, user.ID, nil, []CommitItem{steamItem("620", "Portal 2")})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Ignored)

		entries, err := svc.ListEntries(ctx, ListEntriesOptions{UserID: user.ID})
		require.NoError(t, err)
		assert.Empty(t, entries)

		// Ignoring again is not an error and leaves one tombstone.
		res, err = svc.Commit(ctx, user.ID, nil, []CommitItem{steamItem("620", "Portal 2")})
		require.NoError(t, err)
		assert.Equal(t, CommitResult{Ignored: 1}, res)
		ignored, err := svc.ListIgnored(ctx, user.ID, nil)
		require.NoError(t, err)
		assert.Len(t, ignored, 1)
	})

	t.Run("re-adding refreshes metadata and keeps progress", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		_, err := svc.Commit(ctx, user.ID, []CommitItem{steamItem("620", "Portal 2")}, nil)
		require.NoError(t, err)

		id := models.Identity{Source: models.SourceSteam, SourceID: "620"}
		entry, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{UserID: &user.ID, Identity: &id})
		require.NoError(t, err)
		entry.Status = models.LibraryStatusPlaying
		entry.Progress = 40
		require.NoError(t, svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: []string{"status", "progress"}}))

		again := steamItem("620", "Portal 2")
		again.CoverURL = "https://cdn.example/620.jpg"
		res, err := svc.Commit(ctx, user.ID, []CommitItem{again}, nil)
		require.NoError(t, err)
		assert.Equal(t, CommitResult{Refreshed: 1}, res)

		entry, err = svc.RetrieveEntry(ctx, RetrieveEntryOptions{UserID: &user.ID, Identity: &id})
		require.NoError(t, err)
		assert.Equal(t, models.LibraryStatusPlaying, entry.Status)
		assert.Equal(t, 40, entry.Progress)
		assert.Equal(t, strPtr("https://cdn.example/620.jpg"), entry.CoverURL)
	})

	t.Run("a bad item is counted without stopping the batch", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		res, err := svc.Commit(ctx, user.ID, []CommitItem{
			{Source: models.Source("gog"), SourceID: "1", Title: "Witcher"},
			steamItem("620", "Portal 2"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, CommitResult{Added: 1, Errors: 1}, res)
	})

	t.Run("adding an ignored game lifts the tombstone", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		_, err := svc.Commit(ctx, user.ID, nil, []CommitItem{steamItem("620", "Portal 2")})
		require.NoError(t, err)
		res, err := svc.Commit(ctx, user.ID, []CommitItem{steamItem("620", "Portal 2")}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)

		ignored, err := svc.ListIgnored(ctx, user.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, ignored)
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		user := createTestUser(t, db, "ada")

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Commit(canceled, user.ID, []CommitItem{steamItem("620", "Portal 2")}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestService_RefreshExisting(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "ada")

	// Simulates the loser of a concurrent add: the row is already there.
	_, err := svc.CreateEntry(ctx, CreateEntryOptions{UserID: user.ID, Source: models.SourceSteam, SourceID: "620", Title: "Portal 2"})
	require.NoError(t, err)

	item := steamItem("620", "Portal 2: Complete")
	require.NoError(t, svc.refreshExisting(ctx, user.ID, item))

	entries, err := svc.ListEntries(ctx, ListEntriesOptions{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Portal 2: Complete", entries[0].Title)
	assert.Equal(t, strPtr("PC"), entries[0].Platform)
}

func TestService_RestoreIgnored(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	ada := createTestUser(t, db, "ada")
	bob := createTestUser(t, db, "bob")

	_, err := svc.Commit(ctx, ada.ID, nil, []CommitItem{steamItem("10", "Counter-Strike"), steamItem("20", "Team Fortress Classic")})
	require.NoError(t, err)
	ignored, err := svc.ListIgnored(ctx, ada.ID, nil)
	require.NoError(t, err)
	require.Len(t, ignored, 2)

	ids := []int{ignored[0].ID, ignored[1].ID}

	n, err := svc.RestoreIgnored(ctx, bob.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.RestoreIgnored(ctx, ada.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Restoring does not put the games in the library.
	entries, err := svc.ListEntries(ctx, ListEntriesOptions{UserID: ada.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err = svc.RestoreIgnored(ctx, ada.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestService_IdentitySets(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "ada")

	// "100" is owned and also carries a stale tombstone.
	_, err := svc.CreateEntry(ctx, CreateEntryOptions{UserID: user.ID, Source: models.SourceSteam, SourceID: "100", Title: "Counter-Strike: Condition Zero"})
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.IgnoredEntry{
		UserID:   user.ID,
		Source:   models.SourceSteam,
		SourceID: "100",
		Title:    "Counter-Strike: Condition Zero",
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = svc.Commit(ctx, user.ID, nil, []CommitItem{steamItem("200", "Deathmatch Classic")})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, CreateEntryOptions{UserID: user.ID, Source: models.SourceXbox, SourceID: "100", Title: "Other"})
	require.NoError(t, err)

	library, ignored, err := svc.IdentitySets(ctx, user.ID, models.SourceSteam)
	require.NoError(t, err)
	assert.Len(t, library, 1)
	assert.Len(t, ignored, 2)

	classified := reconcile.Classify([]sources.Candidate{
		{Source: models.SourceSteam, SourceID: "100", Title: "Counter-Strike: Condition Zero"},
		{Source: models.SourceSteam, SourceID: "200", Title: "Deathmatch Classic"},
		{Source: models.SourceSteam, SourceID: "300", Title: "Day of Defeat"},
	}, library, ignored)

	assert.Equal(t, reconcile.StateLibrary, classified[0].State)
	assert.Equal(t, reconcile.StateIgnored, classified[1].State)
	assert.False(t, classified[1].Selected)
	assert.Equal(t, reconcile.StateNew, classified[2].State)
}
