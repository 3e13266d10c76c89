package gormstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikepea/shorturls/pkg/shorturls/database"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
	"github.com/mikepea/shorturls/pkg/shorturls/store/gormstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *gormstore.Store {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return gormstore.New(db)
}

func newLink(code string) *models.Link {
	return &models.Link{Code: code, Destination: "https://example.com/" + code, Active: true}
}

func TestInsertUnique(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	link, err := s.InsertUnique(ctx, newLink("abc"))
	require.NoError(t, err)
	assert.NotZero(t, link.ID)
	assert.True(t, link.Active)
	assert.Equal(t, int64(0), link.Clicks)
	assert.False(t, link.CreatedAt.IsZero())

	_, err = s.InsertUnique(ctx, newLink("abc"))
	assert.ErrorIs(t, err, store.ErrCodeTaken)
}

func TestInsertUnique_ConcurrentSameCode(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertUnique(ctx, newLink("race"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, store.ErrCodeTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, taken)
}

func TestFind(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.InsertUnique(ctx, newLink("find-me"))
	require.NoError(t, err)

	byCode, err := s.FindByCode(ctx, "find-me")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "find-me", byID.Code)

	_, err = s.FindByCode(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, code := range []string{"one", "two", "three"} {
		_, err := s.InsertUnique(ctx, newLink(code))
		require.NoError(t, err)
	}

	links, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "three", links[0].Code)
	assert.Equal(t, "one", links[2].Code)
}

func TestUpdateByID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.InsertUnique(ctx, newLink("old"))
	require.NoError(t, err)
	require.NoError(t, s.IncrementClicks(ctx, created, time.Now()))
	time.Sleep(2 * time.Millisecond)

	code := "new"
	title := "Renamed"
	inactive := false
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := s.UpdateByID(ctx, created.ID, store.Changes{
		Code:      &code,
		Title:     &title,
		Active:    &inactive,
		ExpiresAt: &expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Code)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.Active)
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, expires.Equal(*updated.ExpiresAt))
	assert.Equal(t, created.Destination, updated.Destination)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, int64(1), updated.Clicks)

	cleared, err := s.UpdateByID(ctx, created.ID, store.Changes{ClearExpiresAt: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ExpiresAt)

	// The old code is free again
	_, err = s.InsertUnique(ctx, newLink("old"))
	assert.NoError(t, err)
}

func TestUpdateByID_CodeClash(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, err := s.InsertUnique(ctx, newLink("a"))
	require.NoError(t, err)
	_, err = s.InsertUnique(ctx, newLink("b"))
	require.NoError(t, err)

	code := "b"
	_, err = s.UpdateByID(ctx, a.ID, store.Changes{Code: &code})
	assert.ErrorIs(t, err, store.ErrCodeTaken)

	same := "a"
	updated, err := s.UpdateByID(ctx, a.ID, store.Changes{Code: &same})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.Code)
}

func TestUpdateByID_NotFound(t *testing.T) {
	s := setupStore(t)

	title := "x"
	_, err := s.UpdateByID(context.Background(), 42, store.Changes{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteByID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.InsertUnique(ctx, newLink("gone"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(ctx, created.ID))
	assert.ErrorIs(t, s.DeleteByID(ctx, created.ID), store.ErrNotFound)

	_, err = s.InsertUnique(ctx, newLink("gone"))
	assert.NoError(t, err)
}

func TestIncrementClicks_Concurrent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.InsertUnique(ctx, newLink("hot"))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementClicks(ctx, created, time.Now()))
		}()
	}
	wg.Wait()

	loaded, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), loaded.Clicks)
	assert.Equal(t, created.UpdatedAt.Unix(), loaded.UpdatedAt.Unix())

	missing := newLink("nobody")
	missing.ID = 9999
	assert.ErrorIs(t, s.IncrementClicks(ctx, missing, time.Now()), store.ErrStale)
}

func TestIncrementClicks_RejectsStaleSnapshot(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	inactive := false
	other := "https://elsewhere.example"
	moved := "moved"
	past := now.Add(-time.Minute)

	tests := []struct {
		name    string
		code    string
		changes store.Changes
	}{
		{"deactivated", "off", store.Changes{Active: &inactive}},
		{"destination changed", "redirected", store.Changes{Destination: &other}},
		{"code changed", "renamed", store.Changes{Code: &moved}},
		{"expired", "lapsed", store.Changes{ExpiresAt: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := s.InsertUnique(ctx, newLink(tt.code))
			require.NoError(t, err)

			_, err = s.UpdateByID(ctx, snapshot.ID, tt.changes)
			require.NoError(t, err)

			assert.ErrorIs(t, s.IncrementClicks(ctx, snapshot, now), store.ErrStale)

			loaded, err := s.FindByID(ctx, snapshot.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), loaded.Clicks)
		})
	}
}

func TestIncrementClicks_DeletedSnapshot(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	old, err := s.InsertUnique(ctx, newLink("reused"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteByID(ctx, old.ID))

	fresh, err := s.InsertUnique(ctx, newLink("reused"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.IncrementClicks(ctx, old, time.Now()), store.ErrStale)
	assert.NoError(t, s.IncrementClicks(ctx, fresh, time.Now()))

	loaded, err := s.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Clicks)
}
