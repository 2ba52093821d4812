package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/repository"
	"github.com/oggyb/ffm-club/internal/testutil"
)

func intPtr(v int) *int { return &v }

func TestProfileCreateGetDuplicate(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewProfileRepository(dbase)

	require.NoError(t, repo.Create(ctx, &db.Profile{ID: "u1", Username: "one"}))
	err := repo.Create(ctx, &db.Profile{ID: "u1", Username: "again"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repository.NewInteractionRepository(dbase).AddLike(ctx, "u1", "u2"))

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "one", p.Username)
	assert.Equal(t, []string{"u2"}, p.Likes)
	assert.Equal(t, []string{}, p.Favorites)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProfileUpdate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProfileRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, &db.Profile{ID: "u1", Username: "one", City: "Berlin"}))
	require.NoError(t, repo.Update(ctx, "u1", map[string]any{"about": "hello"}))
	// same values again still succeeds
	require.NoError(t, repo.Update(ctx, "u1", map[string]any{"about": "hello"}))

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hello", p.About)
	assert.Equal(t, "Berlin", p.City)

	err = repo.Update(ctx, "ghost", map[string]any{"about": "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementViews(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProfileRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, &db.Profile{ID: "u1", Username: "one"}))

	for i := 0; i < 3; i++ {
		ok, err := repo.IncrementViews(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.IncrementViews(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ProfileViews)
}

func TestListProfilesFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewProfileRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond)
	profiles := []db.Profile{
		{ID: "a", Username: "a", AccountType: "couple", City: "Berlin", Age: intPtr(20), Verified: true, CreatedAt: base.Add(-4 * time.Hour)},
		{ID: "b", Username: "b", AccountType: "couple", City: "Berlin", Age: intPtr(30), Verified: true, CreatedAt: base.Add(-3 * time.Hour)},
		{ID: "c", Username: "c", AccountType: "single", City: "Berlin", Age: intPtr(22), Verified: true, CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "d", Username: "d", AccountType: "couple", City: "Munich", Age: nil, Verified: true, CreatedAt: base.Add(-1 * time.Hour)},
		{ID: "e", Username: "e", AccountType: "couple", City: "Berlin", Age: intPtr(25), Verified: false, CreatedAt: base},
	}
	require.NoError(t, dbase.Create(&profiles).Error)

	all, _, err := repo.List(ctx, repository.ProfileFilter{}, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, ids(all))

	got, _, err := repo.List(ctx, repository.ProfileFilter{AccountType: "couple", City: "Berlin"}, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "b", "a"}, ids(got))

	got, _, err = repo.List(ctx, repository.ProfileFilter{VerifiedOnly: true}, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(got))

	// inclusive range; d has no age and is excluded
	got, _, err = repo.List(ctx, repository.ProfileFilter{AgeFrom: intPtr(18), AgeTo: intPtr(25)}, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c", "a"}, ids(got))
}

func TestListProfilesPagination(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewProfileRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, dbase.Create(&db.Profile{ID: id, Username: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}).Error)
	}

	page, next, err := repo.List(ctx, repository.ProfileFilter{}, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2"}, ids(page))
	require.NotNil(t, next)

	page, next, err = repo.List(ctx, repository.ProfileFilter{}, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(page))
	assert.Nil(t, next)

	bad := "!!"
	_, _, err = repo.List(ctx, repository.ProfileFilter{}, &bad, 2)
	assert.Error(t, err)
}

func ids(ps []db.Profile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
