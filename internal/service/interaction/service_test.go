package interaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/service/interaction"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/testutil"
)

// setupService seeds profiles u1..u3 and wires an Interaction service.
func setupService(t *testing.T) (*interaction.Service, *profile.Service) {
	t.Helper()
	svc, profiles, _ := setupWithEnv(t)
	return svc, profiles
}

func setupWithEnv(t *testing.T) (*interaction.Service, *profile.Service, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	testutil.SeedProfiles(t, env.App.DB, "u1", "u2", "u3")

	profiles := profile.NewProfileService(env.App)
	return interaction.NewInteractionService(env.App, profiles), profiles, env
}

func ids(ps []db.Profile) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func like(t *testing.T, svc *interaction.Service, source, target string) bool {
	t.Helper()
	resp, err := svc.Like(context.Background(), &interaction.EdgeRequest{SourceID: source, TargetID: target})
	require.NoError(t, err)
	return resp.Matched
}

// TestLikeAndMutualMatch walks the register/like/like-back scenario.
func TestLikeAndMutualMatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	assert.False(t, like(t, svc, "u1", "u2"))
	assert.True(t, like(t, svc, "u2", "u1"))

	m1, err := svc.ListMatches(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids(m1.Profiles))

	m2, err := svc.ListMatches(ctx, &interaction.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids(m2.Profiles))
}

func TestUnlikeRemovesMatchFromBothViews(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	like(t, svc, "u1", "u2")
	like(t, svc, "u2", "u1")

	_, err := svc.Unlike(ctx, &interaction.EdgeRequest{SourceID: "u2", TargetID: "u1"})
	require.NoError(t, err)

	for _, id := range []string{"u1", "u2"} {
		m, err := svc.ListMatches(ctx, &interaction.UserRequest{UserID: id})
		require.NoError(t, err)
		assert.Empty(t, m.Profiles, "matches of %s", id)
	}

	// unliking again is a no-op
	_, err = svc.Unlike(ctx, &interaction.EdgeRequest{SourceID: "u2", TargetID: "u1"})
	assert.NoError(t, err)
}

func TestLikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, profiles := setupService(t)

	like(t, svc, "u1", "u2")
	like(t, svc, "u1", "u2")

	p, err := profiles.GetProfile(ctx, &profile.GetProfileRequest{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, p.Likes)
}

func TestLikeErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, &interaction.EdgeRequest{SourceID: "u1", TargetID: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidOperation), "got %v", err)

	_, err = svc.Like(ctx, &interaction.EdgeRequest{SourceID: "u1", TargetID: "ghost"})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound), "got %v", err)

	_, err = svc.Like(ctx, &interaction.EdgeRequest{SourceID: "ghost", TargetID: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound), "got %v", err)

	_, err = svc.Unlike(ctx, &interaction.EdgeRequest{SourceID: "ghost", TargetID: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound), "got %v", err)
}

func TestFavoriteThenUnfavorite(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Favorite(ctx, &interaction.EdgeRequest{SourceID: "u1", TargetID: "u2"})
	require.NoError(t, err)

	favs, err := svc.ListFavoriteProfiles(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids(favs.Profiles))

	// favorites are independent of likes
	liked, err := svc.ListLikedProfiles(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, liked.Profiles)

	_, err = svc.Unfavorite(ctx, &interaction.EdgeRequest{SourceID: "u1", TargetID: "u2"})
	require.NoError(t, err)

	favs, err = svc.ListFavoriteProfiles(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids(favs.Profiles))

	_, err = svc.Favorite(ctx, &interaction.EdgeRequest{SourceID: "u1", TargetID: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidOperation))
}

func TestListLikedProfilesSkipsMissing(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	testutil.SeedProfiles(t, env.App.DB, "u1", "u2", "u3")
	svc := interaction.NewInteractionService(env.App, profile.NewProfileService(env.App))

	like(t, svc, "u1", "u2")
	like(t, svc, "u1", "u3")
	// u3 disappears behind the service's back
	require.NoError(t, env.App.DB.Where("id = ?", "u3").Delete(&db.Profile{}).Error)

	liked, err := svc.ListLikedProfiles(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids(liked.Profiles))
}

func TestListAdmirers(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	like(t, svc, "u2", "u1")
	like(t, svc, "u3", "u1")
	like(t, svc, "u1", "u3") // mutual, not an admirer anymore

	resp, err := svc.ListAdmirers(ctx, &interaction.ListAdmirersRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, resp.Admirers, 1)
	assert.Equal(t, "u2", resp.Admirers[0].UserID)
	assert.Nil(t, resp.NextPaginationToken)
}

func TestCountAdmirersUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, _, env := setupWithEnv(t)
	key := env.App.RedisCache.KeyForAdmirerCount("u1")

	like(t, svc, "u2", "u1")
	like(t, svc, "u3", "u1")

	first, err := svc.CountAdmirers(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Count)
	assert.True(t, env.Redis.Exists(key))

	// liking back turns u3 into a match and drops the cached value
	like(t, svc, "u1", "u3")
	assert.False(t, env.Redis.Exists(key))

	second, err := svc.CountAdmirers(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Count)

	_, err = svc.Unlike(ctx, &interaction.EdgeRequest{SourceID: "u2", TargetID: "u1"})
	require.NoError(t, err)
	third, err := svc.CountAdmirers(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), third.Count)

	_, err = svc.CountAdmirers(ctx, &interaction.UserRequest{UserID: "ghost"})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound), "got %v", err)
}

func TestCountAdmirersSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	svc, _, env := setupWithEnv(t)
	like(t, svc, "u2", "u1")

	env.Redis.Close()
	resp, err := svc.CountAdmirers(ctx, &interaction.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Count)
}
