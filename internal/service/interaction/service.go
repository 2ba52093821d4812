package interaction

import (
	"context"

	"github.com/oggyb/ffm-club/internal/app"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/metrics"
	"github.com/oggyb/ffm-club/internal/repository"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/utils/pagination"
)

// Service manages like and favorite edges and derives matches.
// Profiles are checked and hydrated through the Profile service.
type Service struct {
	appCtx       *app.AppContext
	profiles     *profile.Service
	interactions *repository.InteractionRepository
}

func NewInteractionService(appCtx *app.AppContext, profiles *profile.Service) *Service {
	return &Service{
		appCtx:       appCtx,
		profiles:     profiles,
		interactions: repository.NewInteractionRepository(appCtx.DB),
	}
}

// Like adds target to source's likes and reports whether target already
// likes source back.
//
// Behavior:
//   - Self-like fails with InvalidOperation.
//   - Both profiles must exist, otherwise NotFound.
//   - Repeating a like changes nothing; the match check still runs.
//
// Example:
//
//	svc.Like(ctx, &EdgeRequest{SourceID: "u2", TargetID: "u1"}) // -> matched if u1 liked u2
func (s *Service) Like(ctx context.Context, req *EdgeRequest) (*LikeResponse, error) {
	s.appCtx.Logger.Debug("Like called", "source", req.SourceID, "target", req.TargetID)

	if err := s.checkPair(ctx, req, "like"); err != nil {
		return nil, err
	}
	if err := s.interactions.AddLike(ctx, req.SourceID, req.TargetID); err != nil {
		s.appCtx.Logger.Error("AddLike failed", "err", err)
		return nil, svcErr.Translate(err, "failed to store like")
	}

	matched, err := s.interactions.HasLiked(ctx, req.TargetID, req.SourceID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to check match")
	}
	metrics.RecordLike(matched)

	s.dropAdmirerCache(ctx, req.SourceID, req.TargetID)
	s.profiles.Notify(ctx, req.SourceID)
	return &LikeResponse{Matched: matched}, nil
}

// Unlike removes target from source's likes. Missing edges are fine;
// a missing source profile is NotFound.
func (s *Service) Unlike(ctx context.Context, req *EdgeRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("Unlike called", "source", req.SourceID, "target", req.TargetID)

	if err := s.checkSource(ctx, req.SourceID); err != nil {
		return nil, err
	}
	if err := s.interactions.RemoveLike(ctx, req.SourceID, req.TargetID); err != nil {
		return nil, svcErr.Translate(err, "failed to remove like")
	}
	s.dropAdmirerCache(ctx, req.SourceID, req.TargetID)
	s.profiles.Notify(ctx, req.SourceID)
	return &Ack{}, nil
}

// Favorite bookmarks target for source. Same checks as Like; no
// reciprocity.
func (s *Service) Favorite(ctx context.Context, req *EdgeRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("Favorite called", "source", req.SourceID, "target", req.TargetID)

	if err := s.checkPair(ctx, req, "favorite"); err != nil {
		return nil, err
	}
	if err := s.interactions.AddFavorite(ctx, req.SourceID, req.TargetID); err != nil {
		return nil, svcErr.Translate(err, "failed to store favorite")
	}
	s.profiles.Notify(ctx, req.SourceID)
	return &Ack{}, nil
}

func (s *Service) Unfavorite(ctx context.Context, req *EdgeRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("Unfavorite called", "source", req.SourceID, "target", req.TargetID)

	if err := s.checkSource(ctx, req.SourceID); err != nil {
		return nil, err
	}
	if err := s.interactions.RemoveFavorite(ctx, req.SourceID, req.TargetID); err != nil {
		return nil, svcErr.Translate(err, "failed to remove favorite")
	}
	s.profiles.Notify(ctx, req.SourceID)
	return &Ack{}, nil
}

// ListLikedProfiles hydrates the user's likes, skipping ids whose profile
// cannot be loaded.
func (s *Service) ListLikedProfiles(ctx context.Context, req *UserRequest) (*ProfilesResponse, error) {
	s.appCtx.Logger.Debug("ListLikedProfiles called", "user", req.UserID)

	if err := s.checkSource(ctx, req.UserID); err != nil {
		return nil, err
	}
	ids, err := s.interactions.LikedIDs(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load likes")
	}
	return &ProfilesResponse{Profiles: s.profiles.Hydrate(ctx, ids)}, nil
}

// ListFavoriteProfiles hydrates the user's favorites best-effort.
func (s *Service) ListFavoriteProfiles(ctx context.Context, req *UserRequest) (*ProfilesResponse, error) {
	s.appCtx.Logger.Debug("ListFavoriteProfiles called", "user", req.UserID)

	if err := s.checkSource(ctx, req.UserID); err != nil {
		return nil, err
	}
	ids, err := s.interactions.FavoriteIDs(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load favorites")
	}
	return &ProfilesResponse{Profiles: s.profiles.Hydrate(ctx, ids)}, nil
}

// ListMatches returns the profiles of users who like req.UserID back among
// those req.UserID likes.
func (s *Service) ListMatches(ctx context.Context, req *UserRequest) (*ProfilesResponse, error) {
	s.appCtx.Logger.Debug("ListMatches called", "user", req.UserID)

	if err := s.checkSource(ctx, req.UserID); err != nil {
		return nil, err
	}
	ids, err := s.interactions.MatchIDs(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load matches")
	}
	return &ProfilesResponse{Profiles: s.profiles.Hydrate(ctx, ids)}, nil
}

// ListAdmirers returns users who liked req.UserID and were not liked back,
// newest first, with cursor pagination.
func (s *Service) ListAdmirers(ctx context.Context, req *ListAdmirersRequest) (*ListAdmirersResponse, error) {
	s.appCtx.Logger.Debug("ListAdmirers called", "user", req.UserID, "token", req.PaginationToken)

	if err := s.checkSource(ctx, req.UserID); err != nil {
		return nil, err
	}
	social := s.appCtx.Config.Social
	limit := pagination.ClampLimit(req.Limit, social.DefaultPageSize, social.MaxPageSize)

	likes, next, err := s.interactions.Admirers(ctx, req.UserID, req.PaginationToken, limit)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load admirers")
	}

	resp := &ListAdmirersResponse{Admirers: make([]Admirer, 0, len(likes)), NextPaginationToken: next}
	for _, l := range likes {
		resp.Admirers = append(resp.Admirers, Admirer{
			UserID:        l.OwnerID,
			UnixTimestamp: l.CreatedAt.UnixMilli(),
		})
	}
	return resp, nil
}

// CountAdmirers returns how many users like req.UserID without being liked
// back. The count is served from Redis when cached and recomputed otherwise;
// cache failures only cost a database query.
func (s *Service) CountAdmirers(ctx context.Context, req *UserRequest) (*CountAdmirersResponse, error) {
	s.appCtx.Logger.Debug("CountAdmirers called", "user", req.UserID)

	if err := s.checkSource(ctx, req.UserID); err != nil {
		return nil, err
	}
	ttl := s.appCtx.Config.Social.CountCacheTTL

	n, hit, err := s.appCtx.RedisCache.GetAdmirerCount(ctx, req.UserID, ttl)
	if err != nil {
		s.appCtx.Logger.Warn("admirer cache read failed", "user", req.UserID, "err", err)
	}
	if hit {
		return &CountAdmirersResponse{Count: n}, nil
	}

	n, err = s.interactions.CountAdmirers(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to count admirers")
	}
	if err := s.appCtx.RedisCache.SetAdmirerCount(ctx, req.UserID, n, ttl); err != nil {
		s.appCtx.Logger.Warn("admirer cache write failed", "user", req.UserID, "err", err)
	}
	return &CountAdmirersResponse{Count: n}, nil
}

// checkPair validates an edge write: no self-edges, both profiles present.
func (s *Service) checkPair(ctx context.Context, req *EdgeRequest, verb string) error {
	if req.SourceID == "" || req.TargetID == "" {
		return svcErr.InvalidArgument("source_id and target_id are required")
	}
	if req.SourceID == req.TargetID {
		return svcErr.InvalidOperation("cannot " + verb + " yourself")
	}
	ok, err := s.profiles.Exists(ctx, req.SourceID, req.TargetID)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.NotFound("profile not found")
	}
	return nil
}

func (s *Service) checkSource(ctx context.Context, id string) error {
	if id == "" {
		return svcErr.InvalidArgument("user id is required")
	}
	ok, err := s.profiles.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.NotFound("profile " + id + " not found")
	}
	return nil
}

// dropAdmirerCache runs after every like edge change. The target gains or
// loses an admirer, and the source may have turned one into a match.
func (s *Service) dropAdmirerCache(ctx context.Context, ids ...string) {
	if err := s.appCtx.RedisCache.InvalidateAdmirerCount(ctx, ids...); err != nil {
		s.appCtx.Logger.Warn("admirer cache invalidation failed", "users", ids, "err", err)
	}
}
