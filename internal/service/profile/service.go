package profile

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/realtime"
	"github.com/oggyb/ffm-club/internal/repository"
	"github.com/oggyb/ffm-club/internal/storage"
	"github.com/oggyb/ffm-club/internal/utils/pagination"
	"github.com/oggyb/ffm-club/internal/utils/validate"
)

// Service owns the canonical user profile. Other modules use it for
// existence checks, hydration and change notifications.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

func NewProfileService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// Topic is the realtime topic carrying changes of one profile.
func Topic(id string) string { return "profile:" + id }

// CreateProfile stores a new profile with empty interaction sets and zero
// counters. Fails with AlreadyExists when the id is taken.
func (s *Service) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*db.Profile, error) {
	s.appCtx.Logger.Debug("CreateProfile called", "id", req.ID)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p := req.toModel()
	if err := s.profiles.Create(ctx, p); err != nil {
		if svcErr.Is(svcErr.Translate(err, ""), svcErr.KindAlreadyExists) {
			return nil, svcErr.AlreadyExists("profile " + req.ID + " already exists")
		}
		s.appCtx.Logger.Error("create profile failed", "id", req.ID, "err", err)
		return nil, svcErr.Translate(err, "failed to create profile")
	}
	p.Likes, p.Favorites = []string{}, []string{}
	return p, nil
}

// Create runs CreateProfile on an open transaction. Used by registration so
// the credential and the profile commit together.
func (s *Service) Create(ctx context.Context, tx *repository.ProfileRepository, req *CreateProfileRequest) (*db.Profile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p := req.toModel()
	if err := tx.Create(ctx, p); err != nil {
		return nil, svcErr.Translate(err, "failed to create profile")
	}
	p.Likes, p.Favorites = []string{}, []string{}
	return p, nil
}

// GetProfile returns the profile with its likes and favorites.
func (s *Service) GetProfile(ctx context.Context, req *GetProfileRequest) (*db.Profile, error) {
	s.appCtx.Logger.Debug("GetProfile called", "id", req.ID)

	p, err := s.profiles.Get(ctx, req.ID)
	if err != nil {
		return nil, notFoundOr(err, req.ID)
	}
	return p, nil
}

// Exists reports whether every id has a profile.
func (s *Service) Exists(ctx context.Context, ids ...string) (bool, error) {
	ok, err := s.profiles.Exists(ctx, ids...)
	if err != nil {
		return false, svcErr.Translate(err, "failed to check profiles")
	}
	return ok, nil
}

// UpdateProfile merges the provided fields; unspecified fields are left alone.
//
// Behavior:
//   - Nil fields are skipped; ClearAge stores a null age.
//   - An update with no fields still fails with NotFound for unknown ids.
//   - Watchers of the profile are notified.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*db.Profile, error) {
	s.appCtx.Logger.Debug("UpdateProfile called", "id", req.ID)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	fields := req.fields()
	if len(fields) > 0 {
		if err := s.profiles.Update(ctx, req.ID, fields); err != nil {
			return nil, notFoundOr(err, req.ID)
		}
		s.Notify(ctx, req.ID)
	}
	return s.GetProfile(ctx, &GetProfileRequest{ID: req.ID})
}

// ListProfiles returns profiles matching the filter, newest first.
//
// Behavior:
//   - "all" or empty account type / city disables that filter.
//   - Age bounds are inclusive; profiles without an age are excluded
//     whenever a bound is set.
//   - Limit defaults to Social.DefaultPageSize, capped at Social.MaxPageSize.
func (s *Service) ListProfiles(ctx context.Context, req *ListProfilesRequest) (*ListProfilesResponse, error) {
	s.appCtx.Logger.Debug("ListProfiles called",
		"account_type", req.AccountType, "city", req.City, "verified_only", req.VerifiedOnly)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	social := s.appCtx.Config.Social
	limit := pagination.ClampLimit(req.Limit, social.DefaultPageSize, social.MaxPageSize)

	filter := repository.ProfileFilter{
		AccountType:  filterValue(req.AccountType),
		City:         filterValue(req.City),
		VerifiedOnly: req.VerifiedOnly,
		AgeFrom:      req.AgeFrom,
		AgeTo:        req.AgeTo,
	}
	profiles, next, err := s.profiles.List(ctx, filter, req.PaginationToken, limit)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to list profiles")
	}
	if profiles == nil {
		profiles = []db.Profile{}
	}
	return &ListProfilesResponse{Profiles: profiles, NextPaginationToken: next}, nil
}

// IncrementProfileViews bumps the view counter. Missing profiles and store
// failures are logged and swallowed.
func (s *Service) IncrementProfileViews(ctx context.Context, id string) {
	ok, err := s.profiles.IncrementViews(ctx, id)
	if err != nil {
		s.appCtx.Logger.Warn("increment profile views failed", "id", id, "err", err)
		return
	}
	if !ok {
		s.appCtx.Logger.Debug("increment profile views: no such profile", "id", id)
	}
}

// UploadProfilePhoto stores the image under
// profile-photos/{id}/{unixMillis}_{filename} and makes its download URL
// the profile image.
func (s *Service) UploadProfilePhoto(ctx context.Context, req *UploadProfilePhotoRequest) (*UploadProfilePhotoResponse, error) {
	s.appCtx.Logger.Debug("UploadProfilePhoto called", "id", req.ID, "filename", req.Filename, "bytes", len(req.Data))

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	ok, err := s.Exists(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.NotFound("profile " + req.ID + " not found")
	}

	objectPath := storage.ProfilePhotoPath(req.ID, req.Filename, time.Now())
	if _, err := s.appCtx.Store.Upload(ctx, objectPath, req.Data, req.ContentType); err != nil {
		s.appCtx.Logger.Error("photo upload failed", "id", req.ID, "path", objectPath, "err", err)
		return nil, svcErr.Backend("failed to upload photo", err)
	}
	url, err := s.appCtx.Store.DownloadURL(ctx, objectPath)
	if err != nil {
		return nil, svcErr.Backend("failed to resolve photo url", err)
	}

	if err := s.profiles.Update(ctx, req.ID, map[string]any{"profile_image": url}); err != nil {
		return nil, notFoundOr(err, req.ID)
	}
	s.Notify(ctx, req.ID)
	return &UploadProfilePhotoResponse{URL: url, Path: objectPath}, nil
}

// Hydrate loads profiles for ids concurrently, bounded by
// Social.HydrationConcurrency. Lookups that fail are skipped; the result
// keeps the order of ids.
func (s *Service) Hydrate(ctx context.Context, ids []string) []db.Profile {
	results := make([]*db.Profile, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.appCtx.Config.Social.HydrationConcurrency))
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.profiles.Get(gctx, id)
			if err != nil {
				s.appCtx.Logger.Debug("hydrate skipped profile", "id", id, "err", err)
				return nil
			}
			results[i] = p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]db.Profile, 0, len(ids))
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Notify tells watchers of id that the profile changed. Best-effort.
func (s *Service) Notify(ctx context.Context, id string) {
	s.appCtx.Broker.Notify(ctx, Topic(id), []byte(id))
}

// SubscribeToProfile pushes the current profile right away and again after
// every change. onUpdate calls are serialized; none happen after Cancel
// returns. A profile that cannot be read is skipped.
func (s *Service) SubscribeToProfile(ctx context.Context, id string, onUpdate func(*db.Profile)) (*realtime.Subscription, error) {
	s.appCtx.Logger.Debug("SubscribeToProfile called", "id", id)

	ok, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.NotFound("profile " + id + " not found")
	}

	sub, err := s.appCtx.Broker.Subscribe(ctx, Topic(id), func(ctx context.Context, _ []byte) {
		p, err := s.profiles.Get(ctx, id)
		if err != nil {
			s.appCtx.Logger.Warn("profile snapshot failed", "id", id, "err", err)
			return
		}
		onUpdate(p)
	}, realtime.WithInitialDelivery())
	if err != nil {
		return nil, svcErr.Backend("failed to subscribe to profile", err)
	}
	return sub, nil
}

func notFoundOr(err error, id string) error {
	translated := svcErr.Translate(err, "profile store failure")
	if svcErr.Is(translated, svcErr.KindNotFound) {
		return svcErr.NotFound("profile " + id + " not found")
	}
	return translated
}

// filterValue maps the "all" sentinel to no filter.
func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
