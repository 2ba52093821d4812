package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/utils/pagination"
)

// ProfileFilter narrows ListProfiles. Empty strings disable the equality
// filters; nil bounds disable the age range.
type ProfileFilter struct {
	AccountType  string
	City         string
	VerifiedOnly bool
	AgeFrom      *int
	AgeTo        *int
}

// ProfileRepository provides data access for profiles. Every profile it
// returns carries its likes/favorites sets.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// WithTx binds the repository to an open transaction.
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

// Create inserts a new profile. A duplicate id surfaces as gorm.ErrDuplicatedKey.
func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Get loads a profile by id. Returns gorm.ErrRecordNotFound when absent.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	profiles := []db.Profile{p}
	if err := r.attachEdges(ctx, profiles); err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

// Exists reports whether every given id has a profile.
func (r *ProfileRepository) Exists(ctx context.Context, ids ...string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return count == int64(len(unique)), err
}

// Update merges fields into the stored profile. Keys are column names.
// Returns gorm.ErrRecordNotFound when the profile does not exist.
func (r *ProfileRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports zero affected rows when nothing changed, so confirm
	// the row really is missing.
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementViews atomically bumps profile_views. Reports whether a row matched.
func (r *ProfileRepository) IncrementViews(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		UpdateColumn("profile_views", gorm.Expr("profile_views + ?", 1))
	return res.RowsAffected > 0, res.Error
}

// List returns profiles matching f, newest first (created_at DESC, id DESC),
// with a cursor token for the next page when more rows exist.
func (r *ProfileRepository) List(
	ctx context.Context,
	f ProfileFilter,
	paginationToken *string,
	limit int,
) ([]db.Profile, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).Model(&db.Profile{})
	if f.AccountType != "" {
		query = query.Where("account_type = ?", f.AccountType)
	}
	if f.City != "" {
		query = query.Where("city = ?", f.City)
	}
	if f.VerifiedOnly {
		query = query.Where("verified = ?", true)
	}
	// age range runs after the equality predicates; profiles without an
	// age never satisfy a bound
	if f.AgeFrom != nil {
		query = query.Where("age IS NOT NULL AND age >= ?", *f.AgeFrom)
	}
	if f.AgeTo != nil {
		query = query.Where("age IS NOT NULL AND age <= ?", *f.AgeTo)
	}
	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var profiles []db.Profile
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&profiles).Error
	if err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(profiles) > limit {
		last := profiles[limit-1]
		token, _ := pagination.Encode(pagination.At(last.ID, last.CreatedAt))
		nextToken = &token
		profiles = profiles[:limit]
	}

	if err := r.attachEdges(ctx, profiles); err != nil {
		return nil, nil, err
	}
	return profiles, nextToken, nil
}

// attachEdges loads likes and favorites for all profiles in two queries.
func (r *ProfileRepository) attachEdges(ctx context.Context, profiles []db.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	ids := make([]string, len(profiles))
	index := make(map[string]int, len(profiles))
	for i := range profiles {
		ids[i] = profiles[i].ID
		index[profiles[i].ID] = i
		profiles[i].Likes = []string{}
		profiles[i].Favorites = []string{}
	}

	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("owner_id IN ?", ids).
		Order("created_at ASC, target_id ASC").
		Find(&likes).Error
	if err != nil {
		return err
	}
	for _, l := range likes {
		p := &profiles[index[l.OwnerID]]
		p.Likes = append(p.Likes, l.TargetID)
	}

	var favorites []db.Favorite
	err = r.db.WithContext(ctx).
		Where("owner_id IN ?", ids).
		Order("created_at ASC, target_id ASC").
		Find(&favorites).Error
	if err != nil {
		return err
	}
	for _, f := range favorites {
		p := &profiles[index[f.OwnerID]]
		p.Favorites = append(p.Favorites, f.TargetID)
	}
	return nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
