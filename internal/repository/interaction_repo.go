package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/utils/pagination"
)

// InteractionRepository provides data access for like and favorite edges.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// AddLike inserts owner -> target.
//
// Behavior:
//   - The composite PK makes the edge a set member; a repeated like is a no-op.
//   - The original created_at is kept, so list order does not shift.
//
// Example:
//
//	repo.AddLike(ctx, "u1", "u2") // u1 likes u2
func (r *InteractionRepository) AddLike(ctx context.Context, ownerID, targetID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Like{OwnerID: ownerID, TargetID: targetID}).Error
}

// RemoveLike deletes owner -> target. Missing edges are not an error.
func (r *InteractionRepository) RemoveLike(ctx context.Context, ownerID, targetID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ? AND target_id = ?", ownerID, targetID).
		Delete(&db.Like{}).Error
}

// HasLiked checks whether owner has liked target.
//
// Example:
//
//	repo.HasLiked(ctx, "u2", "u1") // -> true if u2 liked u1
func (r *InteractionRepository) HasLiked(ctx context.Context, ownerID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("owner_id = ? AND target_id = ?", ownerID, targetID).
		Count(&count).Error
	return count > 0, err
}

// LikedIDs returns owner's likes in the order they were made.
func (r *InteractionRepository) LikedIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, target_id ASC").
		Pluck("target_id", &ids).Error
	return ids, err
}

// MatchIDs returns every user that owner likes and that likes owner back.
//
// Behavior:
//   - Single self-join over profile_likes; the (target_id, owner_id) index
//     serves the reverse lookup.
//   - Ordered like LikedIDs.
func (r *InteractionRepository) MatchIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("profile_likes l").
		Joins("JOIN profile_likes r ON r.owner_id = l.target_id AND r.target_id = l.owner_id").
		Where("l.owner_id = ?", ownerID).
		Order("l.created_at ASC, l.target_id ASC").
		Pluck("l.target_id", &ids).Error
	return ids, err
}

// Admirers returns users who liked target but have not been liked back.
//
// Behavior:
//   - Excludes mutual likes (target already liked them back).
//   - Ordered by created_at DESC, owner_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.Admirers(ctx, "u42", nil, 20) // first 20 one-way likes for u42
func (r *InteractionRepository) Admirers(
	ctx context.Context,
	targetID string,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	// subquery to exclude mutual likes
	subQuery := r.db.
		Table("profile_likes").
		Select("1").
		Where("owner_id = l.target_id AND target_id = l.owner_id")

	query := r.db.WithContext(ctx).
		Table("profile_likes l").
		Where("l.target_id = ? AND NOT EXISTS (?)", targetID, subQuery).
		Order("l.created_at DESC, l.owner_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.owner_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.At(last.OwnerID, last.CreatedAt))
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountAdmirers counts one-way likes received by target.
func (r *InteractionRepository) CountAdmirers(ctx context.Context, targetID string) (int64, error) {
	subQuery := r.db.
		Table("profile_likes").
		Select("1").
		Where("owner_id = l.target_id AND target_id = l.owner_id")

	var count int64
	err := r.db.WithContext(ctx).
		Table("profile_likes l").
		Where("l.target_id = ? AND NOT EXISTS (?)", targetID, subQuery).
		Count(&count).Error
	return count, err
}

// AddFavorite inserts owner -> target; repeats are no-ops.
func (r *InteractionRepository) AddFavorite(ctx context.Context, ownerID, targetID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Favorite{OwnerID: ownerID, TargetID: targetID}).Error
}

// RemoveFavorite deletes owner -> target. Missing edges are not an error.
func (r *InteractionRepository) RemoveFavorite(ctx context.Context, ownerID, targetID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ? AND target_id = ?", ownerID, targetID).
		Delete(&db.Favorite{}).Error
}

// FavoriteIDs returns owner's favorites in the order they were made.
func (r *InteractionRepository) FavoriteIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Favorite{}).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, target_id ASC").
		Pluck("target_id", &ids).Error
	return ids, err
}
