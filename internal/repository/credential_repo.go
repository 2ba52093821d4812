package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/db"
)

// CredentialRepository stores password hashes for the local identity adapter.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(database *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: database}
}

func (r *CredentialRepository) WithTx(tx *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: tx}
}

// Create inserts a credential. A taken email surfaces as gorm.ErrDuplicatedKey.
func (r *CredentialRepository) Create(ctx context.Context, c *db.Credential) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*db.Credential, error) {
	var c db.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) GetByUserID(ctx context.Context, userID string) (*db.Credential, error) {
	var c db.Credential
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdatePassword replaces the stored hash. Returns gorm.ErrRecordNotFound
// when the user has no credential.
func (r *CredentialRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	res := r.db.WithContext(ctx).
		Model(&db.Credential{}).
		Where("user_id = ?", userID).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
