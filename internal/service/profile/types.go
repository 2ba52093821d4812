package profile

import (
	"strings"
	"time"

	"github.com/oggyb/ffm-club/internal/db"
)

type CreateProfileRequest struct {
	ID           string `json:"id" validate:"required,max=128,excludes=_"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	Username     string `json:"username" validate:"required,max=64"`
	AccountType  string `json:"account_type" validate:"max=32"`
	Age          *int   `json:"age" validate:"omitempty,min=0,max=150"`
	City         string `json:"city" validate:"max=128"`
	About        string `json:"about"`
	Interests    string `json:"interests"`
	ProfileImage string `json:"profile_image" validate:"max=1024"`
	Verified     bool   `json:"verified"`
}

func (r *CreateProfileRequest) toModel() *db.Profile {
	return &db.Profile{
		ID:           r.ID,
		Email:        strings.ToLower(strings.TrimSpace(r.Email)),
		Username:     strings.TrimSpace(r.Username),
		AccountType:  r.AccountType,
		Age:          r.Age,
		City:         r.City,
		About:        r.About,
		Interests:    r.Interests,
		ProfileImage: r.ProfileImage,
		Verified:     r.Verified,
	}
}

type GetProfileRequest struct {
	ID string `json:"id"`
}

// UpdateProfileRequest carries a partial update: nil fields are untouched.
type UpdateProfileRequest struct {
	ID           string     `json:"id" validate:"required"`
	Username     *string    `json:"username" validate:"omitempty,min=1,max=64"`
	AccountType  *string    `json:"account_type" validate:"omitempty,max=32"`
	Age          *int       `json:"age" validate:"omitempty,min=0,max=150"`
	ClearAge     bool       `json:"clear_age"`
	City         *string    `json:"city" validate:"omitempty,max=128"`
	About        *string    `json:"about"`
	Interests    *string    `json:"interests"`
	ProfileImage *string    `json:"profile_image" validate:"omitempty,max=1024"`
	Verified     *bool      `json:"verified"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// fields maps the set fields to column updates.
func (r *UpdateProfileRequest) fields() map[string]any {
	f := map[string]any{}
	if r.Username != nil {
		f["username"] = strings.TrimSpace(*r.Username)
	}
	if r.AccountType != nil {
		f["account_type"] = *r.AccountType
	}
	if r.ClearAge {
		f["age"] = nil
	} else if r.Age != nil {
		f["age"] = *r.Age
	}
	if r.City != nil {
		f["city"] = *r.City
	}
	if r.About != nil {
		f["about"] = *r.About
	}
	if r.Interests != nil {
		f["interests"] = *r.Interests
	}
	if r.ProfileImage != nil {
		f["profile_image"] = *r.ProfileImage
	}
	if r.Verified != nil {
		f["verified"] = *r.Verified
	}
	if r.LastLoginAt != nil {
		f["last_login_at"] = r.LastLoginAt.UTC()
	}
	return f
}

type ListProfilesRequest struct {
	AccountType     string  `json:"account_type"`
	City            string  `json:"city"`
	VerifiedOnly    bool    `json:"verified_only"`
	AgeFrom         *int    `json:"age_from" validate:"omitempty,min=0"`
	AgeTo           *int    `json:"age_to" validate:"omitempty,min=0"`
	Limit           int     `json:"limit" validate:"min=0"`
	PaginationToken *string `json:"pagination_token"`
}

type ListProfilesResponse struct {
	Profiles            []db.Profile `json:"profiles"`
	NextPaginationToken *string      `json:"next_pagination_token,omitempty"`
}

type UploadProfilePhotoRequest struct {
	ID          string `json:"id" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data" validate:"required"`
}

type UploadProfilePhotoResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type WatchProfileRequest struct {
	ID string `json:"id"`
}
