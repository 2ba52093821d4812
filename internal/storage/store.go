// Package storage persists uploaded binary objects such as profile photos.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/oggyb/ffm-club/internal/config"
)

// ObjectStore writes objects under a path and resolves a fetchable URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	DownloadURL(ctx context.Context, objectPath string) (string, error)
}

// New builds the store selected by cfg.Storage.Provider.
func New(cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "s3":
		return NewS3Store(cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.URLExpiry)
	case "local", "":
		return NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// ProfilePhotoPath returns profile-photos/{userID}/{unixMillis}_{filename}.
func ProfilePhotoPath(userID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "photo"
	}
	return fmt.Sprintf("profile-photos/%s/%d_%s", userID, at.UnixMilli(), name)
}
