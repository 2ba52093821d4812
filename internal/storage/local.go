package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on the local filesystem and serves them from BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Upload(ctx context.Context, objectPath string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return s.DownloadURL(ctx, objectPath)
}

func (s *LocalStore) DownloadURL(_ context.Context, objectPath string) (string, error) {
	if _, err := s.resolve(objectPath); err != nil {
		return "", err
	}
	return s.baseURL + "/" + strings.TrimLeft(objectPath, "/"), nil
}

// resolve keeps objectPath inside the store directory.
func (s *LocalStore) resolve(objectPath string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(objectPath))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("empty object path")
	}
	return filepath.Join(s.dir, clean), nil
}
