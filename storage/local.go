package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores uploads on the local filesystem, one directory
// per album under the uploads root.
type LocalStorage struct {
	absBasePath string
}

// NewLocalStorage creates the uploads root if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
	}, nil
}

// albumPath joins and validates the album directory path.
func (s *LocalStorage) albumPath(albumID string) (string, error) {
	if !IsValidSegment(albumID) {
		return "", fmt.Errorf("invalid album identifier: %s", albumID)
	}

	path := filepath.Join(s.absBasePath, albumID)
	if !strings.HasPrefix(path, s.absBasePath) {
		return "", fmt.Errorf("invalid album path, potential directory traversal: %s", albumID)
	}
	return path, nil
}

func (s *LocalStorage) filePath(albumID, fileName string) (string, error) {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return "", err
	}
	if !IsValidSegment(fileName) {
		return "", fmt.Errorf("invalid file name: %s", fileName)
	}

	path := filepath.Join(dir, fileName)
	if !strings.HasPrefix(path, s.absBasePath) {
		return "", fmt.Errorf("invalid file path, potential directory traversal: %s", fileName)
	}
	return path, nil
}

func (s *LocalStorage) EnsureAlbumDir(ctx context.Context, albumID string) error {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create album directory '%s': %w", dir, err)
	}
	return nil
}

func (s *LocalStorage) Save(ctx context.Context, albumID, fileName string, content io.Reader) error {
	dstPath, err := s.filePath(albumID, fileName)
	if err != nil {
		return err
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}

	return nil
}

func (s *LocalStorage) Get(ctx context.Context, albumID, fileName string) (io.ReadSeekCloser, error) {
	fullPath, err := s.filePath(albumID, fileName)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}

	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, albumID, fileName string) error {
	fullPath, err := s.filePath(albumID, fileName)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}

	return nil
}

func (s *LocalStorage) DeleteAlbumDir(ctx context.Context, albumID string) error {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return err
	}

	// RemoveAll succeeds on a missing path, which makes the recursive
	// delete idempotent.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete album directory '%s': %w", dir, err)
	}
	return nil
}

func (s *LocalStorage) ListFiles(ctx context.Context, albumID string) ([]string, error) {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read album directory '%s': %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *LocalStorage) ListAlbumDirs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.absBasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads root '%s': %w", s.absBasePath, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func (s *LocalStorage) Exists(ctx context.Context, albumID, fileName string) (bool, error) {
	fullPath, err := s.filePath(albumID, fileName)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.ReadDir(s.absBasePath)
	return err
}

func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath returns the uploads root.
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}
