package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// WebDAVSettings configures the WebDAV backend.
type WebDAVSettings struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	RootPath string `mapstructure:"root_path"`
}

// WebDAVStorage stores uploads on a WebDAV share, one collection per
// album under the configured root path.
type WebDAVStorage struct {
	client   *gowebdav.Client
	rootPath string
}

// NewWebDAVStorage connects to the WebDAV server and ensures the root
// collection exists.
func NewWebDAVStorage(cfg WebDAVSettings) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to webdav server '%s': %w", cfg.URL, err)
	}

	if rootPath != "" {
		if err := client.MkdirAll(rootPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create webdav root path '%s': %w", rootPath, err)
		}
	}

	return &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
	}, nil
}

func (s *WebDAVStorage) albumPath(albumID string) (string, error) {
	if !IsValidSegment(albumID) {
		return "", fmt.Errorf("invalid album identifier: %s", albumID)
	}
	return path.Join(s.rootPath, albumID), nil
}

func (s *WebDAVStorage) filePath(albumID, fileName string) (string, error) {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return "", err
	}
	if !IsValidSegment(fileName) {
		return "", fmt.Errorf("invalid file name: %s", fileName)
	}
	return path.Join(dir, fileName), nil
}

func (s *WebDAVStorage) EnsureAlbumDir(ctx context.Context, albumID string) error {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return err
	}

	if err := s.client.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create webdav album collection '%s': %w", dir, err)
	}
	return nil
}

func (s *WebDAVStorage) Save(ctx context.Context, albumID, fileName string, content io.Reader) error {
	dst, err := s.filePath(albumID, fileName)
	if err != nil {
		return err
	}

	if err := s.client.WriteStream(dst, content, 0644); err != nil {
		return fmt.Errorf("failed to write '%s' to webdav: %w", dst, err)
	}
	return nil
}

func (s *WebDAVStorage) Get(ctx context.Context, albumID, fileName string) (io.ReadSeekCloser, error) {
	src, err := s.filePath(albumID, fileName)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Read(src)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to read '%s' from webdav: %w", src, err)
	}

	return nopReadSeekCloser{bytes.NewReader(data)}, nil
}

func (s *WebDAVStorage) Delete(ctx context.Context, albumID, fileName string) error {
	target, err := s.filePath(albumID, fileName)
	if err != nil {
		return err
	}

	if _, err := s.client.Stat(target); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to stat '%s' on webdav: %w", target, err)
	}

	if err := s.client.Remove(target); err != nil {
		return fmt.Errorf("failed to delete '%s' from webdav: %w", target, err)
	}
	return nil
}

func (s *WebDAVStorage) DeleteAlbumDir(ctx context.Context, albumID string) error {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return err
	}

	if err := s.client.RemoveAll(dir); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete webdav album collection '%s': %w", dir, err)
	}
	return nil
}

func (s *WebDAVStorage) ListFiles(ctx context.Context, albumID string) ([]string, error) {
	dir, err := s.albumPath(albumID)
	if err != nil {
		return nil, err
	}

	entries, err := s.client.ReadDir(dir)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list webdav collection '%s': %w", dir, err)
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

func (s *WebDAVStorage) ListAlbumDirs(ctx context.Context) ([]string, error) {
	root := s.rootPath
	if root == "" {
		root = "/"
	}

	entries, err := s.client.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list webdav root '%s': %w", root, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func (s *WebDAVStorage) Exists(ctx context.Context, albumID, fileName string) (bool, error) {
	target, err := s.filePath(albumID, fileName)
	if err != nil {
		return false, err
	}

	if _, err := s.client.Stat(target); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	_, err := s.client.ReadDir(root)
	return err
}

func (s *WebDAVStorage) Name() string {
	return "webdav"
}

// nopReadSeekCloser adapts an in-memory reader to io.ReadSeekCloser.
type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }
