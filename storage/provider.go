package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned when a delete or read targets a file that
// does not exist in the store.
var ErrFileNotFound = errors.New("file not found")

// Provider is the file store contract. Every operation is scoped to an
// album folder: the stored path is <root>/<albumID>/<fileName>.
type Provider interface {
	// EnsureAlbumDir creates the album's folder if absent. Idempotent.
	EnsureAlbumDir(ctx context.Context, albumID string) error

	// Save writes the content to <albumID>/<fileName>, overwriting any
	// existing file with the same name.
	Save(ctx context.Context, albumID, fileName string, content io.Reader) error

	// Get opens the stored file for reading.
	Get(ctx context.Context, albumID, fileName string) (io.ReadSeekCloser, error)

	// Delete removes one file. Returns ErrFileNotFound if it is absent.
	Delete(ctx context.Context, albumID, fileName string) error

	// DeleteAlbumDir recursively removes the album's folder. Succeeds
	// even if the folder is absent or non-empty.
	DeleteAlbumDir(ctx context.Context, albumID string) error

	// ListFiles returns the filenames stored under the album's folder.
	// A folder that does not exist yields an empty slice.
	ListFiles(ctx context.Context, albumID string) ([]string, error)

	// ListAlbumDirs returns the album identifiers that have a folder.
	ListAlbumDirs(ctx context.Context) ([]string, error)

	// Exists checks whether the file is present.
	Exists(ctx context.Context, albumID, fileName string) (bool, error)

	// Health checks that the store is reachable.
	Health(ctx context.Context) error

	// Name returns the provider name.
	Name() string
}

// IsValidSegment validates a single path segment (album id or filename)
// before it is joined into a storage path.
func IsValidSegment(segment string) bool {
	if segment == "" {
		return false
	}

	if filepath.IsAbs(segment) {
		return false
	}

	if strings.Contains(segment, "..") {
		return false
	}

	for _, r := range segment {
		if !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ' ') {
			return false
		}
	}

	return true
}
