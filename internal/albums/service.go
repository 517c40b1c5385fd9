package albums

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/veloria/phototheque/database/models"
	albumsRepo "github.com/veloria/phototheque/database/repo/albums"
	"github.com/veloria/phototheque/storage"
	"github.com/veloria/phototheque/utils"
	"gorm.io/gorm"
)

// Upload is the ingested multipart file handed to AddImage.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Service coordinates the record store and the file store. It is the
// sole writer of both; the two-store invariant (every record entry has
// a backing file and vice versa) is kept best-effort, with the
// reconciler as the repair path.
type Service struct {
	repo  *albumsRepo.Repository
	files storage.Provider
}

// NewService creates the album service.
func NewService(repo *albumsRepo.Repository, files storage.Provider) *Service {
	return &Service{repo: repo, files: files}
}

// FolderID returns the file-store folder name for an album id.
func FolderID(albumID uint) string {
	return strconv.FormatUint(uint64(albumID), 10)
}

// ListAlbums returns all albums in creation order.
func (s *Service) ListAlbums(ctx context.Context) ([]*models.Album, error) {
	albums, err := s.repo.WithContext(ctx).GetAllAlbums()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return albums, nil
}

// GetAlbum returns one album with its image entries in display order.
func (s *Service) GetAlbum(ctx context.Context, albumID uint) (*models.Album, error) {
	album, err := s.repo.WithContext(ctx).GetAlbumByID(albumID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlbumNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return album, nil
}

// CreateAlbum persists a new album with an empty image sequence.
// The title must be non-empty after trimming.
func (s *Service) CreateAlbum(ctx context.Context, title string) (*models.Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError(MsgTitleRequired)
	}

	album := &models.Album{Title: title}
	if err := s.repo.WithContext(ctx).CreateAlbum(album); err != nil {
		// The raw store error stays in the logs; the caller only sees
		// the generic message.
		log.Printf("[Albums] Failed to create album %q: %v", utils.SanitizeLogMessage(title), err)
		return nil, NewValidationError(MsgCreationFailed)
	}
	return album, nil
}

// AddImage validates the upload, writes the file into the album's
// folder and appends a record entry. The file is written first: a
// record failure after a successful write leaves an orphaned file for
// the reconciler to report.
func (s *Service) AddImage(ctx context.Context, albumID uint, upload *Upload) (*models.AlbumImage, error) {
	if _, err := s.GetAlbum(ctx, albumID); err != nil {
		return nil, err
	}

	if upload == nil || upload.Content == nil || upload.FileName == "" {
		return nil, NewValidationError(MsgFileRequired)
	}
	if !utils.IsAllowedImageType(upload.ContentType) {
		return nil, NewValidationError(MsgUnsupportedFormat)
	}

	fileName := filepath.Base(upload.FileName)
	folder := FolderID(albumID)

	if err := s.files.EnsureAlbumDir(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to ensure album folder %s: %w", folder, err)
	}

	// Same-named uploads overwrite on disk, last write wins; the
	// record still gains a new entry.
	if err := s.files.Save(ctx, folder, fileName, upload.Content); err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", fileName, err)
	}

	entry, err := s.repo.WithContext(ctx).AppendImage(albumID, uuid.NewString(), fileName)
	if err != nil {
		log.Printf("[Albums] Record update failed after writing %s/%s, file is orphaned: %v", folder, fileName, err)
		return nil, fmt.Errorf("failed to record upload %s: %w", fileName, err)
	}

	return entry, nil
}

// DeleteImage removes the entry with the given key from the album and
// deletes its file unless another entry still references the same
// filename. A key that does not resolve is a silent no-op. The record
// is updated before the file is touched; a file-store failure after
// that is not rolled back.
func (s *Service) DeleteImage(ctx context.Context, albumID uint, imageKey string) error {
	repo := s.repo.WithContext(ctx)

	removed, ok, err := repo.RemoveImageByKey(albumID, imageKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAlbumNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil
	}

	remaining, err := repo.CountImagesByFileName(albumID, removed.FileName)
	if err == nil && remaining > 0 {
		// Another entry still points at this file; keep it.
		return nil
	}

	folder := FolderID(albumID)
	if err := s.files.Delete(ctx, folder, removed.FileName); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			log.Printf("[Albums] File %s/%s already absent on delete", folder, removed.FileName)
			return nil
		}
		return fmt.Errorf("failed to delete file %s/%s: %w", folder, removed.FileName, err)
	}

	return nil
}

// DeleteAlbum removes the album record and its entire folder. Deleting
// an id with no record is tolerated as a no-op; a folder-delete failure
// after the record delete leaves an orphaned folder for the reconciler.
func (s *Service) DeleteAlbum(ctx context.Context, albumID uint) error {
	if err := s.repo.WithContext(ctx).DeleteAlbum(albumID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	folder := FolderID(albumID)
	if err := s.files.DeleteAlbumDir(ctx, folder); err != nil {
		log.Printf("[Albums] Folder delete failed for album %s, folder is orphaned: %v", folder, err)
		return fmt.Errorf("failed to delete album folder %s: %w", folder, err)
	}

	return nil
}
