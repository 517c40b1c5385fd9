package albums

import (
	"context"
	"errors"
	"fmt"

	"github.com/veloria/phototheque/database"
	"github.com/veloria/phototheque/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wraps all album record-store operations.
type Repository struct {
	db database.Provider
}

// NewRepository creates a new album repository.
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// CreateAlbum persists a new album.
func (r *Repository) CreateAlbum(album *models.Album) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(album).Error; err != nil {
			return fmt.Errorf("failed to create album in transaction: %w", err)
		}
		return nil
	})
}

// GetAlbumByID fetches one album with its image entries in display order.
func (r *Repository) GetAlbumByID(albumID uint) (*models.Album, error) {
	var album models.Album
	err := r.db.DB().
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&album, albumID).Error
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// GetAllAlbums returns every album with its image entries, oldest first.
func (r *Repository) GetAllAlbums() ([]*models.Album, error) {
	var albums []*models.Album
	err := r.db.DB().
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at asc").
		Find(&albums).Error
	return albums, err
}

// SaveAlbum persists mutated album fields.
func (r *Repository) SaveAlbum(album *models.Album) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Save(album).Error
	})
}

// AppendImage adds an image entry at the end of the album's sequence.
// The album row is locked so the assigned position stays consistent
// under concurrent uploads.
func (r *Repository) AppendImage(albumID uint, key, fileName string) (*models.AlbumImage, error) {
	var entry *models.AlbumImage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var album models.Album
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&album, albumID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.AlbumImage{}).Where("album_id = ?", albumID).Count(&count).Error; err != nil {
			return err
		}

		entry = &models.AlbumImage{
			AlbumID:  albumID,
			Key:      key,
			FileName: fileName,
			Position: int(count),
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to append image entry to album %d: %w", albumID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveImageByKey deletes the entry with the given key from the album
// and compacts the positions of the entries after it. A key that does
// not resolve is not an error: the second return value reports whether
// anything was removed.
func (r *Repository) RemoveImageByKey(albumID uint, key string) (*models.AlbumImage, bool, error) {
	var removed *models.AlbumImage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var album models.Album
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&album, albumID).Error; err != nil {
			return err
		}

		var entry models.AlbumImage
		if err := tx.First(&entry, "album_id = ? AND key = ?", albumID, key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Unscoped().Delete(&entry).Error; err != nil {
			return fmt.Errorf("failed to delete image entry %s: %w", key, err)
		}

		// Close the gap left by the removed entry.
		if err := tx.Model(&models.AlbumImage{}).
			Where("album_id = ? AND position > ?", albumID, entry.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error; err != nil {
			return fmt.Errorf("failed to compact positions for album %d: %w", albumID, err)
		}

		removed = &entry
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return removed, removed != nil, nil
}

// CountImagesByFileName reports how many entries of the album still
// reference the given filename.
func (r *Repository) CountImagesByFileName(albumID uint, fileName string) (int64, error) {
	var count int64
	err := r.db.DB().Model(&models.AlbumImage{}).
		Where("album_id = ? AND file_name = ?", albumID, fileName).
		Count(&count).Error
	return count, err
}

// DeleteAlbum removes the album record and all of its image entries.
// Deleting an id that does not exist is a no-op.
func (r *Repository) DeleteAlbum(albumID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("album_id = ?", albumID).Delete(&models.AlbumImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete image entries for album %d: %w", albumID, err)
		}
		if err := tx.Unscoped().Delete(&models.Album{}, albumID).Error; err != nil {
			return fmt.Errorf("failed to delete album %d: %w", albumID, err)
		}
		return nil
	})
}

// AlbumExists checks whether an album record exists.
func (r *Repository) AlbumExists(albumID uint) (bool, error) {
	var count int64
	err := r.db.DB().Model(&models.Album{}).Where("id = ?", albumID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WithContext returns a repository bound to ctx.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: &contextProvider{Provider: r.db, ctx: ctx}}
}

// contextProvider wraps a Provider so every call carries the context.
type contextProvider struct {
	database.Provider
	ctx context.Context
}

func (c *contextProvider) DB() *gorm.DB {
	return c.Provider.WithContext(c.ctx)
}

func (c *contextProvider) Transaction(fn database.TxFunc) error {
	return c.Provider.TransactionWithContext(c.ctx, fn)
}
