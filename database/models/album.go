package models

import "gorm.io/gorm"

// Album is a named collection of uploaded images. The record entries in
// Images mirror the files under the album's folder in the file store.
type Album struct {
	gorm.Model
	Title string `gorm:"type:varchar(255);not null"`

	Images []*AlbumImage `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE"`
}

// AlbumImage is one record entry of an album. Key is a stable identifier
// assigned at upload time; Position is the display order within the
// album and is compacted when an entry is removed.
type AlbumImage struct {
	gorm.Model
	AlbumID  uint   `gorm:"not null;index"`
	Key      string `gorm:"uniqueIndex:idx_image_key;not null"`
	FileName string `gorm:"not null"`
	Position int    `gorm:"not null"`
}
