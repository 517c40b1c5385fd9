package albums

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veloria/phototheque/database"
	"github.com/veloria/phototheque/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Album{}, &models.AlbumImage{})
	assert.NoError(t, err)

	return db
}

// testProvider adapts a raw gorm handle to the database.Provider interface.
type testProvider struct {
	db *gorm.DB
}

func (p *testProvider) DB() *gorm.DB {
	return p.db
}

func (p *testProvider) WithContext(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *testProvider) Transaction(fn database.TxFunc) error {
	return p.db.Transaction(fn)
}

func (p *testProvider) TransactionWithContext(ctx context.Context, fn database.TxFunc) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func (p *testProvider) AutoMigrate(models ...interface{}) error {
	return p.db.AutoMigrate(models...)
}

func (p *testProvider) SQLDB() (*sql.DB, error) {
	return p.db.DB()
}

func (p *testProvider) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (p *testProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *testProvider) Name() string {
	return "sqlite"
}

func newTestRepository(t *testing.T) *Repository {
	return NewRepository(&testProvider{db: setupTestDB(t)})
}

func TestRepository_CreateAlbum(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Vacances"}
	err := repo.CreateAlbum(album)
	assert.NoError(t, err)
	assert.NotZero(t, album.ID)
	assert.NotZero(t, album.CreatedAt)
}

func TestRepository_GetAlbumByID_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetAlbumByID(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetAllAlbums(t *testing.T) {
	repo := newTestRepository(t)

	for _, title := range []string{"First", "Second", "Third"} {
		assert.NoError(t, repo.CreateAlbum(&models.Album{Title: title}))
	}

	albums, err := repo.GetAllAlbums()
	assert.NoError(t, err)
	assert.Len(t, albums, 3)
	assert.Equal(t, "First", albums[0].Title)
}

func TestRepository_AppendImage_AssignsPositions(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	first, err := repo.AppendImage(album.ID, "key-1", "a.jpg")
	assert.NoError(t, err)
	assert.Equal(t, 0, first.Position)

	second, err := repo.AppendImage(album.ID, "key-2", "b.jpg")
	assert.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	got, err := repo.GetAlbumByID(album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 2)
	assert.Equal(t, "a.jpg", got.Images[0].FileName)
	assert.Equal(t, "b.jpg", got.Images[1].FileName)
}

func TestRepository_AppendImage_UnknownAlbum(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.AppendImage(99, "key-1", "a.jpg")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_RemoveImageByKey_CompactsPositions(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := repo.AppendImage(album.ID, "key-"+name, name)
		assert.NoError(t, err)
	}

	removed, ok, err := repo.RemoveImageByKey(album.ID, "key-a.jpg")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a.jpg", removed.FileName)

	got, err := repo.GetAlbumByID(album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 2)
	assert.Equal(t, "b.jpg", got.Images[0].FileName)
	assert.Equal(t, 0, got.Images[0].Position)
	assert.Equal(t, "c.jpg", got.Images[1].FileName)
	assert.Equal(t, 1, got.Images[1].Position)
}

func TestRepository_RemoveImageByKey_UnknownKey(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	removed, ok, err := repo.RemoveImageByKey(album.ID, "nope")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, removed)
}

func TestRepository_CountImagesByFileName(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	_, err := repo.AppendImage(album.ID, "key-1", "dup.jpg")
	assert.NoError(t, err)
	_, err = repo.AppendImage(album.ID, "key-2", "dup.jpg")
	assert.NoError(t, err)

	count, err := repo.CountImagesByFileName(album.ID, "dup.jpg")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_DeleteAlbum(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))
	_, err := repo.AppendImage(album.ID, "key-1", "a.jpg")
	assert.NoError(t, err)

	assert.NoError(t, repo.DeleteAlbum(album.ID))

	_, err = repo.GetAlbumByID(album.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var entries int64
	repo.db.DB().Model(&models.AlbumImage{}).Where("album_id = ?", album.ID).Count(&entries)
	assert.Zero(t, entries)
}

func TestRepository_DeleteAlbum_Idempotent(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	assert.NoError(t, repo.DeleteAlbum(album.ID))
	assert.NoError(t, repo.DeleteAlbum(album.ID))
	assert.NoError(t, repo.DeleteAlbum(12345))
}

func TestRepository_AlbumExists(t *testing.T) {
	repo := newTestRepository(t)

	album := &models.Album{Title: "Test"}
	assert.NoError(t, repo.CreateAlbum(album))

	exists, err := repo.AlbumExists(album.ID)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.AlbumExists(999)
	assert.NoError(t, err)
	assert.False(t, exists)
}
