package albums

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veloria/phototheque/database"
	"github.com/veloria/phototheque/database/models"
	albumsRepo "github.com/veloria/phototheque/database/repo/albums"
	"github.com/veloria/phototheque/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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

func setupTestService(t *testing.T) (*Service, *storage.LocalStorage) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Album{}, &models.AlbumImage{}))

	files, err := storage.NewLocalStorage(t.TempDir())
	assert.NoError(t, err)

	repo := albumsRepo.NewRepository(&testProvider{db: db})
	return NewService(repo, files), files
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n fake image body")

func mustCreateAlbum(t *testing.T, svc *Service, title string) *models.Album {
	album, err := svc.CreateAlbum(context.Background(), title)
	assert.NoError(t, err)
	return album
}

func mustAddImage(t *testing.T, svc *Service, albumID uint, fileName string) *models.AlbumImage {
	entry, err := svc.AddImage(context.Background(), albumID, &Upload{
		FileName:    fileName,
		ContentType: "image/png",
		Size:        int64(len(pngBytes)),
		Content:     bytes.NewReader(pngBytes),
	})
	assert.NoError(t, err)
	return entry
}

func TestService_CreateAlbum_TrimsTitle(t *testing.T) {
	svc, _ := setupTestService(t)

	album := mustCreateAlbum(t, svc, "  Vacances  ")
	assert.Equal(t, "Vacances", album.Title)
	assert.NotZero(t, album.ID)
}

func TestService_CreateAlbum_EmptyTitle(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.CreateAlbum(context.Background(), "   ")
	verr, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, MsgTitleRequired, verr.Message)

	albums, err := svc.ListAlbums(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, albums)
}

func TestService_GetAlbum_NotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.GetAlbum(context.Background(), 42)
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}

func TestService_AddImage_WritesFileAndEntry(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	entry := mustAddImage(t, svc, album.ID, "photo.png")
	assert.NotEmpty(t, entry.Key)
	assert.Equal(t, "photo.png", entry.FileName)
	assert.Equal(t, 0, entry.Position)

	onDisk, err := os.ReadFile(filepath.Join(files.BasePath(), FolderID(album.ID), "photo.png"))
	assert.NoError(t, err)
	assert.Equal(t, pngBytes, onDisk)

	got, err := svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)
}

func TestService_AddImage_MissingFile(t *testing.T) {
	svc, _ := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	_, err := svc.AddImage(context.Background(), album.ID, nil)
	verr, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, MsgFileRequired, verr.Message)
}

func TestService_AddImage_UnsupportedFormat(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	_, err := svc.AddImage(context.Background(), album.ID, &Upload{
		FileName:    "anim.gif",
		ContentType: "image/gif",
		Size:        3,
		Content:     bytes.NewReader([]byte("GIF")),
	})
	verr, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, MsgUnsupportedFormat, verr.Message)

	// No bytes land anywhere on a rejected upload.
	names, err := files.ListFiles(context.Background(), FolderID(album.ID))
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestService_AddImage_UnknownAlbum(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.AddImage(context.Background(), 77, &Upload{
		FileName:    "photo.png",
		ContentType: "image/png",
		Size:        int64(len(pngBytes)),
		Content:     bytes.NewReader(pngBytes),
	})
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}

func TestService_AddImage_StripsPathFromFileName(t *testing.T) {
	svc, _ := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	entry, err := svc.AddImage(context.Background(), album.ID, &Upload{
		FileName:    "evil/../photo.png",
		ContentType: "image/png",
		Size:        int64(len(pngBytes)),
		Content:     bytes.NewReader(pngBytes),
	})
	assert.NoError(t, err)
	assert.Equal(t, "photo.png", entry.FileName)
}

func TestService_DeleteImage_RemovesFileAndCompacts(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	first := mustAddImage(t, svc, album.ID, "a.png")
	mustAddImage(t, svc, album.ID, "b.png")
	mustAddImage(t, svc, album.ID, "c.png")

	assert.NoError(t, svc.DeleteImage(context.Background(), album.ID, first.Key))

	got, err := svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 2)
	assert.Equal(t, "b.png", got.Images[0].FileName)
	assert.Equal(t, 0, got.Images[0].Position)
	assert.Equal(t, "c.png", got.Images[1].FileName)
	assert.Equal(t, 1, got.Images[1].Position)

	exists, err := files.Exists(context.Background(), FolderID(album.ID), "a.png")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestService_DeleteImage_UnknownKeyNoOps(t *testing.T) {
	svc, _ := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")
	mustAddImage(t, svc, album.ID, "a.png")

	assert.NoError(t, svc.DeleteImage(context.Background(), album.ID, "no-such-key"))

	got, err := svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)
}

func TestService_DeleteImage_KeepsSharedFile(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	first := mustAddImage(t, svc, album.ID, "dup.png")
	mustAddImage(t, svc, album.ID, "dup.png")

	assert.NoError(t, svc.DeleteImage(context.Background(), album.ID, first.Key))

	// Another entry still references dup.png, the file survives.
	exists, err := files.Exists(context.Background(), FolderID(album.ID), "dup.png")
	assert.NoError(t, err)
	assert.True(t, exists)

	got, err := svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)
}

func TestService_DeleteImage_FileAlreadyGone(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")
	entry := mustAddImage(t, svc, album.ID, "a.png")

	assert.NoError(t, files.Delete(context.Background(), FolderID(album.ID), "a.png"))

	// The record update still happens; the missing file is tolerated.
	assert.NoError(t, svc.DeleteImage(context.Background(), album.ID, entry.Key))

	got, err := svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Empty(t, got.Images)
}

func TestService_DeleteAlbum_RemovesRecordAndFolder(t *testing.T) {
	svc, files := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")
	mustAddImage(t, svc, album.ID, "a.png")

	assert.NoError(t, svc.DeleteAlbum(context.Background(), album.ID))

	_, err := svc.GetAlbum(context.Background(), album.ID)
	assert.ErrorIs(t, err, ErrAlbumNotFound)

	_, err = os.Stat(filepath.Join(files.BasePath(), FolderID(album.ID)))
	assert.True(t, os.IsNotExist(err))
}

func TestService_DeleteAlbum_UnknownIDNoOps(t *testing.T) {
	svc, _ := setupTestService(t)

	assert.NoError(t, svc.DeleteAlbum(context.Background(), 12345))
}

func TestService_DeleteAlbum_Repeatable(t *testing.T) {
	svc, _ := setupTestService(t)
	album := mustCreateAlbum(t, svc, "Test")

	assert.NoError(t, svc.DeleteAlbum(context.Background(), album.ID))
	assert.NoError(t, svc.DeleteAlbum(context.Background(), album.ID))
}
