package albums

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/veloria/phototheque/cache"
	"github.com/veloria/phototheque/database"
	"github.com/veloria/phototheque/database/models"
	albumsRepo "github.com/veloria/phototheque/database/repo/albums"
	svcAlbums "github.com/veloria/phototheque/internal/albums"
	"github.com/veloria/phototheque/internal/thumbs"
	"github.com/veloria/phototheque/storage"
	"github.com/veloria/phototheque/web/flash"
	"github.com/veloria/phototheque/web/templates"
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

type testEnv struct {
	router *gin.Engine
	svc    *svcAlbums.Service
	files  *storage.LocalStorage
}

func setupEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Album{}, &models.AlbumImage{}))

	files, err := storage.NewLocalStorage(t.TempDir())
	assert.NoError(t, err)

	memory, err := cache.NewMemory(cache.DefaultMemoryConfig)
	assert.NoError(t, err)
	t.Cleanup(func() { memory.Close() })

	repo := albumsRepo.NewRepository(&testProvider{db: db})
	svc := svcAlbums.NewService(repo, files)
	thumbsService := thumbs.NewService(files, memory, 320)
	flashStore := flash.NewStore(memory, 5*time.Minute)

	handler := NewHandler(svc, thumbsService, flashStore)

	router := gin.New()
	router.SetHTMLTemplate(templates.Load())
	router.GET("/", handler.Home)
	router.GET("/albums", handler.ListAlbums)
	router.GET("/albums/create", handler.NewAlbumForm)
	router.POST("/albums/create", handler.CreateAlbum)
	router.GET("/albums/:idAlbum", handler.ShowAlbum)
	router.POST("/albums/:idAlbum", handler.UploadImage)
	router.GET("/albums/:idAlbum/delete", handler.DeleteAlbum)
	router.GET("/albums/:idAlbum/delete/:idImage", handler.DeleteImage)
	router.NoRoute(handler.NotFound)

	return &testEnv{router: router, svc: svc, files: files}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) uploadFile(t *testing.T, path, fieldName, fileName, contentType string, body []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(body))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(t, req)
}

func (e *testEnv) mustCreateAlbum(t *testing.T, title string) *models.Album {
	album, err := e.svc.CreateAlbum(context.Background(), title)
	assert.NoError(t, err)
	return album
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n fake image body")

func TestHandler_Home(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Phototheque")
}

func TestHandler_ListAlbums(t *testing.T) {
	env := setupEnv(t)
	env.mustCreateAlbum(t, "Vacances")

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/albums", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Vacances")
}

func TestHandler_CreateAlbum(t *testing.T) {
	env := setupEnv(t)

	w := env.postForm(t, "/albums/create", url.Values{"albumTitle": {"Vacances"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/albums", w.Header().Get("Location"))

	albums, err := env.svc.ListAlbums(context.Background())
	assert.NoError(t, err)
	assert.Len(t, albums, 1)
	assert.Equal(t, "Vacances", albums[0].Title)
}

func TestHandler_CreateAlbum_EmptyTitle(t *testing.T) {
	env := setupEnv(t)

	w := env.postForm(t, "/albums/create", url.Values{"albumTitle": {"   "}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/albums/create", w.Header().Get("Location"))

	// The message rides the flash cookie back to the form.
	cookies := w.Result().Cookies()
	assert.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/albums/create", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w = env.do(t, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "title required")

	albums, err := env.svc.ListAlbums(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, albums)
}

func TestHandler_ShowAlbum(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")

	w := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/albums/%d", album.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Vacances")
	assert.Contains(t, w.Body.String(), "This album is empty")
}

func TestHandler_ShowAlbum_UnknownID(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/albums/999", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/404", w.Header().Get("Location"))
}

func TestHandler_ShowAlbum_MalformedID(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/albums/not-a-number", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/404", w.Header().Get("Location"))
}

func TestHandler_UploadImage(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")
	albumURL := fmt.Sprintf("/albums/%d", album.ID)

	w := env.uploadFile(t, albumURL, "image", "photo.png", "image/png", pngBytes)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, albumURL, w.Header().Get("Location"))

	got, err := env.svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, "photo.png", got.Images[0].FileName)

	exists, err := env.files.Exists(context.Background(), svcAlbums.FolderID(album.ID), "photo.png")
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestHandler_UploadImage_UnsupportedFormat(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")
	albumURL := fmt.Sprintf("/albums/%d", album.ID)

	w := env.uploadFile(t, albumURL, "image", "anim.gif", "image/gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, albumURL, w.Header().Get("Location"))

	// The message shows on the album view after the redirect.
	req := httptest.NewRequest(http.MethodGet, albumURL, nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w2 := env.do(t, req)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "unsupported format")

	got, err := env.svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Empty(t, got.Images)
}

func TestHandler_UploadImage_NoFile(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")
	albumURL := fmt.Sprintf("/albums/%d", album.ID)

	w := env.postForm(t, albumURL, url.Values{})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, albumURL, w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, albumURL, nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w2 := env.do(t, req)
	assert.Contains(t, w2.Body.String(), "file required")
}

func TestHandler_UploadImage_UnknownAlbum(t *testing.T) {
	env := setupEnv(t)

	w := env.uploadFile(t, "/albums/999", "image", "photo.png", "image/png", pngBytes)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/404", w.Header().Get("Location"))
}

func TestHandler_DeleteImage(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")
	albumURL := fmt.Sprintf("/albums/%d", album.ID)

	env.uploadFile(t, albumURL, "image", "photo.png", "image/png", pngBytes)

	got, err := env.svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)

	w := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("%s/delete/%s", albumURL, got.Images[0].Key), nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, albumURL, w.Header().Get("Location"))

	got, err = env.svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Empty(t, got.Images)
}

func TestHandler_DeleteImage_UnknownKey(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")
	albumURL := fmt.Sprintf("/albums/%d", album.ID)

	env.uploadFile(t, albumURL, "image", "photo.png", "image/png", pngBytes)

	// An unresolved key redirects back without error.
	w := env.do(t, httptest.NewRequest(http.MethodGet, albumURL+"/delete/no-such-key", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, albumURL, w.Header().Get("Location"))

	got, err := env.svc.GetAlbum(context.Background(), album.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 1)
}

func TestHandler_DeleteAlbum(t *testing.T) {
	env := setupEnv(t)
	album := env.mustCreateAlbum(t, "Vacances")

	w := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/albums/%d/delete", album.ID), nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/albums", w.Header().Get("Location"))

	_, err := env.svc.GetAlbum(context.Background(), album.ID)
	assert.ErrorIs(t, err, svcAlbums.ErrAlbumNotFound)
}

func TestHandler_DeleteAlbum_UnknownID(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/albums/999/delete", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/albums", w.Header().Get("Location"))
}

func TestHandler_NotFoundPage(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not found")
}
