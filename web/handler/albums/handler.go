package albums

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/veloria/phototheque/database/models"
	svcAlbums "github.com/veloria/phototheque/internal/albums"
	"github.com/veloria/phototheque/internal/thumbs"
	"github.com/veloria/phototheque/web/flash"
)

// Handler serves the album pages and their form actions.
type Handler struct {
	svc    *svcAlbums.Service
	thumbs *thumbs.Service
	flash  *flash.Store
}

// NewHandler creates the album page handler.
func NewHandler(svc *svcAlbums.Service, thumbsService *thumbs.Service, flashStore *flash.Store) *Handler {
	return &Handler{
		svc:    svc,
		thumbs: thumbsService,
		flash:  flashStore,
	}
}

// imageView is one gallery entry as the template sees it.
type imageView struct {
	Key      string
	FileName string
	URL      string
	ThumbURL string
}

// Home renders the landing page.
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home", gin.H{
		"Title": "Home",
		"Error": h.flash.Take(c),
	})
}

// ListAlbums renders the album index.
func (h *Handler) ListAlbums(c *gin.Context) {
	albums, err := h.svc.ListAlbums(c.Request.Context())
	if err != nil {
		log.Printf("[Web] Failed to list albums: %v", err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	c.HTML(http.StatusOK, "albums", gin.H{
		"Title":  "Albums",
		"Albums": albums,
		"Error":  h.flash.Take(c),
	})
}

// NewAlbumForm renders the creation form, with any pending validation
// message from a previous attempt.
func (h *Handler) NewAlbumForm(c *gin.Context) {
	c.HTML(http.StatusOK, "album_new", gin.H{
		"Title": "New album",
		"Error": h.flash.Take(c),
	})
}

// CreateAlbum handles the creation form post. Validation failures
// bounce back to the form with the message; success lands on the
// album index.
func (h *Handler) CreateAlbum(c *gin.Context) {
	_, err := h.svc.CreateAlbum(c.Request.Context(), c.PostForm("albumTitle"))
	if err != nil {
		if verr, ok := svcAlbums.AsValidation(err); ok {
			h.flash.Redirect(c, "/albums/create", verr.Message)
			return
		}
		log.Printf("[Web] Failed to create album: %v", err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	c.Redirect(http.StatusFound, "/albums")
}

// ShowAlbum renders one album with its gallery and upload form.
func (h *Handler) ShowAlbum(c *gin.Context) {
	albumID, ok := parseAlbumID(c)
	if !ok {
		return
	}

	album, err := h.svc.GetAlbum(c.Request.Context(), albumID)
	if err != nil {
		h.renderAlbumError(c, err)
		return
	}

	c.HTML(http.StatusOK, "album", gin.H{
		"Title":  album.Title,
		"Album":  album,
		"Images": galleryViews(album),
		"Error":  h.flash.Take(c),
	})
}

// UploadImage handles the multipart upload post. All outcome classes
// redirect back to the album view; validation messages ride the flash
// channel.
func (h *Handler) UploadImage(c *gin.Context) {
	albumID, ok := parseAlbumID(c)
	if !ok {
		return
	}
	albumURL := fmt.Sprintf("/albums/%d", albumID)

	var upload *svcAlbums.Upload
	file, err := c.FormFile("image")
	if err == nil {
		src, openErr := file.Open()
		if openErr != nil {
			log.Printf("[Web] Failed to open upload: %v", openErr)
			c.String(http.StatusInternalServerError, "Internal server error")
			return
		}
		defer src.Close()

		upload = &svcAlbums.Upload{
			FileName:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Size:        file.Size,
			Content:     src,
		}
	}

	entry, err := h.svc.AddImage(c.Request.Context(), albumID, upload)
	if err != nil {
		if verr, ok := svcAlbums.AsValidation(err); ok {
			h.flash.Redirect(c, albumURL, verr.Message)
			return
		}
		h.renderAlbumError(c, err)
		return
	}

	// An overwrite of a same-named file leaves a stale cached preview.
	h.thumbs.Invalidate(c.Request.Context(), svcAlbums.FolderID(albumID), entry.FileName)

	c.Redirect(http.StatusFound, albumURL)
}

// DeleteImage removes one gallery entry by its key and returns to the
// album view. An unknown key redirects without error.
func (h *Handler) DeleteImage(c *gin.Context) {
	albumID, ok := parseAlbumID(c)
	if !ok {
		return
	}
	imageKey := c.Param("idImage")

	album, err := h.svc.GetAlbum(c.Request.Context(), albumID)
	if err != nil {
		h.renderAlbumError(c, err)
		return
	}

	var fileName string
	for _, entry := range album.Images {
		if entry.Key == imageKey {
			fileName = entry.FileName
			break
		}
	}

	if err := h.svc.DeleteImage(c.Request.Context(), albumID, imageKey); err != nil {
		h.renderAlbumError(c, err)
		return
	}

	if fileName != "" {
		h.thumbs.Invalidate(c.Request.Context(), svcAlbums.FolderID(albumID), fileName)
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/albums/%d", albumID))
}

// DeleteAlbum removes the album and its folder, then returns to the
// index.
func (h *Handler) DeleteAlbum(c *gin.Context) {
	albumID, ok := parseAlbumID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteAlbum(c.Request.Context(), albumID); err != nil {
		log.Printf("[Web] Failed to delete album %d: %v", albumID, err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	c.Redirect(http.StatusFound, "/albums")
}

// NotFound renders the generic 404 page.
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "notfound", gin.H{
		"Title": "Not found",
	})
}

// renderAlbumError maps service failures on a single-album operation:
// an unresolved id goes to the not-found page, everything else is a
// generic server error.
func (h *Handler) renderAlbumError(c *gin.Context, err error) {
	if errors.Is(err, svcAlbums.ErrAlbumNotFound) {
		c.Redirect(http.StatusFound, "/404")
		return
	}
	log.Printf("[Web] Album operation failed: %v", err)
	c.String(http.StatusInternalServerError, "Internal server error")
}

// parseAlbumID reads the album id path segment; a malformed id goes
// straight to the not-found page.
func parseAlbumID(c *gin.Context) (uint, bool) {
	param := c.Param("idAlbum")
	if param == "" {
		param = c.Param("id")
	}

	id, err := strconv.ParseUint(param, 10, 32)
	if err != nil || id == 0 {
		c.Redirect(http.StatusFound, "/404")
		return 0, false
	}
	return uint(id), true
}

func galleryViews(album *models.Album) []imageView {
	folder := svcAlbums.FolderID(album.ID)
	views := make([]imageView, 0, len(album.Images))
	for _, entry := range album.Images {
		views = append(views, imageView{
			Key:      entry.Key,
			FileName: entry.FileName,
			URL:      fmt.Sprintf("/uploads/%s/%s", folder, entry.FileName),
			ThumbURL: fmt.Sprintf("/thumbnails/%s/%s", folder, entry.FileName),
		})
	}
	return views
}
