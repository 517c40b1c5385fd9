package files

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veloria/phototheque/internal/thumbs"
	"github.com/veloria/phototheque/storage"
	"github.com/veloria/phototheque/utils"
)

// Handler streams stored originals and rendered thumbnails.
type Handler struct {
	files  storage.Provider
	thumbs *thumbs.Service
}

// NewHandler creates the file-serving handler.
func NewHandler(files storage.Provider, thumbsService *thumbs.Service) *Handler {
	return &Handler{
		files:  files,
		thumbs: thumbsService,
	}
}

// GetUpload streams one original file from the album folder.
func (h *Handler) GetUpload(c *gin.Context) {
	folder, fileName, ok := pathSegments(c)
	if !ok {
		return
	}

	src, err := h.files.Get(c.Request.Context(), folder, fileName)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("[Files] Failed to read %s/%s: %v", folder, fileName, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer src.Close()

	if contentType, sniffErr := utils.SniffContentType(src); sniffErr == nil {
		c.Header("Content-Type", contentType)
	}
	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, fileName, time.Time{}, src)
}

// GetThumbnail serves the downscaled preview of one file.
func (h *Handler) GetThumbnail(c *gin.Context) {
	folder, fileName, ok := pathSegments(c)
	if !ok {
		return
	}

	data, err := h.thumbs.Render(c.Request.Context(), folder, fileName)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("[Files] Failed to render thumbnail %s/%s: %v", folder, fileName, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// pathSegments validates the folder and filename path parameters.
func pathSegments(c *gin.Context) (folder, fileName string, ok bool) {
	folder = c.Param("idAlbum")
	fileName = filepath.Base(c.Param("filename"))

	if !storage.IsValidSegment(folder) || !storage.IsValidSegment(fileName) {
		c.Status(http.StatusNotFound)
		return "", "", false
	}
	return folder, fileName, true
}
