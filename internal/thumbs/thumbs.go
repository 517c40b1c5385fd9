package thumbs

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/veloria/phototheque/cache"
	"github.com/veloria/phototheque/storage"
	"golang.org/x/image/draw"
)

const (
	cacheTTL    = time.Hour
	jpegQuality = 80
)

// Service produces downscaled previews of stored images. Thumbnails
// are rendered on demand and memoized in the cache; the file store is
// only hit on a cache miss.
type Service struct {
	files    storage.Provider
	cache    cache.Provider
	maxWidth int
}

// NewService creates a thumbnail service rendering previews at most
// maxWidth pixels wide.
func NewService(files storage.Provider, cacheProvider cache.Provider, maxWidth int) *Service {
	return &Service{
		files:    files,
		cache:    cacheProvider,
		maxWidth: maxWidth,
	}
}

// Render returns the JPEG thumbnail bytes for one stored image.
// Returns storage.ErrFileNotFound when the source file is absent.
func (s *Service) Render(ctx context.Context, albumID, fileName string) ([]byte, error) {
	key := s.cacheKey(albumID, fileName)

	var cached []byte
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !cache.IsCacheMiss(err) {
		log.Printf("[Thumbs] Cache read failed for %s: %v", key, err)
	}

	src, err := s.files.Get(ctx, albumID, fileName)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", albumID, fileName, err)
	}

	rendered, err := s.scale(img)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, rendered, cacheTTL); err != nil {
		log.Printf("[Thumbs] Cache write failed for %s: %v", key, err)
	}
	return rendered, nil
}

// Invalidate drops the cached thumbnail for one image. Called when the
// underlying file is deleted or overwritten.
func (s *Service) Invalidate(ctx context.Context, albumID, fileName string) {
	if err := s.cache.Delete(ctx, s.cacheKey(albumID, fileName)); err != nil {
		log.Printf("[Thumbs] Cache invalidation failed for %s/%s: %v", albumID, fileName, err)
	}
}

func (s *Service) cacheKey(albumID, fileName string) string {
	return fmt.Sprintf("thumb:%s:%s:%d", albumID, fileName, s.maxWidth)
}

// scale downscales img to at most maxWidth, preserving aspect ratio.
// Images already narrow enough are re-encoded without resampling.
func (s *Service) scale(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > s.maxWidth && width > 0 {
		scaled := s.maxWidth
		dst := image.NewRGBA(image.Rect(0, 0, scaled, height*scaled/width))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
