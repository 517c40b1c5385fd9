package utils

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// allowedImageTypes are the media types accepted for uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// IsAllowedImageType reports whether the declared media type is one of
// the accepted upload formats. Parameters (charset etc.) are ignored.
func IsAllowedImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return allowedImageTypes[mediaType]
}

// SniffContentType detects the content type from the first bytes of the
// stream and seeks back to the start.
func SniffContentType(stream io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)

	n, err := stream.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return contentType, nil
}
