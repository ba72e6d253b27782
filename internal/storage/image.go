package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"

	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// MaxImageBytes is the largest accepted cover image (2 MiB).
	MaxImageBytes = 2 << 20

	// MaxImagePixels caps width*height at 40 megapixels.
	MaxImagePixels = 40_000_000
)

// Errors returned by ReadImage. Callers map them to form messages.
var (
	// ErrImageType means the sniffed content is not JPEG, PNG or WebP.
	ErrImageType = errors.New("unsupported image type")

	// ErrImageTooLarge means the file exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image file too large")

	// ErrImageCorrupt means the header could not be decoded or reports
	// empty dimensions.
	ErrImageCorrupt = errors.New("image could not be decoded")

	// ErrImageTooManyPx means width times height exceeds MaxImagePixels.
	ErrImageTooManyPx = errors.New("image dimensions too large")
)

// imageTypes maps accepted sniffed MIME types to their file extension.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Image is an uploaded cover image that passed validation.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Reader returns a fresh reader over the image bytes.
func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// ReadImage reads at most MaxImageBytes from r and checks that the content
// is a JPEG, PNG or WebP image whose header decodes and whose pixel count
// stays under MaxImagePixels. The type is sniffed from the bytes; any
// client-supplied Content-Type is ignored.
func ReadImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageType, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageCorrupt, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrImageCorrupt
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooManyPx, cfg.Width, cfg.Height)
	}

	return &Image{
		Data:        data,
		ContentType: contentType,
		Ext:         ext,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}
