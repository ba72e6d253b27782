// Package storage stores course cover images in an object storage bucket.
// Two backends implement Bucket: an S3-compatible client and Supabase
// Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// keyPrefix groups every cover image under one folder of the bucket.
const keyPrefix = "courses/"

// Bucket is a single public bucket holding cover images.
type Bucket interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// FileURL returns the public URL of key.
	FileURL(key string) string
	// ExtractKey maps a public URL back to its key. It reports false for
	// URLs that do not belong to this bucket.
	ExtractKey(rawURL string) (string, bool)
}

// ObjectKey builds a collision-free key for an uploaded file:
// courses/<uuid>-<name>.<ext>. The original name is reduced to a URL-safe
// slug; ext must include the leading dot.
func ObjectKey(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := slug.Make(base)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s%s-%s%s", keyPrefix, uuid.New(), name, ext)
}

// PutImage uploads a validated image and returns its public URL.
func PutImage(ctx context.Context, b Bucket, img *Image, filename string) (string, error) {
	key := ObjectKey(filename, img.Ext)
	return b.Upload(ctx, key, img.ContentType, img.Reader(), int64(len(img.Data)))
}

// RemoveURL deletes the object behind a public URL. URLs that do not
// belong to the bucket are ignored.
func RemoveURL(ctx context.Context, b Bucket, rawURL string) error {
	key, ok := b.ExtractKey(rawURL)
	if !ok {
		return nil
	}
	return b.Delete(ctx, key)
}
