package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	supastorage "github.com/supabase-community/storage-go"
)

// Supabase stores cover images in a public Supabase Storage bucket.
type Supabase struct {
	client  *supastorage.Client
	baseURL string
	bucket  string
}

// NewSupabase creates a client for the bucket of the project at projectURL
// (e.g. https://xyz.supabase.co), authenticating with the anon key.
func NewSupabase(projectURL, key, bucket string) (*Supabase, error) {
	if projectURL == "" || key == "" {
		return nil, errors.New("supabase: project url and key are required")
	}
	if bucket == "" {
		return nil, errors.New("supabase: bucket is required")
	}
	projectURL = strings.TrimRight(projectURL, "/")
	return &Supabase{
		client:  supastorage.NewClient(projectURL+"/storage/v1", key, nil),
		baseURL: projectURL,
		bucket:  bucket,
	}, nil
}

// Upload stores an object and returns its public URL. The storage-go
// client does not take a context, so ctx only gates the call.
func (s *Supabase) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := false
	cacheControl := "3600"
	_, err := s.client.UploadFile(s.bucket, key, body, supastorage.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload %s/%s: %w", s.bucket, key, err)
	}
	return s.FileURL(key), nil
}

// Delete removes an object from the bucket.
func (s *Supabase) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("supabase delete %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// FileURL returns the public object URL for key.
func (s *Supabase) FileURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

// ExtractKey maps a public object URL of this bucket back to its key.
// Query strings are dropped and escaped paths are decoded.
func (s *Supabase) ExtractKey(rawURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", s.baseURL, s.bucket)
	key, ok := strings.CutPrefix(rawURL, prefix)
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(key, '?'); i != -1 {
		key = key[:i]
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	if key == "" {
		return "", false
	}
	return key, true
}
