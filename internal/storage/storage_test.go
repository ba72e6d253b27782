package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^courses/[0-9a-f-]{36}-[a-z0-9-]+\.[a-z]+$`)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		filename string
		ext      string
		suffix   string
	}{
		{"Capa do Curso.PNG", ".png", "-capa-do-curso.png"},
		{"foto.jpeg", ".jpg", "-foto.jpg"},
		{"../../etc/passwd", ".webp", "-passwd.webp"},
		{"???.png", ".png", "-image.png"},
		{"", ".jpg", "-image.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			key := ObjectKey(tt.filename, tt.ext)
			assert.Regexp(t, keyPattern, key)
			assert.True(t, len(key) > len(tt.suffix))
			assert.Equal(t, tt.suffix, key[len(key)-len(tt.suffix):])
		})
	}

	assert.NotEqual(t, ObjectKey("a.png", ".png"), ObjectKey("a.png", ".png"))
}

func TestS3URLs(t *testing.T) {
	c, err := NewS3("https://s3.example.com/", "eu-central", "ak", "sk", "covers", "")
	require.NoError(t, err)

	url := c.FileURL("courses/x.png")
	assert.Equal(t, "https://s3.example.com/covers/courses/x.png", url)

	key, ok := c.ExtractKey(url)
	assert.True(t, ok)
	assert.Equal(t, "courses/x.png", key)

	_, ok = c.ExtractKey("https://elsewhere.example.com/covers/courses/x.png")
	assert.False(t, ok)
	_, ok = c.ExtractKey("https://s3.example.com/covers/")
	assert.False(t, ok)
}

func TestS3PublicURL(t *testing.T) {
	c, err := NewS3("https://s3.example.com", "eu-central", "ak", "sk", "covers", "https://cdn.example.com/")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/courses/x.png", c.FileURL("courses/x.png"))

	key, ok := c.ExtractKey("https://cdn.example.com/courses/x.png")
	assert.True(t, ok)
	assert.Equal(t, "courses/x.png", key)

	// Path-style URLs stored before a CDN was configured still resolve.
	key, ok = c.ExtractKey("https://s3.example.com/covers/courses/y.png")
	assert.True(t, ok)
	assert.Equal(t, "courses/y.png", key)
}

func TestNewS3_Requires(t *testing.T) {
	_, err := NewS3("", "r", "ak", "sk", "b", "")
	assert.Error(t, err)
	_, err = NewS3("https://s3", "r", "ak", "sk", "", "")
	assert.Error(t, err)
}

func TestSupabaseURLs(t *testing.T) {
	s, err := NewSupabase("https://proj.supabase.co/", "anon", "course-images")
	require.NoError(t, err)

	url := s.FileURL("courses/a b.png")
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/course-images/courses/a b.png", url)

	key, ok := s.ExtractKey("https://proj.supabase.co/storage/v1/object/public/course-images/courses/a%20b.png?t=1")
	assert.True(t, ok)
	assert.Equal(t, "courses/a b.png", key)

	_, ok = s.ExtractKey("https://proj.supabase.co/storage/v1/object/public/other/courses/a.png")
	assert.False(t, ok)
}

func TestSupabaseCancelledContext(t *testing.T) {
	s, err := NewSupabase("https://proj.supabase.co", "anon", "course-images")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Upload(ctx, "courses/x.png", "image/png", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, "courses/x.png"), context.Canceled)
}

// memBucket records uploads and deletes in memory.
type memBucket struct {
	objects map[string][]byte
	failPut error
}

func (m *memBucket) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if m.failPut != nil {
		return "", m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return m.FileURL(key), nil
}

func (m *memBucket) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBucket) FileURL(key string) string { return "mem://bucket/" + key }

func (m *memBucket) ExtractKey(rawURL string) (string, bool) {
	const prefix = "mem://bucket/"
	if len(rawURL) > len(prefix) && rawURL[:len(prefix)] == prefix {
		return rawURL[len(prefix):], true
	}
	return "", false
}

func TestPutImageAndRemoveURL(t *testing.T) {
	b := &memBucket{objects: map[string][]byte{}}
	ctx := context.Background()

	img, err := ReadImage(bytes.NewReader(encodePNG(t, 4, 4)))
	require.NoError(t, err)

	url, err := PutImage(ctx, b, img, "Minha Capa.png")
	require.NoError(t, err)
	require.Len(t, b.objects, 1)

	key, ok := b.ExtractKey(url)
	require.True(t, ok)
	assert.Regexp(t, keyPattern, key)
	assert.Equal(t, img.Data, b.objects[key])

	require.NoError(t, RemoveURL(ctx, b, "https://unrelated.example.com/x.png"))
	assert.Len(t, b.objects, 1)

	require.NoError(t, RemoveURL(ctx, b, url))
	assert.Empty(t, b.objects)

	b.failPut = errors.New("boom")
	_, err = PutImage(ctx, b, img, "x.png")
	assert.Error(t, err)
}
