package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	info, err := s.Put(ctx, "documents/a.html", strings.NewReader("<h1>report</h1>"), PutObjectOptions{
		Size:        15,
		ContentType: "text/html",
		Metadata:    map[string]string{"verification-code": "LK-DOC-2026-AAAAAAAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), info.Size)
	assert.NotEmpty(t, info.ETag)

	rc, got, err := s.Get(ctx, "documents/a.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "<h1>report</h1>", string(body))
	assert.Equal(t, "text/html", got.ContentType)

	t.Run("size mismatch", func(t *testing.T) {
		_, err := s.Put(ctx, "k", strings.NewReader("abc"), PutObjectOptions{Size: 10})
		assert.Error(t, err)
	})

	t.Run("unknown size accepted", func(t *testing.T) {
		_, err := s.Put(ctx, "k", strings.NewReader("abc"), PutObjectOptions{Size: -1})
		assert.NoError(t, err)
	})

	t.Run("missing object", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "documents/a.html"))
		_, _, err := s.Get(ctx, "documents/a.html")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})
}
