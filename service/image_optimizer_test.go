package service

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimize_FitsVariant(t *testing.T) {
	o := NewImageOptimizer(t.TempDir(), nil)
	src := pngImage(t, 1200, 600)

	tests := []struct {
		size  string
		wantW int
		wantH int
	}{
		{SizeThumb, 300, 150},
		{SizeMedium, 800, 400},
		{SizeFull, 1200, 600},
		{"bogus", 800, 400},
	}
	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			out, err := o.Optimize(src, tt.size)
			require.NoError(t, err)

			img, format, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestOptimize_RejectsGarbage(t *testing.T) {
	o := NewImageOptimizer(t.TempDir(), nil)
	_, err := o.Optimize([]byte("not an image"), SizeThumb)
	assert.Error(t, err)
}

func TestCache_SaveReadInvalidate(t *testing.T) {
	dir := t.TempDir()
	o := NewImageOptimizer(dir, nil)
	require.NoError(t, o.EnsureCacheDir())

	thumb := o.CachePath("a/b", 0, SizeThumb)
	medium := o.CachePath("a/b", 0, SizeMedium)
	other := o.CachePath("c", 0, SizeThumb)
	assert.NotContains(t, thumb[len(dir):], "a/b")

	_, hit := o.ReadFromCache(thumb)
	assert.False(t, hit)

	for _, p := range []string{thumb, medium, other} {
		require.NoError(t, o.SaveToCache(p, []byte("x")))
	}
	data, hit := o.ReadFromCache(thumb)
	assert.True(t, hit)
	assert.Equal(t, []byte("x"), data)

	o.Invalidate("a/b")
	_, err := os.Stat(thumb)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(medium)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestDriveFileID(t *testing.T) {
	id, ok := DriveFileID(DriveImageURL("1AbC-x_9"))
	assert.True(t, ok)
	assert.Equal(t, "1AbC-x_9", id)

	_, ok = DriveFileID("https://cdn.example.com/shirt.png")
	assert.False(t, ok)
	_, ok = DriveFileID(DriveImageURL(""))
	assert.False(t, ok)
}
