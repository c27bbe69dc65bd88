package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Image variants
const (
	SizeThumb  = "thumb"
	SizeMedium = "medium"
	SizeFull   = "full"
)

type variant struct {
	maxDim  int
	quality int
}

var variants = map[string]variant{
	SizeThumb:  {maxDim: 300, quality: 60},
	SizeMedium: {maxDim: 800, quality: 75},
	SizeFull:   {maxDim: 1600, quality: 85},
}

var unsafeCacheChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ImageOptimizer resizes product images to JPEG variants and caches them on disk
type ImageOptimizer struct {
	cacheDir string
	logger   *zap.Logger
}

// NewImageOptimizer creates an optimizer caching under cacheDir
func NewImageOptimizer(cacheDir string, logger *zap.Logger) *ImageOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageOptimizer{cacheDir: cacheDir, logger: logger}
}

// EnsureCacheDir ensures the cache directory exists, creates it if it doesn't
func (o *ImageOptimizer) EnsureCacheDir() error {
	if err := os.MkdirAll(o.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// CachePath returns the cache file path for a product image variant
func (o *ImageOptimizer) CachePath(productID string, position int, size string) string {
	safe := unsafeCacheChars.ReplaceAllString(productID, "_")
	return filepath.Join(o.cacheDir, fmt.Sprintf("product_%s_%d_%s.jpg", safe, position, size))
}

// ReadFromCache returns the cached bytes; ok is false on a miss
func (o *ImageOptimizer) ReadFromCache(cachePath string) ([]byte, bool) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SaveToCache saves an image to the cache
func (o *ImageOptimizer) SaveToCache(cachePath string, imageData []byte) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(cachePath, imageData, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	o.logger.Debug("✓ Image cached", zap.String("path", cachePath))
	return nil
}

// Invalidate drops every cached variant of a product
func (o *ImageOptimizer) Invalidate(productID string) {
	safe := unsafeCacheChars.ReplaceAllString(productID, "_")
	matches, _ := filepath.Glob(filepath.Join(o.cacheDir, fmt.Sprintf("product_%s_*.jpg", safe)))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// Optimize decodes imageData (JPEG, PNG or GIF), fits it inside the variant's
// bounding box keeping the aspect ratio, and re-encodes it as JPEG.
// Unknown sizes fall back to medium.
func (o *ImageOptimizer) Optimize(imageData []byte, size string) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	v, ok := variants[size]
	if !ok {
		o.logger.Warn("⚠️ Unknown image size, defaulting to medium", zap.String("size", size))
		v = variants[SizeMedium]
	}

	bounds := img.Bounds()
	if bounds.Dx() > v.maxDim || bounds.Dy() > v.maxDim {
		o.logger.Debug("🔄 Resizing image",
			zap.String("format", format),
			zap.Int("width", bounds.Dx()),
			zap.Int("height", bounds.Dy()),
			zap.Int("max", v.maxDim))
		img = imaging.Fit(img, v.maxDim, v.maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(v.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode to JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
