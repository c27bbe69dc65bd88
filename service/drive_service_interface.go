package service

import (
	"context"
	"errors"
)

// ErrImagesUnavailable is returned when no image store is configured
var ErrImagesUnavailable = errors.New("image storage is not configured")

// StoredImage identifies an uploaded image
type StoredImage struct {
	FileID string
	URL    string
}

// ImageStoreInterface defines the contract for product image blob storage
type ImageStoreInterface interface {
	UploadImage(ctx context.Context, name string, data []byte) (StoredImage, error)
	DownloadImage(ctx context.Context, fileID string) ([]byte, error)
	DeleteImage(ctx context.Context, fileID string) error
}
