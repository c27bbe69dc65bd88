package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveURLPrefix = "https://drive.google.com/uc?id="

// DriveService stores product images in a Google Drive folder
type DriveService struct {
	client   *drive.Service
	folderID string
	logger   *zap.Logger
}

// Ensure DriveService implements ImageStoreInterface
var _ ImageStoreInterface = (*DriveService)(nil)

// NewDriveService creates a new DriveService instance.
// credentialsJSON takes precedence over credentialsPath (a Service Account JSON file).
func NewDriveService(ctx context.Context, credentialsPath, credentialsJSON, folderID string, logger *zap.Logger) (*DriveService, error) {
	var opt option.ClientOption
	switch {
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	case credentialsPath != "":
		opt = option.WithCredentialsFile(credentialsPath)
	default:
		return nil, ErrImagesUnavailable
	}

	client, err := drive.NewService(ctx, opt, option.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveService{client: client, folderID: folderID, logger: logger}, nil
}

// UploadImage creates the file in the configured folder and makes it publicly readable
func (ds *DriveService) UploadImage(ctx context.Context, name string, data []byte) (StoredImage, error) {
	file := &drive.File{Name: name, MimeType: "image/jpeg"}
	if ds.folderID != "" {
		file.Parents = []string{ds.folderID}
	}

	created, err := ds.client.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id, name").
		Context(ctx).
		Do()
	if err != nil {
		return StoredImage{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	_, err = ds.client.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do()
	if err != nil {
		ds.logger.Warn("⚠️ uploaded image is not public", zap.String("file_id", created.Id), zap.Error(err))
	}

	ds.logger.Info("✓ image uploaded to drive", zap.String("file_id", created.Id), zap.Int("bytes", len(data)))
	return StoredImage{FileID: created.Id, URL: DriveImageURL(created.Id)}, nil
}

// DownloadImage downloads the raw bytes of a Drive file
func (ds *DriveService) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := ds.client.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}

// DeleteImage removes a Drive file
func (ds *DriveService) DeleteImage(ctx context.Context, fileID string) error {
	if err := ds.client.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}
	return nil
}

// DriveImageURL is the public URL of a Drive file
func DriveImageURL(fileID string) string {
	return driveURLPrefix + url.QueryEscape(fileID)
}

// DriveFileID extracts the file id from a URL built by DriveImageURL.
// The second result is false for any other URL.
func DriveFileID(imageURL string) (string, bool) {
	if !strings.HasPrefix(imageURL, driveURLPrefix) {
		return "", false
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	id := u.Query().Get("id")
	return id, id != ""
}
