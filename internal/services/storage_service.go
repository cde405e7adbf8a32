package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Image formats the storage collaborator accepts.
var allowedImageFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// StorageService uploads images to Cloudinary and returns durable URLs.
type StorageService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewStorageService creates a StorageService. With empty credentials the
// service stays nil-backed and uploads fail with a configuration error.
func NewStorageService(cloudName, apiKey, apiSecret string) (*StorageService, error) {
	if cloudName == "" {
		return &StorageService{folder: "unimart"}, nil
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init failed: %w", err)
	}
	return &StorageService{cld: cld, folder: "unimart"}, nil
}

// UploadImage stores a single uploaded file and returns its URL. Files
// larger than 1000px in either dimension are scaled down on the way in.
func (s *StorageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageFormats[ext] {
		return "", fmt.Errorf("unsupported image format %q", ext)
	}

	if s.cld == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       uuid.New().String(),
		Transformation: "c_limit,w_1000,h_1000",
	})
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	return result.SecureURL, nil
}

// UploadImages stores up to max files and returns their URLs. The first
// failure aborts the batch.
func (s *StorageService) UploadImages(ctx context.Context, files []*multipart.FileHeader, max int) ([]string, error) {
	if len(files) > max {
		return nil, fmt.Errorf("at most %d images allowed", max)
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := s.UploadImage(ctx, fh)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
