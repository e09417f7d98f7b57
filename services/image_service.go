package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopwise/shopwise-api/utils"
)

// ImageUpload describes where a client should PUT a new product image
type ImageUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// ImageService handles product image URLs and removal
type ImageService interface {
	// CreateUploadURL validates the content type and returns a presigned upload target
	CreateUploadURL(ctx context.Context, productID uint, contentType string) (*ImageUpload, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = NewS3ImageService(s3Service)
	return imageServiceInstance
}

// NewS3ImageService creates an image service on top of s3Service
func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// GetImageService returns the initialized image service instance, nil when S3 is not configured
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// ProductImageKey builds the storage key for a new image of a product
func ProductImageKey(productID uint, ext string) string {
	return fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), ext)
}

// CreateUploadURL presigns a PUT for a fresh key under the product's prefix
func (s *S3ImageService) CreateUploadURL(ctx context.Context, productID uint, contentType string) (*ImageUpload, error) {
	ext, err := utils.ValidateImageContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := ProductImageKey(productID, ext)
	uploadURL, err := s.s3Service.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload URL: %w", err)
	}

	return &ImageUpload{
		Key:       key,
		UploadURL: uploadURL,
		ExpiresIn: int(presignExpiry.Seconds()),
	}, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.PresignGet(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
