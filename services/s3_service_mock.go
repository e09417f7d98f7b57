package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is a mock implementation of S3Service for testing
type MockS3Service struct {
	objects map[string]string // map of S3 key to content type
	deleted []string
	mu      sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string]string),
	}
}

// SetAsMockForTesting backs the global image service with this mock
func (m *MockS3Service) SetAsMockForTesting() {
	InitImageService(m)
}

// PutObject stores an object as if a client had uploaded it through a presigned URL
func (m *MockS3Service) PutObject(s3Key, contentType string) {
	m.mu.Lock()
	m.objects[s3Key] = contentType
	m.mu.Unlock()
}

// PresignGet simulates generating a presigned URL
func (m *MockS3Service) PresignGet(ctx context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[s3Key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", s3Key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", s3Key), nil
}

// PresignPut simulates generating a presigned upload URL
func (m *MockS3Service) PresignPut(ctx context.Context, s3Key, contentType string) (string, error) {
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true&upload=true", s3Key), nil
}

// DeleteFile simulates deleting a file from S3
func (m *MockS3Service) DeleteFile(ctx context.Context, s3Key string) error {
	if s3Key == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.objects, s3Key)
	m.deleted = append(m.deleted, s3Key)
	m.mu.Unlock()

	return nil
}

// FileExists checks if a file exists in mock storage
func (m *MockS3Service) FileExists(s3Key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[s3Key]
	return exists
}

// DeletedKeys returns the keys passed to DeleteFile (for testing assertions)
func (m *MockS3Service) DeletedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}
