package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"cloud.google.com/go/storage"
)

// ObjectStore writes whole objects to a bucket.
type ObjectStore interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) error
	DownloadURL(objectPath string) string
}

// FirebaseStorageService implements ObjectStore on the Firebase Storage bucket.
type FirebaseStorageService struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewFirebaseStorageService wraps the app's bucket handle.
func NewFirebaseStorageService(bucket *storage.BucketHandle, bucketName string) *FirebaseStorageService {
	return &FirebaseStorageService{bucket: bucket, bucketName: bucketName}
}

func (s *FirebaseStorageService) Put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ObjectAttrs.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// DownloadURL is the console-style URL of an object; access still needs
// credentials.
func (s *FirebaseStorageService) DownloadURL(objectPath string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", s.bucketName, url.QueryEscape(objectPath))
}

// MemoryObjectStore keeps objects in memory. It backs STORE_BACKEND=memory.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Put(_ context.Context, objectPath string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryObjectStore) DownloadURL(objectPath string) string {
	return "memory://" + objectPath
}

// Get returns a stored object.
func (m *MemoryObjectStore) Get(objectPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectPath]
	return data, ok
}
