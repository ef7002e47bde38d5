package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

var _ catalogapp.ImageStorage = (*StubImageStorage)(nil)

// StubImageStorage is used when no bucket is configured. Upload URLs point at
// BaseURL and every presigned key is remembered as uploaded, so the attach
// flow works end to end in development.
type StubImageStorage struct {
	BaseURL string

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewStubImageStorage creates a stub rooted at baseURL
func NewStubImageStorage(baseURL string) *StubImageStorage {
	if baseURL == "" {
		baseURL = "http://localhost:9000/storefront-images"
	}
	return &StubImageStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		keys:    make(map[string]struct{}),
	}
}

// PresignUpload implements catalogapp.ImageStorage
func (s *StubImageStorage) PresignUpload(_ context.Context, key, contentType string) (*catalogapp.UploadTarget, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()

	return &catalogapp.UploadTarget{
		Key:       key,
		UploadURL: s.BaseURL + "/upload/" + key,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		PublicURL: s.PublicURL(key),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

// PublicURL implements catalogapp.ImageStorage
func (s *StubImageStorage) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}

// Exists implements catalogapp.ImageStorage
func (s *StubImageStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Delete implements catalogapp.ImageStorage
func (s *StubImageStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}
