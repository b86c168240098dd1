package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrObjectNotFound is returned when a stored object does not exist
var ErrObjectNotFound = errors.New("object not found")

type stubObject struct {
	data        []byte
	contentType string
}

// StubDocumentStorage is an in-memory storage backend for tests and local
// development without an object store
type StubDocumentStorage struct {
	mu      sync.RWMutex
	objects map[string]stubObject
}

// NewStubDocumentStorage creates an empty in-memory storage
func NewStubDocumentStorage() *StubDocumentStorage {
	return &StubDocumentStorage{objects: make(map[string]stubObject)}
}

// Upload stores document bytes under the given key
func (s *StubDocumentStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[storageKey] = stubObject{data: copied, contentType: contentType}
	return nil
}

// Download retrieves document bytes by key
func (s *StubDocumentStorage) Download(_ context.Context, storageKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	if !ok {
		return nil, ErrObjectNotFound
	}
	copied := make([]byte, len(obj.data))
	copy(copied, obj.data)
	return copied, nil
}

// Delete removes an object
func (s *StubDocumentStorage) Delete(_ context.Context, storageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// PresignDownload returns a fake URL for the object
func (s *StubDocumentStorage) PresignDownload(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	s.mu.RLock()
	_, ok := s.objects[storageKey]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, ErrObjectNotFound
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	return fmt.Sprintf("stub://documents/%s", storageKey), time.Now().Add(expiresIn), nil
}

// Len reports the number of stored objects
func (s *StubDocumentStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
