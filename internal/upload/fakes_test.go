package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

type memoryStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	ensured   map[string]int
	uploadErr error
	ensureErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		ensured: make(map[string]int),
	}
}

func (s *memoryStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucket + "/" + objectName
	if _, exists := s.objects[key]; exists {
		return fmt.Errorf("%w: %s", ports.ErrObjectExists, key)
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memoryStorage) Remove(ctx context.Context, bucket string, objectNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range objectNames {
		delete(s.objects, bucket+"/"+name)
	}
	return nil
}

func (s *memoryStorage) PublicURL(bucket, objectName string) string {
	return "http://minio.test/" + bucket + "/" + objectName
}

func (s *memoryStorage) EnsureBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured[bucket]++
	return s.ensureErr
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *memoryStorage) has(bucket, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+path]
	return ok
}

type countingAuth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *countingAuth) EnsureAuthenticated(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

var errDenied = errors.New("row level security denied the upload")
