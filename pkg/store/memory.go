package store

import (
	"context"
	"sync"
	"time"
)

// MemoryObjectStore is an in-process ObjectStore used by tests and local
// runs. Failure injection hooks let tests exercise the error paths.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// FailDownload and FailUpload, when set, are returned verbatim by the
	// corresponding operations.
	FailDownload error
	FailUpload   error

	// Clock overrides the write timestamp, defaulting to time.Now.
	Clock func() time.Time
}

type memoryObject struct {
	data    []byte
	updated time.Time
}

var _ ObjectStore = &MemoryObjectStore{}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: map[string]memoryObject{}}
}

func (s *MemoryObjectStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *MemoryObjectStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[name]
	return ok, nil
}

func (s *MemoryObjectStore) LastModified(_ context.Context, name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	if !ok {
		return time.Time{}, ErrObjectNotExist
	}
	return obj.updated, nil
}

func (s *MemoryObjectStore) Download(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailDownload != nil {
		return nil, s.FailDownload
	}
	obj, ok := s.objects[name]
	if !ok {
		return nil, ErrObjectNotExist
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryObjectStore) Upload(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpload != nil {
		return s.FailUpload
	}
	s.objects[name] = memoryObject{data: append([]byte(nil), data...), updated: s.now()}
	return nil
}

// SetUpdated backdates an object's last-write time; staleness tests use it.
func (s *MemoryObjectStore) SetUpdated(name string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[name]; ok {
		obj.updated = ts
		s.objects[name] = obj
	}
}
