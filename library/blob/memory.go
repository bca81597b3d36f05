package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/Laisky/errors/v2"
)

// MemoryStore keeps blobs in process memory. Intended for tests and
// single-node development, not durable storage.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (s *MemoryStore) Put(ctx context.Context, scope, name string, r io.Reader, size int64) (string, error) {
	locator, err := newLocator(scope, name)
	if err != nil {
		return "", err
	}

	cnt, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(err, "read blob %q", locator)
	}

	s.mu.Lock()
	s.blobs[locator] = cnt
	s.mu.Unlock()

	return locator, nil
}

func (s *MemoryStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.mu.RLock()
	cnt, ok := s.blobs[locator]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "blob %q", locator)
	}

	return io.NopCloser(bytes.NewReader(cnt)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	delete(s.blobs, locator)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, locator string) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[locator]
	s.mu.RUnlock()

	return ok, nil
}
