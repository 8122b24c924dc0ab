package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps objects in memory. It backs local development and
// tests.
type MemoryStore struct {
	bucket string
	public bool

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(bucket string, public bool) *MemoryStore {
	if bucket == "" {
		bucket = "memory"
	}
	return &MemoryStore{bucket: bucket, public: public, objects: make(map[string]memoryObject)}
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: opts.ContentType}
	m.mu.Unlock()

	objectURL := m.publicURL(key)
	if !m.public {
		objectURL, _ = m.SignedURL(ctx, key, DefaultSignedURLTTL)
	}
	return Object{Key: key, URL: objectURL, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// SignedURL implements Store.
func (m *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s?expires=%d", m.publicURL(key), time.Now().Add(ttl).Unix()), nil
}

// Open returns the stored bytes of key.
func (m *MemoryStore) Open(key string) (io.Reader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.NewReader(obj.data), nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) publicURL(key string) string {
	return fmt.Sprintf("memory://%s/%s", m.bucket, key)
}
