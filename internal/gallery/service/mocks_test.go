package service_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/internal/gallery/repository"
	"github.com/narwhalmedia/gallery/pkg/blob"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// MockStore is a mock for the blob store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Object, error) {
	args := m.Called(ctx, key, r, opts)
	return args.Get(0).(blob.Object), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// failingFinalizeRepository fails every FinalizePhoto call.
type failingFinalizeRepository struct {
	repository.Repository
	err error
}

func (r *failingFinalizeRepository) FinalizePhoto(context.Context, uuid.UUID, string, domain.Metadata) (*domain.Photo, error) {
	return nil, r.err
}

// slowFinalizeRepository finalizes normally, then stalls for delay.
type slowFinalizeRepository struct {
	repository.Repository
	delay time.Duration
}

func (r *slowFinalizeRepository) FinalizePhoto(ctx context.Context, id uuid.UUID, url string, metadata domain.Metadata) (*domain.Photo, error) {
	photo, err := r.Repository.FinalizePhoto(ctx, id, url, metadata)
	time.Sleep(r.delay)
	return photo, err
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event interfaces.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}
