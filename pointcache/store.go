package pointcache

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrStoreClosed is returned by the stores once closed.
var ErrStoreClosed = errors.New("store closed")

// Store persists the snapshots of caches.
type Store interface {
	// Write stores snap for its frame, replacing the previous one.
	Write(ctx context.Context, id uuid.UUID, snap Snapshot) error
	// Read returns the snapshot of frame, ok is false when none was written.
	Read(ctx context.Context, id uuid.UUID, frame int) (snap Snapshot, ok bool, err error)
	// Clear drops every frame of the cache id.
	Clear(ctx context.Context, id uuid.UUID) error
	Close() error
}

// MemoryStore keeps the snapshots in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	frames map[uuid.UUID]map[int]Snapshot
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{frames: make(map[uuid.UUID]map[int]Snapshot)}
}

func (s *MemoryStore) Write(_ context.Context, id uuid.UUID, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	frames, ok := s.frames[id]
	if !ok {
		frames = make(map[int]Snapshot)
		s.frames[id] = frames
	}
	// the caller keeps its slice
	snap.Bodies = append([]BodyState(nil), snap.Bodies...)
	frames[snap.Frame] = snap

	return nil
}

func (s *MemoryStore) Read(_ context.Context, id uuid.UUID, frame int) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Snapshot{}, false, ErrStoreClosed
	}
	snap, ok := s.frames[id][frame]
	if !ok {
		return Snapshot{}, false, nil
	}
	snap.Bodies = append([]BodyState(nil), snap.Bodies...)

	return snap, true, nil
}

func (s *MemoryStore) Clear(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.frames, id)
	return nil
}

// Len returns the number of frames stored for id.
func (s *MemoryStore) Len(id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames[id])
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}
