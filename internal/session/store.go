package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
)

const minCleanupInterval = 10 * time.Millisecond

// entry is the mutable slot behind one session id. mu serializes every
// operation on the session.
type entry struct {
	mu      sync.Mutex
	session Session
	stream  camera.Stream
	removed bool

	// ctx scopes the detections of this session; cancel runs on removal.
	ctx    context.Context
	cancel context.CancelFunc
}

// releaseStream stops the camera stream owned by the entry. Callers hold mu.
func (e *entry) releaseStream() bool {
	if e.stream == nil {
		return false
	}
	e.stream.Stop()
	e.stream = nil
	return true
}

// Store keeps sessions in memory with a sliding TTL.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates a store whose entries expire after ttl without access.
// onRemove runs for every entry that leaves the store through Delete or
// expiry.
func NewStore(ttl time.Duration, onRemove func(*entry)) *Store {
	interval := ttl / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	c := gocache.New(ttl, interval)
	c.OnEvicted(func(_ string, v interface{}) {
		if e, ok := v.(*entry); ok {
			onRemove(e)
		}
	})
	return &Store{cache: c}
}

func (s *Store) add(e *entry) {
	s.cache.SetDefault(e.session.ID.String(), e)
}

func (s *Store) get(id uuid.UUID) (*entry, bool) {
	v, ok := s.cache.Get(id.String())
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// touch extends the TTL of a live entry.
func (s *Store) touch(e *entry) {
	s.cache.SetDefault(e.session.ID.String(), e)
}

// remove deletes id, running onRemove when it was present.
func (s *Store) remove(id uuid.UUID) {
	s.cache.Delete(id.String())
}

// drain empties the store without running onRemove and returns what it held.
func (s *Store) drain() []*entry {
	items := s.cache.Items()
	s.cache.Flush()

	entries := make([]*entry, 0, len(items))
	for _, item := range items {
		if e, ok := item.Object.(*entry); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// Count returns the number of stored sessions, including expired ones not
// yet cleaned up.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
