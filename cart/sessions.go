package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"syntrad-backend/storage"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "cart:"

// KeyFor returns the storage key of a session's cart.
func KeyFor(sessionID string) string {
	return keyPrefix + sessionID
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

// Sessions hands out one Store per browsing session, all backed by the same
// storage backend. Stores idle for longer than idle are dropped from memory;
// their snapshots stay in the backend and are reloaded on the next request.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	backend storage.Store
	idle    time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewSessions(backend storage.Store, idle time.Duration, log logrus.FieldLogger) *Sessions {
	if log == nil {
		log = discardLogger()
	}
	return &Sessions{
		entries: make(map[string]*sessionEntry),
		backend: backend,
		idle:    idle,
		log:     log,
		now:     time.Now,
	}
}

// Get returns the cart for sessionID, loading it from the backend on first use.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}

	s.mu.Lock()
	if e, ok := s.entries[sessionID]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.store, nil
	}
	s.mu.Unlock()

	// Load outside the lock so one slow backend read does not stall every session.
	store, err := Open(ctx, s.backend, KeyFor(sessionID), s.log)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		e.lastSeen = s.now()
		return e.store, nil
	}
	s.entries[sessionID] = &sessionEntry{store: store, lastSeen: s.now()}
	return store, nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict drops every store not used since idle before now and reports how many went.
func (s *Sessions) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.idle {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle stores every interval until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(s.now()); n > 0 {
				s.log.WithFields(logrus.Fields{"evicted": n, "open": s.Len()}).Debug("evicted idle carts")
			}
		}
	}
}
