package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/call"
	"github.com/janhq/voicecall/internal/domain/failure"
)

var (
	// ErrCallNotFound is returned when a call record is not found.
	ErrCallNotFound = errors.New("call not found")
	// ErrCallAlreadyExists is returned when trying to create a record that already exists.
	ErrCallAlreadyExists = errors.New("call already exists")
)

// DefaultLimit is how many call records are kept before the oldest are dropped.
const DefaultLimit = 100

// MemoryStore is a mutex-based in-memory call history.
// Records are copied in and out so callers never share them.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*call.Record
	order   []string // insertion order, oldest first
	limit   int
	now     func() time.Time
	log     zerolog.Logger
}

// NewMemoryStore creates a store keeping at most limit records. A limit of
// zero or less means DefaultLimit.
func NewMemoryStore(limit int, log zerolog.Logger) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{
		records: make(map[string]*call.Record),
		limit:   limit,
		now:     time.Now,
		log:     log.With().Str("component", "call-store").Logger(),
	}
}

// Create stores a new record, evicting the oldest when full.
func (s *MemoryStore) Create(ctx context.Context, record *call.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return ErrCallAlreadyExists
	}

	for len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
		s.log.Debug().Str("call_id", oldest).Msg("evicted call record")
	}

	cp := *record
	s.records[record.ID] = &cp
	s.order = append(s.order, record.ID)
	return nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*call.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns all records, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*call.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*call.Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		cp := *s.records[s.order[i]]
		result = append(result, &cp)
	}
	return result, nil
}

// UpdateState updates the state of a record. Moving to ended stamps EndedAt once.
func (s *MemoryStore) UpdateState(ctx context.Context, id string, state call.State, reason failure.Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrCallNotFound
	}

	now := s.now()
	rec.State = state
	if reason != failure.ReasonNone {
		rec.Reason = reason
	}
	rec.UpdatedAt = now
	if state == call.StateEnded && rec.EndedAt == nil {
		rec.EndedAt = &now
	}
	return nil
}
