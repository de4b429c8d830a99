package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "rentme-app/internal/app/outbox"
)

var ErrUnknownEvent = errors.New("outbox: unknown event")

// MemoryStore is a process-local outbox. When limit is positive the oldest entries
// are discarded once it is exceeded.
type MemoryStore struct {
	mu      sync.Mutex
	entries []EventDocument
	limit   int
	now     func() time.Time
}

var (
	_ appoutbox.Outbox = (*MemoryStore)(nil)
	_ Store            = (*MemoryStore)(nil)
)

func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Add(_ context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, newDocument(record, s.now()))
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append([]EventDocument(nil), s.entries[len(s.entries)-s.limit:]...)
	}
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, workerID string) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i := range s.entries {
		e := &s.entries[i]
		if e.State != stateNew && e.State != stateFailed {
			continue
		}
		if e.NextAttempt.After(now) {
			continue
		}
		e.State = stateClaimed
		e.ClaimedBy = workerID
		e.ClaimedAt = now
		doc := *e
		return &doc, nil
	}
	return nil, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, id string) error {
	return s.update(id, func(e *EventDocument) {
		e.State = stateSent
		e.SentAt = s.now()
	})
}

func (s *MemoryStore) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	return s.update(id, func(e *EventDocument) {
		e.State = stateFailed
		e.NextAttempt = next
		e.LastError = errMsg
		e.Attempts++
	})
}

// Pending counts entries not yet delivered.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.State != stateSent {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Entries() []EventDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EventDocument(nil), s.entries...)
}

func (s *MemoryStore) update(id string, fn func(*EventDocument)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			fn(&s.entries[i])
			return nil
		}
	}
	return ErrUnknownEvent
}
