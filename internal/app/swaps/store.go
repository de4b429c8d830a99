package swaps

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentme-app/internal/app/outbox"
	"rentme-app/internal/app/persist"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/shared/daterange"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

// StorageKey is the key the swap snapshot is mirrored under.
const StorageKey = "swap-storage"

// State is the persisted swap snapshot.
type State struct {
	SwapRequests       []swap.Request    `json:"swapRequests"`
	UserSwappableItems []catalog.Product `json:"userSwappableItems"`
}

type Stats struct {
	TotalSwaps      int `json:"totalSwaps"`
	CompletedSwaps  int `json:"completedSwaps"`
	PendingRequests int `json:"pendingRequests"`
	SuccessRate     int `json:"successRate"`
}

// CreateParams are the inputs of CreateSwapRequest. Message and SwapDuration are optional.
type CreateParams struct {
	RequestedProduct catalog.Product
	OfferedProduct   catalog.Product
	Requester        user.User
	Message          string
	SwapDuration     *daterange.DateRange
}

// Store manages barter proposals and the items a user offers for swapping.
type Store struct {
	mu        sync.RWMutex
	state     State
	persister *persist.Persister[State]
	logger    *slog.Logger
	outbox    outbox.Outbox
	encoder   outbox.EventEncoder
	strict    bool
	now       func() time.Time
	newID     func() string

	persistOpts []persist.Option
}

type Option func(*Store)

// WithStrictTransitions rejects status moves the lifecycle table does not allow.
func WithStrictTransitions() Option {
	return func(s *Store) { s.strict = true }
}

// WithOutbox forwards lifecycle events to box.
func WithOutbox(box outbox.Outbox, encoder outbox.EventEncoder) Option {
	return func(s *Store) {
		s.outbox = box
		s.encoder = encoder
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithPersistOptions configures the snapshot schema version and migration hook.
func WithPersistOptions(opts ...persist.Option) Option {
	return func(s *Store) { s.persistOpts = append(s.persistOpts, opts...) }
}

func NewStore(storage persist.Storage, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger: logger.With("store", "swaps"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newRequestID,
	}
	for _, opt := range opts {
		opt(s)
	}
	p, err := persist.New[State](storage, StorageKey, s.persistOpts...)
	if err != nil {
		return nil, err
	}
	s.persister = p
	return s, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) Hydrate(ctx context.Context) error {
	state, ok, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := State{}
	if s.state.SwapRequests != nil {
		out.SwapRequests = make([]swap.Request, len(s.state.SwapRequests))
		for i, r := range s.state.SwapRequests {
			out.SwapRequests[i] = r.Clone()
		}
	}
	if s.state.UserSwappableItems != nil {
		out.UserSwappableItems = make([]catalog.Product, len(s.state.UserSwappableItems))
		for i, p := range s.state.UserSwappableItems {
			out.UserSwappableItems[i] = p.Clone()
		}
	}
	return out
}

// CreateSwapRequest appends a pending request whose owner is the requested product's owner.
func (s *Store) CreateSwapRequest(ctx context.Context, params CreateParams) swap.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := swap.New(swap.CreateParams{
		ID:               s.newID(),
		RequestedProduct: params.RequestedProduct,
		OfferedProduct:   params.OfferedProduct,
		Requester:        params.Requester,
		Message:          params.Message,
		SwapDuration:     params.SwapDuration,
		CreatedAt:        s.now(),
	})
	s.publishLocked(ctx, req)
	s.state.SwapRequests = append(s.state.SwapRequests, *req)
	s.persistLocked(ctx)
	s.logger.Info("swap requested", "request_id", req.ID, "requester_id", req.Requester.ID, "owner_id", req.Owner.ID)
	return req.Clone()
}

func (s *Store) AcceptSwapRequest(ctx context.Context, id string) error {
	return s.transition(ctx, id, swap.StatusAccepted)
}

func (s *Store) DeclineSwapRequest(ctx context.Context, id string) error {
	return s.transition(ctx, id, swap.StatusDeclined)
}

func (s *Store) CancelSwapRequest(ctx context.Context, id string) error {
	return s.transition(ctx, id, swap.StatusCancelled)
}

func (s *Store) CompleteSwapRequest(ctx context.Context, id string) error {
	return s.transition(ctx, id, swap.StatusCompleted)
}

// transition ignores unknown ids. It only fails in strict mode on an illegal move.
func (s *Store) transition(ctx context.Context, id string, to swap.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.SwapRequests {
		req := &s.state.SwapRequests[i]
		if req.ID != id {
			continue
		}
		from := req.Status
		if err := req.Transition(to, s.now(), s.strict); err != nil {
			s.logger.Warn("swap transition rejected", "request_id", id, "from", from, "to", to)
			return err
		}
		s.publishLocked(ctx, req)
		s.persistLocked(ctx)
		s.logger.Info("swap status changed", "request_id", id, "from", from, "to", to)
		return nil
	}
	s.logger.Debug("swap transition for unknown request ignored", "request_id", id, "to", to)
	return nil
}

// Request looks up a single request by id.
func (s *Store) Request(id string) (swap.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.state.SwapRequests {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return swap.Request{}, false
}

// ForUser lists requests where the user is requester or owner.
func (s *Store) ForUser(id user.ID) []swap.Request {
	return s.filter(func(r swap.Request) bool { return r.Involves(id) })
}

func (s *Store) ByStatus(status swap.Status) []swap.Request {
	return s.filter(func(r swap.Request) bool { return r.Status == status })
}

func (s *Store) filter(keep func(swap.Request) bool) []swap.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]swap.Request, 0)
	for _, r := range s.state.SwapRequests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// SwappableItems lists the offered items owned by the user.
func (s *Store) SwappableItems(id user.ID) []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0)
	for _, p := range s.state.UserSwappableItems {
		if p.Owner.ID == id {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) AddSwappableItem(ctx context.Context, p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UserSwappableItems = append(s.state.UserSwappableItems, p.Clone())
	s.persistLocked(ctx)
}

// RemoveSwappableItem drops every item with the id and reports whether any was removed.
func (s *Store) RemoveSwappableItem(ctx context.Context, id catalog.ProductID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.state.UserSwappableItems[:0]
	removed := false
	for _, p := range s.state.UserSwappableItems {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.state.UserSwappableItems = kept
	s.persistLocked(ctx)
	return removed
}

// Stats aggregates the requests involving the user. SuccessRate is the rounded
// percentage of completed requests, 0 when there are none.
func (s *Store) Stats(id user.ID) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, r := range s.state.SwapRequests {
		if !r.Involves(id) {
			continue
		}
		st.TotalSwaps++
		switch r.Status {
		case swap.StatusCompleted:
			st.CompletedSwaps++
		case swap.StatusPending:
			st.PendingRequests++
		}
	}
	if st.TotalSwaps > 0 {
		st.SuccessRate = int(math.Round(float64(st.CompletedSwaps) / float64(st.TotalSwaps) * 100))
	}
	return st
}

func (s *Store) publishLocked(ctx context.Context, req *swap.Request) {
	evs := req.Drain()
	if err := outbox.RecordDomainEvents(ctx, s.outbox, s.encoder, evs); err != nil {
		s.logger.Error("record swap events failed", "request_id", req.ID, "error", err)
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persister.Save(ctx, s.state); err != nil {
		s.logger.Error("persist swaps failed", "error", err)
	}
}
