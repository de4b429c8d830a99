package session

import (
	"context"
	"log/slog"
	"sync"

	"rentme-app/internal/app/persist"
	"rentme-app/internal/domain/user"
)

// StorageKey is the key the session snapshot is mirrored under.
const StorageKey = "auth-storage"

// State is the persisted session snapshot.
type State struct {
	User                   *user.User `json:"user"`
	IsAuthenticated        bool       `json:"isAuthenticated"`
	HasCompletedOnboarding bool       `json:"hasCompletedOnboarding"`
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := s.User.Clone()
		out.User = &u
	}
	return out
}

// Store tracks the signed-in user and the onboarding flag. Authentication is
// client-local, so none of the mutations can fail.
type Store struct {
	mu                     sync.RWMutex
	state                  State
	persister              *persist.Persister[State]
	logger                 *slog.Logger
	keepOnboardingOnLogout bool
	persistOpts            []persist.Option
}

type Option func(*Store)

// WithOnboardingKeptOnLogout stops Logout from resetting the onboarding flag.
func WithOnboardingKeptOnLogout() Option {
	return func(s *Store) { s.keepOnboardingOnLogout = true }
}

// WithPersistOptions configures the snapshot schema version and migration hook.
func WithPersistOptions(opts ...persist.Option) Option {
	return func(s *Store) { s.persistOpts = append(s.persistOpts, opts...) }
}

func NewStore(storage persist.Storage, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger.With("store", "session")}
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

// Hydrate replaces the in-memory state with the persisted snapshot, if any.
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
	return s.state.clone()
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return user.User{}, false
	}
	return s.state.User.Clone(), true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Login replaces the current user. The payload is taken as is.
func (s *Store) Login(ctx context.Context, u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u.Clone()
	s.state.User = &cp
	s.state.IsAuthenticated = true
	s.persistLocked(ctx)
	s.logger.Info("user logged in", "user_id", u.ID)
}

// Logout clears the user and, unless configured otherwise, the onboarding flag.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.state.IsAuthenticated = false
	if !s.keepOnboardingOnLogout {
		s.state.HasCompletedOnboarding = false
	}
	s.persistLocked(ctx)
	s.logger.Info("user logged out")
}

// UpdateUser merges the patch into the current user. It reports false and changes
// nothing when nobody is logged in.
func (s *Store) UpdateUser(ctx context.Context, patch user.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return false
	}
	updated := s.state.User.Apply(patch)
	s.state.User = &updated
	s.persistLocked(ctx)
	return true
}

func (s *Store) CompleteOnboarding(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.HasCompletedOnboarding = true
	s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persister.Save(ctx, s.state); err != nil {
		s.logger.Error("persist session failed", "error", err)
	}
}
