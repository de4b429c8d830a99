package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedVersion = errors.New("persist: stored version is newer than supported")
	ErrKeyRequired        = errors.New("persist: key is required")
)

// Storage is the device-local key-value store the stores mirror their state into.
type Storage interface {
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
}

// MigrateFunc upgrades a state payload written by an older schema version.
type MigrateFunc func(state json.RawMessage, fromVersion int) (json.RawMessage, error)

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Persister stores one state value of type T under a fixed key, wrapped with a schema version.
type Persister[T any] struct {
	storage Storage
	key     string
	version int
	migrate MigrateFunc
}

type Option func(*options)

type options struct {
	version int
	migrate MigrateFunc
}

// WithVersion sets the schema version written with every snapshot.
func WithVersion(v int) Option {
	return func(o *options) { o.version = v }
}

// WithMigration registers the upgrade path for snapshots older than the current version.
func WithMigration(fn MigrateFunc) Option {
	return func(o *options) { o.migrate = fn }
}

func New[T any](storage Storage, key string, opts ...Option) (*Persister[T], error) {
	if storage == nil {
		return nil, errors.New("persist: storage is required")
	}
	if key == "" {
		return nil, ErrKeyRequired
	}
	o := options{version: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Persister[T]{storage: storage, key: key, version: o.version, migrate: o.migrate}, nil
}

func (p *Persister[T]) Key() string { return p.key }

func (p *Persister[T]) Save(ctx context.Context, state T) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", p.key, err)
	}
	data, err := json.Marshal(envelope{State: raw, Version: p.version})
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", p.key, err)
	}
	if err := p.storage.SetItem(ctx, p.key, data); err != nil {
		return fmt.Errorf("persist: write %s: %w", p.key, err)
	}
	return nil
}

// Load returns the stored state. The boolean is false when nothing was stored yet.
func (p *Persister[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	data, ok, err := p.storage.GetItem(ctx, p.key)
	if err != nil {
		return zero, false, fmt.Errorf("persist: read %s: %w", p.key, err)
	}
	if !ok || len(data) == 0 {
		return zero, false, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, false, fmt.Errorf("persist: decode %s: %w", p.key, err)
	}
	if env.Version > p.version {
		return zero, false, fmt.Errorf("%w: %s has version %d, want <= %d", ErrUnsupportedVersion, p.key, env.Version, p.version)
	}
	raw := env.State
	if env.Version < p.version && p.migrate != nil {
		raw, err = p.migrate(raw, env.Version)
		if err != nil {
			return zero, false, fmt.Errorf("persist: migrate %s from v%d: %w", p.key, env.Version, err)
		}
	}
	var state T
	if len(raw) == 0 || string(raw) == "null" {
		return zero, false, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return zero, false, fmt.Errorf("persist: decode %s state: %w", p.key, err)
	}
	return state, true, nil
}

func (p *Persister[T]) Clear(ctx context.Context) error {
	if err := p.storage.RemoveItem(ctx, p.key); err != nil {
		return fmt.Errorf("persist: remove %s: %w", p.key, err)
	}
	return nil
}
