// Package store persists the claim and appeal collections in a key-value
// medium. Reads and writes never fail from the caller's point of view: a
// broken backend degrades to defaults and dropped writes, both logged.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
)

const (
	ClaimsKey  = "claimflow_claims"
	AppealsKey = "claimflow_appeals"
)

var (
	// ErrNotFound is returned by a Backend when the key has never been written.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable is reported when no backend is configured.
	ErrUnavailable = errors.New("storage unavailable")
)

// Backend is the storage medium port.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	Backend Backend
	Logger  zerolog.Logger
}

func New(backend Backend, logger zerolog.Logger) *Store {
	return &Store{Backend: backend, Logger: logger.With().Str("component", "store").Logger()}
}

// Read decodes the value under key into dst and reports whether it did.
// On false, dst is left untouched so the caller's default stands.
func (s *Store) Read(ctx context.Context, key string, dst any) bool {
	ok, _ := s.Load(ctx, key, dst)
	return ok
}

// Load is Read with backend faults surfaced. A missing key or an unusable
// value yields (false, nil); a medium that could not be read yields
// (false, err) and the caller must not treat the collection as empty.
func (s *Store) Load(ctx context.Context, key string, dst any) (bool, error) {
	if s == nil || s.Backend == nil {
		return false, ErrUnavailable
	}
	raw, err := s.Backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("key", key).Msg("storage read failed")
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.Logger.Error().Err(err).Str("key", key).Msg("stored value is not valid json")
		return false, nil
	}
	return true, nil
}

// Write encodes value and stores it under key. Failures are logged and dropped.
func (s *Store) Write(ctx context.Context, key string, value any) {
	if s == nil || s.Backend == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		s.Logger.Error().Err(err).Str("key", key).Msg("storage encode failed")
		return
	}
	if err := s.Backend.Put(ctx, key, b); err != nil {
		s.Logger.Error().Err(err).Str("key", key).Msg("storage write failed")
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.Backend == nil {
		return ErrUnavailable
	}
	return s.Backend.Ping(ctx)
}

func (s *Store) Close() {
	if s != nil && s.Backend != nil {
		s.Backend.Close()
	}
}
