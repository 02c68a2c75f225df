package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// KV is the persistent key-value store the credentials live in.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store keeps the current credentials in memory, backed by a KV.
type Store struct {
	kv     KV
	logger *slog.Logger

	mu    sync.RWMutex
	creds Credentials
}

// NewStore returns an empty store. Call Load to hydrate it.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("component", "credentials")}
}

// Load reads the persisted record into memory. Any failure leaves the store
// empty and returns false.
func (s *Store) Load(ctx context.Context) bool {
	creds, ok := s.read(ctx)

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	return ok
}

func (s *Store) read(ctx context.Context) (Credentials, bool) {
	raw, found, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read stored credentials", "error", err)
		return Credentials{}, false
	}
	if !found {
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		s.logger.WarnContext(ctx, "Stored credentials are malformed, ignoring", "error", err)
		return Credentials{}, false
	}
	if !HasTokenPrefix(creds.Token) {
		s.logger.WarnContext(ctx, "Stored token has an unknown prefix, ignoring")
		return Credentials{}, false
	}
	return creds, true
}

// Save trims and validates the inputs, persists them and updates memory.
// On error neither memory nor storage changes.
func (s *Store) Save(ctx context.Context, token, incomeID, expensesID string) (Credentials, error) {
	creds := Credentials{
		Token:              strings.TrimSpace(token),
		IncomeDatabaseID:   strings.TrimSpace(incomeID),
		ExpensesDatabaseID: strings.TrimSpace(expensesID),
	}
	if err := Validate(creds); err != nil {
		return Credentials{}, err
	}

	raw, err := json.Marshal(creds)
	if err != nil {
		return Credentials{}, fmt.Errorf("encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Put(ctx, StorageKey, string(raw)); err != nil {
		return Credentials{}, fmt.Errorf("persist credentials: %w", err)
	}
	s.creds = creds

	s.logger.InfoContext(ctx, "Credentials saved", "token", creds.MaskedToken())
	return creds, nil
}

// IsComplete reports whether the in-memory credentials are usable.
func (s *Store) IsComplete() bool {
	return s.Current().IsComplete()
}

// Current returns a copy of the in-memory credentials.
func (s *Store) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Clear erases the persisted record and resets memory.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	s.creds = Credentials{}

	s.logger.InfoContext(ctx, "Credentials cleared")
	return nil
}
