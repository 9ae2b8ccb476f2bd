// Package offline manages data snapshots that keep the app usable without a
// network: values are written to a primary store and fall back to a second
// store when the primary is unavailable.
package offline

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/pwakit/pwakit/internal/storage"
)

// Manager saves and loads offline data snapshots. When the primary store
// fails, the fallback store is used; the caller always learns via an
// explicit error when neither store could serve the request.
type Manager struct {
	primary  storage.Store
	fallback storage.Store
}

// New creates a manager over a primary store and an optional fallback.
func New(primary, fallback storage.Store) *Manager {
	return &Manager{primary: primary, fallback: fallback}
}

// Save writes value under key to the primary store, falling back when the
// primary fails. An error is returned only when every store failed.
func (m *Manager) Save(key, value string) error {
	primaryErr := m.primary.Set(key, value)
	if primaryErr == nil {
		return nil
	}
	if m.fallback == nil {
		return fmt.Errorf("failed to save %q: %w", key, primaryErr)
	}

	log.WithError(primaryErr).WithField("key", key).
		Debug("primary store failed, using fallback")
	if err := m.fallback.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %q: primary: %v; fallback: %w", key, primaryErr, err)
	}
	return nil
}

// Load reads key from the primary store, then from the fallback. A key
// absent from both yields storage.ErrNotFound.
func (m *Manager) Load(key string) (string, error) {
	value, primaryErr := m.primary.Get(key)
	if primaryErr == nil {
		return value, nil
	}
	if m.fallback == nil {
		return "", fmt.Errorf("failed to load %q: %w", key, primaryErr)
	}

	value, err := m.fallback.Get(key)
	if err == nil {
		return value, nil
	}
	if errors.Is(primaryErr, storage.ErrNotFound) && errors.Is(err, storage.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	return "", fmt.Errorf("failed to load %q: primary: %v; fallback: %w", key, primaryErr, err)
}

// Remove deletes key from both stores. An error is returned only when every
// store failed to remove it.
func (m *Manager) Remove(key string) error {
	primaryErr := m.primary.Remove(key)
	if m.fallback == nil {
		return primaryErr
	}
	fallbackErr := m.fallback.Remove(key)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("failed to remove %q: primary: %v; fallback: %w", key, primaryErr, fallbackErr)
	}
	return nil
}

// Cached reports whether key is available in any store.
func (m *Manager) Cached(key string) bool {
	if _, err := m.primary.Get(key); err == nil {
		return true
	}
	if m.fallback == nil {
		return false
	}
	_, err := m.fallback.Get(key)
	return err == nil
}
