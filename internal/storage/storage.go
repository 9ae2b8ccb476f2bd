// Package storage provides the durable key-value store that backs rollback
// records, install analytics, and offline data snapshots.
package storage

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key-value store. Values are opaque strings; callers
// handle their own serialization.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}
