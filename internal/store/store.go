// Package store implements the persistence contract for the Toolset
// Manager: a key-value-ish store keyed by (kind, id), with per-key
// atomicity. go.etcd.io/bbolt backs the concrete implementation.
package store

import "errors"

// Kind enumerates the store's buckets.
type Kind string

const (
	KindToolsets    Kind = "toolsets"
	KindPreferences Kind = "preferences"
)

// ErrNotFound is returned by Get when no blob exists for (kind, id).
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the Toolset Manager depends on.
type Store interface {
	Put(kind Kind, id string, blob []byte) error
	Get(kind Kind, id string) ([]byte, error)
	List(kind Kind) (map[string][]byte, error)
	Delete(kind Kind, id string) error
	Close() error
}
