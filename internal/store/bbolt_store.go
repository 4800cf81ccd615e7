package store

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// BoltStore is a Store backed by an embedded bbolt database file, with one
// bucket per Kind.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt database at path and
// ensures both buckets exist.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range []Kind{KindToolsets, KindPreferences} {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return fmt.Errorf("create bucket %s: %w", kind, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(kind Kind, id string, blob []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return fmt.Errorf("unknown kind %q", kind)
		}
		// bbolt retains the []byte only for the duration of the
		// transaction; copy before storing it ourselves downstream.
		blobCopy := make([]byte, len(blob))
		copy(blobCopy, blob)
		return bucket.Put([]byte(id), blobCopy)
	})
}

func (s *BoltStore) Get(kind Kind, id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return fmt.Errorf("unknown kind %q", kind)
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) List(kind Kind) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return fmt.Errorf("unknown kind %q", kind)
		}
		return bucket.ForEach(func(k, v []byte) error {
			value := make([]byte, len(v))
			copy(value, v)
			out[string(k)] = value
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Delete(kind Kind, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return fmt.Errorf("unknown kind %q", kind)
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
