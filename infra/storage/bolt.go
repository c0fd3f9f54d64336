package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/CrestNiraj12/tapestry/app"
)

const bucketPrefix = "feed:"

// valueTag prefixes every stored value so an empty string is never confused
// with a missing key.
const valueTag = 's'

// BoltStore keeps every feed's items in its own bucket of a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Scope(feed string) app.Store {
	return &boltScope{db: s.db, bucket: []byte(bucketPrefix + feed)}
}

func (s *BoltStore) Keys(feed string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPrefix + feed))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

type boltScope struct {
	db     *bolt.DB
	bucket []byte
}

func (s *boltScope) SetItem(key string, value *string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if value == nil {
			b := tx.Bucket(s.bucket)
			if b == nil {
				return nil
			}
			return b.Delete([]byte(key))
		}
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), append([]byte{valueTag}, *value...))
	})
}

func (s *boltScope) GetItem(key string) (string, bool, error) {
	var (
		out string
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if len(v) == 0 || v[0] != valueTag {
			return nil
		}
		out, ok = string(v[1:]), true
		return nil
	})
	return out, ok, err
}

func (s *boltScope) ClearItems() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(s.bucket)
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}
