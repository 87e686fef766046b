package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"
)

const articlesBktName = "articles"

// Bolt is an index that uses BoltDB as a backend.
type Bolt struct {
	db *bolt.DB
}

// NewBolt creates new Bolt index at the given file path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make boltdb at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(articlesBktName)); err != nil {
			return fmt.Errorf("create top-level bucket %s: %w", articlesBktName, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("make buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Reset drops all entries left by a previous run.
func (b *Bolt) Reset(context.Context) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(articlesBktName)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("delete bucket: %w", err)
		}
		if _, err := tx.CreateBucket([]byte(articlesBktName)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// Put puts an entry to the index, keyed by article URL.
func (b *Bolt) Put(_ context.Context, e Entry) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))

		bts, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		if err := bkt.Put([]byte(e.URL), bts); err != nil {
			return fmt.Errorf("put entry to storage: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// List returns all entries ordered the same way as the ebook chapters.
func (b *Bolt) List(context.Context) ([]Entry, error) {
	var result []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))
		err := bkt.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal entry %s: %w", k, err)
			}
			result = append(result, e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("foreach: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view storage: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result, nil
}

// Get returns an entry by article URL.
func (b *Bolt) Get(_ context.Context, url string) (e Entry, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))

		bts := bkt.Get([]byte(url))
		if bts == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(bts, &e); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("view storage: %w", err)
	}

	return e, nil
}

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }
