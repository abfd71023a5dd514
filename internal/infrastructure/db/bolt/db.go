package boltdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketEvents   = []byte("events")    // createdAt|seq|id -> event json
	bucketEventIds = []byte("event_ids") // id -> events key
	bucketPayments = []byte("payments")  // id -> payment json
)

// OpenDb opens the bolt file at dbPath, creating it and its buckets if
// missing.
func OpenDb(dbPath string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketEvents, bucketEventIds, bucketPayments} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		// nolint:errcheck
		db.Close()
		return nil, err
	}

	return db, nil
}
