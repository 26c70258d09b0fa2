package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-tinte/analysis"
	"github.com/RyanBlaney/sonido-tinte/logging"
	"github.com/dgraph-io/badger/v3"
)

// ErrNotFound is returned when no FeatureSet is stored under a key
var ErrNotFound = errors.New("feature set not cached")

// keyPrefix namespaces FeatureSet entries inside the database
var keyPrefix = []byte("fs/")

// Options configures a Store
type Options struct {
	Dir      string        `json:"dir"`       // Database directory, ignored when InMemory is set
	InMemory bool          `json:"in_memory"` // Keep everything in memory
	TTL      time.Duration `json:"ttl"`       // Entry lifetime, 0 = never expire
}

// Store persists FeatureSets keyed by signal digest and configuration digest
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger logging.Logger
}

// Open opens or creates a store
func Open(opts Options) (*Store, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "feature_cache",
	})

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("cache directory is required")
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	logger.Debug("Cache opened", logging.Fields{
		"dir":       opts.Dir,
		"in_memory": opts.InMemory,
		"ttl":       opts.TTL.String(),
	})

	return &Store{db: db, ttl: opts.TTL, logger: logger}, nil
}

// Key builds the database key for a signal and configuration digest pair
func Key(signalDigest, configDigest uint64) []byte {
	key := make([]byte, len(keyPrefix)+16)
	n := copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[n:], signalDigest)
	binary.BigEndian.PutUint64(key[n+8:], configDigest)
	return key
}

// Get returns the FeatureSet stored for the digests, or ErrNotFound
func (s *Store) Get(signalDigest, configDigest uint64) (*analysis.FeatureSet, error) {
	var features analysis.FeatureSet

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(signalDigest, configDigest))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &features)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read cached features: %w", err)
	}

	return &features, nil
}

// Put stores features under the digests, replacing any previous entry
func (s *Store) Put(signalDigest, configDigest uint64, features *analysis.FeatureSet) error {
	if features == nil {
		return fmt.Errorf("cannot cache nil feature set")
	}

	val, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	entry := badger.NewEntry(Key(signalDigest, configDigest), val)
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("failed to write cached features: %w", err)
	}

	s.logger.Debug("Features cached", logging.Fields{
		"function":      "Put",
		"signal_digest": signalDigest,
		"config_digest": configDigest,
		"bytes":         len(val),
	})
	return nil
}

// Delete removes the entry for the digests. Deleting a missing entry is not an error.
func (s *Store) Delete(signalDigest, configDigest uint64) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(Key(signalDigest, configDigest))
	}); err != nil {
		return fmt.Errorf("failed to delete cached features: %w", err)
	}
	return nil
}

// Len counts the stored FeatureSets
func (s *Store) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cached features: %w", err)
	}
	return count, nil
}

// Clear removes every stored FeatureSet
func (s *Store) Clear() error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list cached features: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close flushes and closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
