package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/sentinel/internal/index"
)

const (
	symbolPrefix = "sym/"
	hashPrefix   = "hash/"
)

// Options configures Open.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   hclog.Logger
}

// Store implements index.Store and index.HashStore on BadgerDB.
type Store struct {
	db  *badger.DB
	log hclog.Logger
}

var (
	_ index.Store     = (*Store)(nil)
	_ index.HashStore = (*Store)(nil)
)

// Open opens or creates the database.
func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("badger")

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("badger store: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(badgerLogger{log}).WithNumVersionsToKeep(1)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// DB exposes the underlying database for components sharing it.
func (s *Store) DB() *badger.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

type symbolRecord struct {
	Symbol index.Symbol `json:"symbol"`
	Vector []float32    `json:"vector"`
}

func filePrefix(path string) []byte {
	return []byte(symbolPrefix + path + "\x00")
}

func symbolKey(path, id string) []byte {
	return append(filePrefix(path), id...)
}

// GetSymbols returns the symbols of path ordered by start line.
func (s *Store) GetSymbols(_ context.Context, path string) ([]index.Symbol, error) {
	var out []index.Symbol
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, filePrefix(path), func(rec symbolRecord) {
			out = append(out, rec.Symbol)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading symbols of %s: %w", path, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out, nil
}

// Search returns the limit records closest to vector by cosine distance.
func (s *Store) Search(_ context.Context, vector []float32, limit int) ([]index.Match, error) {
	if limit <= 0 || len(vector) == 0 {
		return []index.Match{}, nil
	}
	var matches []index.Match
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(symbolPrefix), func(rec symbolRecord) {
			if len(rec.Vector) != len(vector) {
				return
			}
			matches = append(matches, index.Match{
				ID:       rec.Symbol.ID,
				FilePath: rec.Symbol.FilePath,
				Snippet:  rec.Symbol.Snippet,
				Distance: cosineDistance(vector, rec.Vector),
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("searching symbols: %w", err)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ReplaceFile atomically swaps the symbols of path.
func (s *Store) ReplaceFile(_ context.Context, path string, symbols []index.Symbol, vectors [][]float32) error {
	if len(vectors) != len(symbols) {
		return fmt.Errorf("replacing %s: %d symbols but %d vectors", path, len(symbols), len(vectors))
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, filePrefix(path)); err != nil {
			return err
		}
		for i, sym := range symbols {
			data, err := json.Marshal(symbolRecord{Symbol: sym, Vector: vectors[i]})
			if err != nil {
				return fmt.Errorf("encoding symbol %s: %w", sym.ID, err)
			}
			if err := txn.Set(symbolKey(path, sym.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing symbols of %s: %w", path, err)
	}
	return nil
}

// DeleteFile removes every symbol of path.
func (s *Store) DeleteFile(_ context.Context, path string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, filePrefix(path))
	})
	if err != nil {
		return fmt.Errorf("deleting symbols of %s: %w", path, err)
	}
	return nil
}

// Hashes returns the recorded hash of every indexed file.
func (s *Store) Hashes(_ context.Context) (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(hashPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key()[len(hashPrefix):])] = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading file hashes: %w", err)
	}
	return out, nil
}

// SetHash records the hash of path.
func (s *Store) SetHash(_ context.Context, path, hash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hashPrefix+path), []byte(hash))
	})
}

// DeleteHash forgets path.
func (s *Store) DeleteHash(_ context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(hashPrefix + path))
	})
}

// Verify checks the checksums of every table in the database.
func (s *Store) Verify() error {
	if err := s.db.VerifyChecksum(); err != nil {
		return fmt.Errorf("badger checksum verification: %w", err)
	}
	return nil
}

// Reset drops all data, including cached responses.
func (s *Store) Reset() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("resetting badger store: %w", err)
	}
	return nil
}

// Count returns the number of stored symbols and file hashes.
func (s *Store) Count() (symbols, files int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		symbols = countPrefix(txn, []byte(symbolPrefix))
		files = countPrefix(txn, []byte(hashPrefix))
		return nil
	})
	return symbols, files, err
}

func scan(txn *badger.Txn, prefix []byte, fn func(symbolRecord)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var rec symbolRecord
		err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		})
		if err != nil {
			return fmt.Errorf("decoding %q: %w", it.Item().Key(), err)
		}
		fn(rec)
	}
	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// cosineDistance returns 1 - cos(a, b); zero vectors are maximally distant.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// badgerLogger routes badger's logging through hclog.
type badgerLogger struct {
	log hclog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Trace(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace(fmt.Sprintf(format, args...))
}
