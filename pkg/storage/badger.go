package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/cypherfn/pkg/value"
)

// Key prefixes for BadgerDB storage organization
const (
	prefixProperty = byte(0x01) // property:name:0x00:entity -> JSON(Value)
)

// BadgerEngine provides persistent property storage using BadgerDB.
//
// Key Structure:
//   - Property: 0x01 + name + 0x00 + entityID -> JSON(value.Value)
//
// Grouping by name first makes ScanProperty a single prefix iteration, and
// Badger's sorted keys give ascending entity order for free.
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("./data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Put("user-1", "age", value.NewString("42"))
//
// ELI12:
//
// Think of BadgerEngine like a filing cabinet where every drawer is one
// property name ("age", "score"...). Inside a drawer the folders are sorted
// by who they belong to. To look at everyone's age you open one drawer and
// flip through it front to back.
type BadgerEngine struct {
	db     *badger.DB
	mu     sync.RWMutex // Protects closed
	closed bool
}

// BadgerOptions configures the BadgerDB engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// LowMemory reduces memtable and cache sizes.
	LowMemory bool

	// Logger for BadgerDB internal logging. If nil, Badger is silent.
	Logger badger.Logger
}

// NewBadgerEngine opens (or creates) a persistent engine in dataDir with
// low-memory settings.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		DataDir:   dataDir,
		LowMemory: true,
	})
}

// NewBadgerEngineInMemory creates an in-memory BadgerDB for testing.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		InMemory:  true,
		LowMemory: true,
	})
}

// NewBadgerEngineWithOptions creates a BadgerEngine with custom configuration.
//
// Example - In-Memory Database for Testing:
//
//	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
//		InMemory: true,
//	})
//
// Example - Maximum Durability:
//
//	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
//		DataDir:    "./data",
//		SyncWrites: true,
//	})
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	dir := opts.DataDir
	if opts.InMemory {
		dir = ""
	} else if dir == "" {
		return nil, fmt.Errorf("badger: data directory required")
	}

	badgerOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(opts.Logger)

	if opts.LowMemory {
		badgerOpts = badgerOpts.
			WithMemTableSize(16 << 20).     // 16MB instead of 64MB
			WithValueLogFileSize(64 << 20). // 64MB instead of 1GB
			WithNumMemtables(2).            // 2 instead of 5
			WithNumLevelZeroTables(2).      // 2 instead of 5
			WithNumLevelZeroTablesStall(4). // 4 instead of 15
			WithBlockCacheSize(32 << 20).   // 32MB block cache
			WithIndexCacheSize(16 << 20)    // 16MB index cache
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerEngine{db: db}, nil
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// propertyPrefix is the scan prefix for all entities holding name.
func propertyPrefix(name string) []byte {
	key := make([]byte, 0, len(name)+2)
	key = append(key, prefixProperty)
	key = append(key, name...)
	return append(key, 0x00)
}

// propertyKey creates the key for one (entity, name) pair.
func propertyKey(entity EntityID, name string) []byte {
	return append(propertyPrefix(name), entity...)
}

// entityFromKey extracts the entity ID from a key under prefix.
func entityFromKey(key, prefix []byte) EntityID {
	return EntityID(key[len(prefix):])
}

func encodeValue(v value.Value) ([]byte, error) {
	return json.Marshal(v)
}

func decodeValue(data []byte) (value.Value, error) {
	var v value.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return value.NewNull(), err
	}
	return v, nil
}

func (b *BadgerEngine) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// ============================================================================
// Property Operations
// ============================================================================

// Put stores v, replacing any existing value.
func (b *BadgerEngine) Put(entity EntityID, name string, v value.Value) error {
	if err := validateKey(entity, name); err != nil {
		return err
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := encodeValue(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(propertyKey(entity, name), data)
	})
}

// Get returns the stored value or ErrNotFound.
func (b *BadgerEngine) Get(entity EntityID, name string) (value.Value, error) {
	if err := validateKey(entity, name); err != nil {
		return value.NewNull(), err
	}
	if err := b.checkOpen(); err != nil {
		return value.NewNull(), err
	}

	var v value.Value
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(propertyKey(entity, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			v, decodeErr = decodeValue(val)
			return decodeErr
		})
	})
	if err != nil {
		return value.NewNull(), err
	}
	return v, nil
}

// Delete removes a value. Deleting a missing value returns ErrNotFound.
func (b *BadgerEngine) Delete(entity EntityID, name string) error {
	if err := validateKey(entity, name); err != nil {
		return err
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := propertyKey(entity, name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

// BulkPut writes all props in one transaction.
func (b *BadgerEngine) BulkPut(props []Property) error {
	for _, p := range props {
		if err := validateKey(p.Entity, p.Name); err != nil {
			return err
		}
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, p := range props {
			data, err := encodeValue(p.Value)
			if err != nil {
				return fmt.Errorf("failed to encode value for %s.%s: %w", p.Entity, p.Name, err)
			}
			if err := txn.Set(propertyKey(p.Entity, p.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ScanProperty implements Engine.
func (b *BadgerEngine) ScanProperty(name string, fn func(Property) error) error {
	if name == "" {
		return ErrInvalidKey
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	prefix := propertyPrefix(name)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			entity := entityFromKey(item.KeyCopy(nil), prefix)

			var v value.Value
			if err := item.Value(func(val []byte) error {
				var decodeErr error
				v, decodeErr = decodeValue(val)
				return decodeErr
			}); err != nil {
				return fmt.Errorf("decoding %s.%s: %w", entity, name, err)
			}

			if err := fn(Property{Entity: entity, Name: name, Value: v}); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrIterationStopped) {
		return nil
	}
	return err
}

// Count returns the number of stored values across all properties.
func (b *BadgerEngine) Count() (int64, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixProperty}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the BadgerDB database.
func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// RunGC runs garbage collection on the BadgerDB value log.
// Returns nil when there was nothing to collect or the engine is in-memory.
func (b *BadgerEngine) RunGC() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	err := b.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

var _ Engine = (*BadgerEngine)(nil)
