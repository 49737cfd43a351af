package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/orneryd/cypherfn/pkg/value"
)

// MemoryEngine is an in-memory Engine.
//
// Data is lost on Close. Values are stored as given; value.Value is
// immutable so no copying is needed on Get.
type MemoryEngine struct {
	mu         sync.RWMutex
	properties map[string]map[EntityID]value.Value // name -> entity -> value
	closed     bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		properties: make(map[string]map[EntityID]value.Value),
	}
}

// Put stores v, replacing any existing value.
func (m *MemoryEngine) Put(entity EntityID, name string, v value.Value) error {
	if err := validateKey(entity, name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	m.putLocked(entity, name, v)
	return nil
}

func (m *MemoryEngine) putLocked(entity EntityID, name string, v value.Value) {
	byEntity, ok := m.properties[name]
	if !ok {
		byEntity = make(map[EntityID]value.Value)
		m.properties[name] = byEntity
	}
	byEntity[entity] = v
}

// Get returns the stored value or ErrNotFound.
func (m *MemoryEngine) Get(entity EntityID, name string) (value.Value, error) {
	if err := validateKey(entity, name); err != nil {
		return value.NewNull(), err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return value.NewNull(), ErrStorageClosed
	}
	v, ok := m.properties[name][entity]
	if !ok {
		return value.NewNull(), ErrNotFound
	}
	return v, nil
}

// Delete removes a value. Deleting a missing value returns ErrNotFound.
func (m *MemoryEngine) Delete(entity EntityID, name string) error {
	if err := validateKey(entity, name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	byEntity, ok := m.properties[name]
	if !ok {
		return ErrNotFound
	}
	if _, ok := byEntity[entity]; !ok {
		return ErrNotFound
	}
	delete(byEntity, entity)
	if len(byEntity) == 0 {
		delete(m.properties, name)
	}
	return nil
}

// BulkPut stores all props atomically: either every key is valid and all
// are written, or nothing is.
func (m *MemoryEngine) BulkPut(props []Property) error {
	for _, p := range props {
		if err := validateKey(p.Entity, p.Name); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}
	for _, p := range props {
		m.putLocked(p.Entity, p.Name, p.Value)
	}
	return nil
}

// ScanProperty implements Engine. The scan works on a snapshot taken under
// the read lock, so fn may run slowly without blocking writers.
func (m *MemoryEngine) ScanProperty(name string, fn func(Property) error) error {
	if name == "" {
		return ErrInvalidKey
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrStorageClosed
	}
	snapshot := make([]Property, 0, len(m.properties[name]))
	for entity, v := range m.properties[name] {
		snapshot = append(snapshot, Property{Entity: entity, Name: name, Value: v})
	}
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Entity < snapshot[j].Entity })
	for _, p := range snapshot {
		if err := fn(p); err != nil {
			if errors.Is(err, ErrIterationStopped) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Count returns the number of stored values across all properties.
func (m *MemoryEngine) Count() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}
	var n int64
	for _, byEntity := range m.properties {
		n += int64(len(byEntity))
	}
	return n, nil
}

// Close releases the data. Further calls return ErrStorageClosed.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.properties = nil
	return nil
}

var _ Engine = (*MemoryEngine)(nil)
