// Package storage provides property store engines for cypherfn.
//
// A property store holds one Value per (entity, property name) pair, the way
// a graph database keeps node properties. Batch coercion scans every entity
// that has a given property, converts the values and optionally writes them
// back, so engines are organised by property name first.
//
// Two engines implement Engine:
//   - MemoryEngine: map-backed, for tests and one-off CLI runs
//   - BadgerEngine: persistent, backed by BadgerDB
//
// Both are safe for concurrent use and scan entities in ascending ID order.
//
// Example Usage:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	engine.Put("user-1", "age", value.NewString("42"))
//	engine.Put("user-2", "age", value.NewFloat(30.5))
//
//	engine.ScanProperty("age", func(p storage.Property) error {
//		fmt.Println(p.Entity, p.Value)
//		return nil
//	})
package storage

import (
	"errors"
	"strings"

	"github.com/orneryd/cypherfn/pkg/value"
)

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidKey       = errors.New("invalid key")
	ErrStorageClosed    = errors.New("storage closed")
	ErrIterationStopped = errors.New("iteration stopped") // Sentinel to stop scanning early
)

// EntityID identifies the node or relationship a property belongs to.
type EntityID string

// Property is one stored value.
type Property struct {
	Entity EntityID
	Name   string
	Value  value.Value
}

// Engine is the property store interface.
//
// ScanProperty calls fn for every entity holding the named property, in
// ascending entity order. Returning ErrIterationStopped from fn ends the scan
// early and ScanProperty returns nil; any other error aborts the scan and is
// returned as-is. fn must not call back into the engine's write methods.
type Engine interface {
	Put(entity EntityID, name string, v value.Value) error
	Get(entity EntityID, name string) (value.Value, error)
	Delete(entity EntityID, name string) error
	BulkPut(props []Property) error
	ScanProperty(name string, fn func(Property) error) error
	Count() (int64, error)
	Close() error
}

// validateKey rejects empty parts and parts containing the 0x00 separator
// used by the Badger key layout.
func validateKey(entity EntityID, name string) error {
	if entity == "" || name == "" {
		return ErrInvalidKey
	}
	if strings.IndexByte(string(entity), 0) >= 0 || strings.IndexByte(name, 0) >= 0 {
		return ErrInvalidKey
	}
	return nil
}
