package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherfn/pkg/value"
)

// engineFactories lets every behavioural test run against both engines.
func engineFactories() map[string]func(t *testing.T) Engine {
	return map[string]func(t *testing.T) Engine{
		"memory": func(t *testing.T) Engine {
			return NewMemoryEngine()
		},
		"badger": func(t *testing.T) Engine {
			engine, err := NewBadgerEngineInMemory()
			require.NoError(t, err)
			return engine
		},
	}
}

func forEachEngine(t *testing.T, fn func(t *testing.T, engine Engine)) {
	for name, factory := range engineFactories() {
		t.Run(name, func(t *testing.T) {
			engine := factory(t)
			defer engine.Close()
			fn(t, engine)
		})
	}
}

func TestEngine_PutGet(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		values := []value.Value{
			value.NewNull(),
			value.NewInteger(-7),
			value.NewFloat(2.5),
			value.NewBool(true),
			value.NewString("42"),
			value.NewList([]value.Value{value.NewInteger(1), value.NewString("x")}),
			value.NewMap(map[string]value.Value{"a": value.NewInteger(1)}),
		}
		for i, v := range values {
			entity := EntityID(fmt.Sprintf("n%d", i))
			require.NoError(t, engine.Put(entity, "p", v))

			got, err := engine.Get(entity, "p")
			require.NoError(t, err)
			assert.True(t, value.Equal(v, got), "want %s, got %s", v, got)
		}
	})
}

func TestEngine_PutReplaces(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		require.NoError(t, engine.Put("n1", "age", value.NewString("42")))
		require.NoError(t, engine.Put("n1", "age", value.NewInteger(42)))

		got, err := engine.Get("n1", "age")
		require.NoError(t, err)
		assert.Equal(t, value.KindInteger, got.Kind())

		n, err := engine.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestEngine_NotFoundAndDelete(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		_, err := engine.Get("n1", "age")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, engine.Delete("n1", "age"), ErrNotFound)

		require.NoError(t, engine.Put("n1", "age", value.NewInteger(1)))
		require.NoError(t, engine.Delete("n1", "age"))

		_, err = engine.Get("n1", "age")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEngine_InvalidKeys(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		assert.ErrorIs(t, engine.Put("", "age", value.NewNull()), ErrInvalidKey)
		assert.ErrorIs(t, engine.Put("n1", "", value.NewNull()), ErrInvalidKey)
		assert.ErrorIs(t, engine.Put("n\x001", "age", value.NewNull()), ErrInvalidKey)
		assert.ErrorIs(t, engine.Put("n1", "a\x00ge", value.NewNull()), ErrInvalidKey)
		assert.ErrorIs(t, engine.ScanProperty("", func(Property) error { return nil }), ErrInvalidKey)

		err := engine.BulkPut([]Property{
			{Entity: "n1", Name: "age", Value: value.NewInteger(1)},
			{Entity: "", Name: "age", Value: value.NewInteger(2)},
		})
		assert.ErrorIs(t, err, ErrInvalidKey)

		n, err := engine.Count()
		require.NoError(t, err)
		assert.Zero(t, n, "failed BulkPut must not write anything")
	})
}

func TestEngine_ScanPropertyOrderAndIsolation(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		require.NoError(t, engine.BulkPut([]Property{
			{Entity: "c", Name: "age", Value: value.NewInteger(3)},
			{Entity: "a", Name: "age", Value: value.NewInteger(1)},
			{Entity: "b", Name: "age", Value: value.NewInteger(2)},
			{Entity: "a", Name: "agent", Value: value.NewString("x")},
			{Entity: "a", Name: "name", Value: value.NewString("Alice")},
		}))

		var seen []EntityID
		err := engine.ScanProperty("age", func(p Property) error {
			assert.Equal(t, "age", p.Name)
			seen = append(seen, p.Entity)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []EntityID{"a", "b", "c"}, seen, "prefix must not leak into 'agent'")

		n, err := engine.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})
}

func TestEngine_ScanPropertyStopsEarly(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		for i := 0; i < 5; i++ {
			require.NoError(t, engine.Put(EntityID(fmt.Sprintf("n%d", i)), "age", value.NewInteger(int64(i))))
		}

		calls := 0
		err := engine.ScanProperty("age", func(Property) error {
			calls++
			if calls == 2 {
				return ErrIterationStopped
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)

		boom := errors.New("boom")
		err = engine.ScanProperty("age", func(Property) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestEngine_ScanMissingProperty(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		called := false
		err := engine.ScanProperty("nothing", func(Property) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, called)
	})
}

func TestEngine_Closed(t *testing.T) {
	for name, factory := range engineFactories() {
		t.Run(name, func(t *testing.T) {
			engine := factory(t)
			require.NoError(t, engine.Close())
			require.NoError(t, engine.Close(), "double close is harmless")

			assert.ErrorIs(t, engine.Put("n1", "age", value.NewNull()), ErrStorageClosed)
			_, err := engine.Get("n1", "age")
			assert.ErrorIs(t, err, ErrStorageClosed)
			assert.ErrorIs(t, engine.Delete("n1", "age"), ErrStorageClosed)
			assert.ErrorIs(t, engine.BulkPut(nil), ErrStorageClosed)
			assert.ErrorIs(t, engine.ScanProperty("age", func(Property) error { return nil }), ErrStorageClosed)
			_, err = engine.Count()
			assert.ErrorIs(t, err, ErrStorageClosed)
		})
	}
}

func TestEngine_ConcurrentPuts(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					id := EntityID(fmt.Sprintf("w%d-%d", w, i))
					assert.NoError(t, engine.Put(id, "score", value.NewInteger(int64(i))))
				}
			}(w)
		}
		wg.Wait()

		n, err := engine.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(200), n)
	})
}

func TestBadgerEngine_Persistence(t *testing.T) {
	dir := t.TempDir()

	engine, err := NewBadgerEngine(dir)
	require.NoError(t, err)
	require.NoError(t, engine.Put("n1", "age", value.NewFloat(41.9)))
	require.NoError(t, engine.Close())

	reopened, err := NewBadgerEngine(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("n1", "age")
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, got.Kind())
	assert.Equal(t, 41.9, got.Float())
}

func TestBadgerEngine_RequiresDataDir(t *testing.T) {
	_, err := NewBadgerEngineWithOptions(BadgerOptions{})
	assert.Error(t, err)
}

func TestBadgerEngine_RunGC(t *testing.T) {
	engine, err := NewBadgerEngineInMemory()
	require.NoError(t, err)
	defer engine.Close()

	assert.NoError(t, engine.RunGC(), "in-memory GC is a no-op")
}

func TestPropertyKeyLayout(t *testing.T) {
	key := propertyKey("n1", "age")
	assert.Equal(t, []byte{prefixProperty, 'a', 'g', 'e', 0x00, 'n', '1'}, key)

	prefix := propertyPrefix("age")
	assert.Equal(t, EntityID("n1"), entityFromKey(key, prefix))
}
