package functions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/value"
)

func TestDefaultRegistry_Names(t *testing.T) {
	reg := DefaultRegistry()

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
		assert.True(t, d.Enabled, d.Name)
		assert.NotEmpty(t, d.Signature, d.Name)
	}
	assert.Equal(t, []string{"toInt", "toInteger", "toIntegerList", "toIntegerOrNull"}, names)
}

func TestDefaultRegistry_KeysAreCaseFolded(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range []string{"TOINTEGER", "toint", "ToIntegerOrNull", "tointegerlist"} {
		err := reg.Register(Descriptor{Name: name, Function: ToInteger{}})
		assert.ErrorIs(t, err, ErrAlreadyExists, name)
	}
	assert.Len(t, reg.List(), 4)
}

func TestRegistry_InvokeIsCaseInsensitive(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()

	for _, name := range []string{"toInteger", "TOINTEGER", "tointeger", "toInt"} {
		t.Run(name, func(t *testing.T) {
			got, err := reg.Invoke(ctx, NewEvaluationContext(), ast.NewFunctionCall(name),
				[]value.Value{value.NewString("12")})
			require.NoError(t, err)
			assert.Equal(t, int64(12), got.Integer())
		})
	}
}

func TestRegistry_InvokeKeepsVariantPolicy(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()
	list := []value.Value{value.NewList(nil)}

	_, err := reg.Invoke(ctx, nil, ast.NewFunctionCall("toInt"), list)
	assert.EqualError(t, err, "toInt: invalid argument at index 0")

	got, err := reg.Invoke(ctx, nil, ast.NewFunctionCall("ToIntegerOrNull"), list)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestRegistry_UnknownAndDisabled(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()

	_, err := reg.Invoke(ctx, nil, ast.NewFunctionCall("toFloat"), nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = reg.Invoke(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	require.NoError(t, reg.SetEnabled("TOINT", false))
	_, err = reg.Invoke(ctx, nil, ast.NewFunctionCall("toInt"), []value.Value{value.NewInteger(1)})
	assert.ErrorIs(t, err, ErrFunctionDisabled)

	d, ok := reg.Get("toint")
	require.True(t, ok)
	assert.False(t, d.Enabled)

	// toInteger shares the implementation but has its own switch.
	_, err = reg.Invoke(ctx, nil, ast.NewFunctionCall("toInteger"), []value.Value{value.NewInteger(1)})
	assert.NoError(t, err)

	assert.ErrorIs(t, reg.SetEnabled("nope", false), ErrUnknownFunction)
}

func TestRegistry_ApplyOverrides(t *testing.T) {
	reg := DefaultRegistry()

	err := reg.ApplyOverrides(map[string]bool{
		"toIntegerList": false,
		"zeta":          true,
		"alpha":         false,
	})
	assert.ErrorIs(t, err, ErrUnknownFunction)
	assert.Contains(t, err.Error(), "alpha, zeta")

	d, _ := reg.Get("toIntegerList")
	assert.False(t, d.Enabled, "known names are applied even when others fail")

	assert.NoError(t, reg.ApplyOverrides(map[string]bool{"toIntegerList": true}))
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	custom := ScalarFunctionFunc(func(_ context.Context, _ *EvaluationContext, _ *ast.FunctionCall, _ []value.Value) (value.Value, error) {
		return value.NewInteger(7), nil
	})
	require.NoError(t, reg.Register(Descriptor{Name: "seven", Function: custom, Enabled: true}))
	assert.ErrorIs(t, reg.Register(Descriptor{Name: "SEVEN", Function: custom}), ErrAlreadyExists)
	assert.Error(t, reg.Register(Descriptor{Name: "", Function: custom}))
	assert.Error(t, reg.Register(Descriptor{Name: "nil"}))

	got, err := reg.Invoke(context.Background(), nil, ast.NewFunctionCall("Seven"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Integer())
}

func TestRegistry_ConcurrentInvoke(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := reg.Invoke(ctx, nil, ast.NewFunctionCall("toIntegerOrNull"),
				[]value.Value{value.NewFloat(float64(i) + 0.5)})
			assert.NoError(t, err)
			assert.Equal(t, int64(i), got.Integer())
		}(i)
	}
	wg.Wait()
}
