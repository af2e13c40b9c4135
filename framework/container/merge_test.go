package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbili/di-why/framework/container"
)

func TestMerge(t *testing.T) {
	fn := func() {}

	tests := []struct {
		name string
		a, b any
		want any
	}{
		{
			name: "disjoint mappings union",
			a:    container.Named{"x": 1},
			b:    container.Named{"y": 2},
			want: container.Named{"x": 1, "y": 2},
		},
		{
			name: "overlapping scalar takes b",
			a:    container.Named{"x": 1, "keep": true},
			b:    container.Named{"x": 2},
			want: container.Named{"x": 2, "keep": true},
		},
		{
			name: "nested mappings recurse",
			a:    container.Named{"db": container.Named{"host": "a"}},
			b:    container.Named{"db": map[string]any{"port": 1}},
			want: container.Named{"db": container.Named{"host": "a", "port": 1}},
		},
		{
			name: "array operand pairs",
			a:    []any{1},
			b:    container.Named{"x": 1},
			want: []any{[]any{1}, container.Named{"x": 1}},
		},
		{
			name: "string operand pairs",
			a:    container.Named{"x": 1},
			b:    "s",
			want: []any{container.Named{"x": 1}, "s"},
		},
		{
			name: "nested string values pair",
			a:    container.Named{"k": "a"},
			b:    container.Named{"k": "b"},
			want: container.Named{"k": []any{"a", "b"}},
		},
		{
			name: "scalars take b",
			a:    1,
			b:    2,
			want: 2,
		},
		{
			name: "nil a takes b",
			a:    nil,
			b:    container.Named{"x": 1},
			want: container.Named{"x": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, container.Merge(tt.a, tt.b))
		})
	}

	t.Run("callable operand pairs", func(t *testing.T) {
		got, ok := container.Merge(fn, container.Named{}).([]any)
		assert.True(t, ok)
		assert.Len(t, got, 2)
	})
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := container.Named{"db": container.Named{"host": "a"}}
	b := container.Named{"db": container.Named{"port": 1}}

	container.Merge(a, b)

	assert.Equal(t, container.Named{"db": container.Named{"host": "a"}}, a)
	assert.Equal(t, container.Named{"db": container.Named{"port": 1}}, b)
}

func TestValues_NamedInKeyOrder(t *testing.T) {
	assert.Equal(t, []any{1, 2, 3}, container.Values(container.Named{"c": 3, "a": 1, "b": 2}))
	assert.Equal(t, []any{"x"}, container.Values(container.Args{"x"}))
	assert.Nil(t, container.Values(nil))
	assert.Equal(t, 0, container.Len(nil))
}
