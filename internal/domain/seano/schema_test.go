package seano

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAncestryContainer(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    AncestryList
		wantErr bool
	}{
		{name: "nil", in: nil, want: AncestryList{}},
		{name: "empty string", in: "", want: AncestryList{}},
		{name: "bare string", in: "v1.0.0", want: AncestryList{{Name: "v1.0.0"}}},
		{
			name: "list of strings",
			in:   []any{"v1.0.0", "v1.1.0"},
			want: AncestryList{{Name: "v1.0.0"}, {Name: "v1.1.0"}},
		},
		{
			name: "list of mappings with extra",
			in:   []any{map[string]any{"name": "v1.0.0", "is_backstory": true}},
			want: AncestryList{{Name: "v1.0.0", Extra: map[string]any{"is_backstory": true}}},
		},
		{
			name:    "mapping missing name",
			in:      []any{map[string]any{"is_backstory": true}},
			wantErr: true,
		},
		{
			name:    "unsupported list element",
			in:      []any{42},
			wantErr: true,
		},
		{
			name:    "unsupported top-level value",
			in:      42,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAncestryContainer("before", tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSetField(t *testing.T) {
	t.Run("nil becomes empty", func(t *testing.T) {
		got, err := NormalizeSetField("commits", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	})

	t.Run("bare string becomes singleton", func(t *testing.T) {
		got, err := NormalizeSetField("commits", "abc123")
		require.NoError(t, err)
		assert.True(t, got.Has("abc123"))
		assert.Equal(t, 1, got.Len())
	})

	t.Run("list with null member", func(t *testing.T) {
		got, err := NormalizeSetField("tickets", []any{"PROJ-1", nil, "PROJ-2"})
		require.NoError(t, err)
		assert.True(t, got.HasNull)
		assert.Equal(t, 3, got.Len())
		assert.Equal(t, []any{nil, "PROJ-1", "PROJ-2"}, got.Sorted())
	})

	t.Run("list with unsupported element", func(t *testing.T) {
		_, err := NormalizeSetField("commits", []any{42})
		require.Error(t, err)
	})
}

func TestNormalizeReleaseList(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		seeds, deleted, err := NormalizeReleaseList(nil)
		require.NoError(t, err)
		assert.Empty(t, seeds)
		assert.Empty(t, deleted)
	})

	t.Run("deleted entries are reported but not seeded", func(t *testing.T) {
		seeds, deleted, err := NormalizeReleaseList([]any{
			map[string]any{"name": "v1.0.0"},
			map[string]any{"name": "v0.9.0", "delete": true},
		})
		require.NoError(t, err)
		require.Len(t, seeds, 1)
		assert.Equal(t, "v1.0.0", seeds[0].Name)
		assert.True(t, deleted["v0.9.0"])
		assert.False(t, deleted["v1.0.0"])
	})

	t.Run("entry missing name errors", func(t *testing.T) {
		_, _, err := NormalizeReleaseList([]any{map[string]any{"delete": true}})
		require.Error(t, err)
	})

	t.Run("non-list errors", func(t *testing.T) {
		_, _, err := NormalizeReleaseList("nope")
		require.Error(t, err)
	})
}

func TestNormalizeReleaseAttrs_SkipsNameAndDelete(t *testing.T) {
	attrs, err := NormalizeReleaseAttrs(map[string]any{
		"name":   "v1.0.0",
		"delete": true,
		"before": "v0.9.0",
		"owner":  "alice",
	})
	require.NoError(t, err)
	assert.NotContains(t, attrs, "name")
	assert.NotContains(t, attrs, "delete")
	assert.Equal(t, AncestryList{{Name: "v0.9.0"}}, attrs["before"])
	assert.Equal(t, "alice", attrs["owner"])
}

func TestNormalizeNoteDoc(t *testing.T) {
	doc, err := NormalizeNoteDoc(map[string]any{
		"releases": []any{"v1.0.0"},
		"tickets":  nil,
		"summary":  "fixed a bug",
	})
	require.NoError(t, err)
	releases, ok := doc["releases"].(SetValue)
	require.True(t, ok)
	assert.True(t, releases.Has("v1.0.0"))
	tickets, ok := doc["tickets"].(SetValue)
	require.True(t, ok)
	assert.Equal(t, 0, tickets.Len())
	assert.Equal(t, "fixed a bug", doc["summary"])
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy("false"))
	assert.False(t, truthy("0"))
	assert.True(t, truthy(true))
	assert.True(t, truthy("yes"))
	assert.True(t, truthy(1))
}
