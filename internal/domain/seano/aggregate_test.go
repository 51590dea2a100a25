package seano

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNoteLoader struct {
	docs map[string][]RawDoc
	err  error
	n    int
}

func (f *fakeNoteLoader) LoadNote(ctx context.Context, path string) ([]RawDoc, error) {
	f.n++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[path], nil
}

func cfgWith(current string, seeds []ReleaseSeed, parents AncestryList) *NormalizedConfig {
	return &NormalizedConfig{
		CurrentVersion: current,
		ParentVersions: parents,
		Releases:       seeds,
		Extra:          map[string]any{},
	}
}

func TestNewAggregator_SeedsCurrentAndManualReleases(t *testing.T) {
	cfg := cfgWith("v2.0.0", []ReleaseSeed{
		{Name: "v1.0.0", Attrs: map[string]any{"owner": "alice"}},
	}, AncestryList{{Name: "v1.0.0"}})

	agg, err := NewAggregator(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", agg.CurrentVersion())

	current := agg.releases["v2.0.0"]
	require.NotNil(t, current)
	assert.Equal(t, AncestryList{{Name: "v1.0.0"}}, current.After())

	seeded := agg.releases["v1.0.0"]
	require.NotNil(t, seeded)
	assert.Equal(t, "alice", seeded.Attrs["owner"].Value)
	assert.Equal(t, OriginManual, seeded.Attrs["owner"].Origin)
}

func TestImportNote_LoadsOnceAndAttachesToNamedRelease(t *testing.T) {
	loader := &fakeNoteLoader{docs: map[string][]RawDoc{
		"notes/n1.yaml": {{"summary": "fixed a bug", "releases": []any{"v1.0.0"}}},
	}}
	cfg := cfgWith("v1.0.0", nil, nil)
	agg, err := NewAggregator(cfg, loader, nil)
	require.NoError(t, err)

	require.NoError(t, agg.ImportNote(context.Background(), "notes/n1.yaml", "n1", nil, false))
	require.NoError(t, agg.ImportNote(context.Background(), "notes/n1.yaml", "n1", map[string]any{"commits": "abc123"}, true))
	assert.Equal(t, 1, loader.n, "note file content must be loaded exactly once, memoized by id")

	doc, err := agg.Finalize()
	require.NoError(t, err)
	var found *ReleaseView
	for _, r := range doc.Releases {
		if r.Name == "v1.0.0" {
			found = r
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Notes, 1)
	assert.Equal(t, "n1", found.Notes[0].ID)
	assert.Equal(t, "fixed a bug", found.Notes[0].Extra["summary"])
}

func TestFinalize_NoteWithoutReleasesAttachesToCurrent(t *testing.T) {
	cfg := cfgWith("v1.0.0", nil, nil)
	agg, err := NewAggregator(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, agg.ImportNote(context.Background(), "n.yaml", "n1", nil, false))

	doc, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, doc.Releases, 1)
	assert.Equal(t, []string{"v1.0.0"}, doc.Releases[0].Notes[0].Releases)
}

func TestFinalize_NoteNamingUnknownReleaseErrorsUnlessGhost(t *testing.T) {
	t.Run("non-ghost errors", func(t *testing.T) {
		cfg := cfgWith("v1.0.0", nil, nil)
		agg, err := NewAggregator(cfg, nil, nil)
		require.NoError(t, err)
		require.NoError(t, agg.ImportNote(context.Background(), "n.yaml", "n1", map[string]any{
			"releases": mustSet("v9.9.9"),
		}, false))
		_, err = agg.Finalize()
		require.Error(t, err)
	})

	t.Run("ghost is suppressed silently", func(t *testing.T) {
		cfg := cfgWith("v1.0.0", nil, nil)
		agg, err := NewAggregator(cfg, nil, nil)
		require.NoError(t, err)
		require.NoError(t, agg.ImportNote(context.Background(), "n.yaml", "n1", map[string]any{
			"releases": mustSet("v9.9.9"),
			"ghost":    true,
		}, false))
		doc, err := agg.Finalize()
		require.NoError(t, err)
		assert.Len(t, doc.Releases[0].Notes, 0)
	})
}

func TestFinalize_MirrorsAncestryBothDirections(t *testing.T) {
	cfg := cfgWith("v2.0.0", []ReleaseSeed{
		{Name: "v1.0.0", Attrs: map[string]any{}},
	}, AncestryList{{Name: "v1.0.0"}})
	agg, err := NewAggregator(cfg, nil, nil)
	require.NoError(t, err)

	doc, err := agg.Finalize()
	require.NoError(t, err)
	var v1, v2 *ReleaseView
	for _, r := range doc.Releases {
		switch r.Name {
		case "v1.0.0":
			v1 = r
		case "v2.0.0":
			v2 = r
		}
	}
	require.NotNil(t, v1)
	require.NotNil(t, v2)
	assert.Equal(t, []AncestryRefView{{Name: "v1.0.0"}}, v2.After)
	assert.Equal(t, []AncestryRefView{{Name: "v2.0.0"}}, v1.Before)
}

func mustSet(names ...string) SetValue {
	sv := NewSetValue()
	for _, n := range names {
		sv.Add(n)
	}
	return sv
}
