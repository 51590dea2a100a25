package seano

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotesWalker struct {
	fn  func(agg *Aggregator) error
	ran bool
}

func (f *fakeNotesWalker) Walk(ctx context.Context, agg *Aggregator) error {
	f.ran = true
	if f.fn != nil {
		return f.fn(agg)
	}
	return nil
}

type fakeRepositoryWalker struct {
	fn  func(agg *Aggregator, current string) error
	ran bool
}

func (f *fakeRepositoryWalker) Walk(ctx context.Context, agg *Aggregator, current string) error {
	f.ran = true
	if f.fn != nil {
		return f.fn(agg, current)
	}
	return nil
}

func TestQuery_DispatchesToRepositoryOverNotes(t *testing.T) {
	repo := &fakeRepositoryWalker{}
	notes := &fakeNotesWalker{}
	doc, err := Query(context.Background(), QueryInput{
		ConfigDocs: []RawDoc{{"current_version": "v1.0.0"}},
		Repository: repo,
		Notes:      notes,
	})
	require.NoError(t, err)
	assert.True(t, repo.ran)
	assert.False(t, notes.ran)
	assert.Equal(t, "v1.0.0", doc.CurrentVersion)
}

func TestQuery_FallsBackToNotesWalker(t *testing.T) {
	notes := &fakeNotesWalker{}
	doc, err := Query(context.Background(), QueryInput{
		ConfigDocs: []RawDoc{{"current_version": "v1.0.0"}},
		Notes:      notes,
	})
	require.NoError(t, err)
	assert.True(t, notes.ran)
	assert.Equal(t, "v1.0.0", doc.CurrentVersion)
}

func TestQuery_NeitherWalkerIsAnError(t *testing.T) {
	_, err := Query(context.Background(), QueryInput{
		ConfigDocs: []RawDoc{{"current_version": "v1.0.0"}},
	})
	require.Error(t, err)
}

func TestQuery_MergesAnnexBeforeMainConfig(t *testing.T) {
	doc, err := Query(context.Background(), QueryInput{
		ConfigDocs: []RawDoc{
			{"owner": "annex-owner", "current_version": "v1.0.0"},
			{"owner": "main-owner"},
		},
		Notes: &fakeNotesWalker{},
	})
	require.NoError(t, err)
	assert.Equal(t, "main-owner", doc.Extra["owner"])
}

func TestQuery_PropagatesWalkerError(t *testing.T) {
	boom := assert.AnError
	repo := &fakeRepositoryWalker{fn: func(agg *Aggregator, current string) error { return boom }}
	_, err := Query(context.Background(), QueryInput{
		ConfigDocs: []RawDoc{{"current_version": "v1.0.0"}},
		Repository: repo,
	})
	require.Error(t, err)
}
