package notesfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/seano/internal/domain/seano"
)

type stubNoteLoader struct {
	seen []string
}

func (s *stubNoteLoader) LoadNote(ctx context.Context, path string) ([]seano.RawDoc, error) {
	s.seen = append(s.seen, path)
	return []seano.RawDoc{{"summary": "a change"}}, nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("summary: a change\n"), 0o644))
}

func TestScanner_Walk_ImportsOnlyYAMLFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ab", "cdef01.yaml"))
	writeFile(t, filepath.Join(root, "README.md"))

	loader := &stubNoteLoader{}
	cfg := &seano.NormalizedConfig{CurrentVersion: "HEAD", Extra: map[string]any{}}
	agg, err := seano.NewAggregator(cfg, loader, nil)
	require.NoError(t, err)

	s := New(root)
	require.NoError(t, s.Walk(context.Background(), agg))

	require.Len(t, loader.seen, 1)
	assert.Contains(t, loader.seen[0], "cdef01.yaml")
}

func TestNoteID_StripsExtensionAndSeparators(t *testing.T) {
	id, err := NoteID("/db/v1", "/db/v1/ab/cdef01.yaml")
	require.NoError(t, err)
	assert.Equal(t, "abcdef01", id)
}
