// Package notesfs implements C4: the filesystem scanner that walks a notes
// directory, assigns each note file a stable identifier, and feeds it into
// the aggregator.
package notesfs

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/errors"
)

// NoteExtension is the required suffix of a note file (spec §6).
const NoteExtension = ".yaml"

// Scanner walks a notes root directory, computing each note's identifier
// from its path relative to Root and feeding it into the aggregator as a
// manual write (spec §4.4).
type Scanner struct {
	Root string
}

// New returns a Scanner rooted at the notes directory root.
func New(root string) *Scanner {
	return &Scanner{Root: root}
}

// Walk implements seano.NotesWalker: it visits every file under Root whose
// name ends in NoteExtension, computes its identifier, and imports it.
func (s *Scanner) Walk(ctx context.Context, agg *seano.Aggregator) error {
	const op = "notesfs.Scanner.Walk"
	return filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.KindConfig, op, "walking %q", path)
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), NoteExtension) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		id, err := NoteID(s.Root, path)
		if err != nil {
			return err
		}
		return agg.ImportNote(ctx, path, id, nil, false)
	})
}

// NoteID computes a note's stable identifier from its path relative to
// root: the extension is stripped and path separators are removed, so a
// `<2-hex>/<30-hex>.yaml` layout yields the compact concatenated id
// `<2-hex><30-hex>` (spec §4.4, §6).
func NoteID(root, path string) (string, error) {
	const op = "notesfs.NoteID"
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindConfig, op, "computing id for %q under %q", path, root)
	}
	rel = strings.TrimSuffix(rel, NoteExtension)
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "")
	rel = strings.ReplaceAll(rel, "/", "")
	return rel, nil
}
