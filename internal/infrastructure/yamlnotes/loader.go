// Package yamlnotes implements C7: a seano.NoteLoader backed by
// multi-document YAML note files on disk.
package yamlnotes

import (
	"context"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/errors"
)

// Loader reads a single note file as a `---`-separated multi-document YAML
// stream (spec §6).
type Loader struct{}

// New returns a Loader.
func New() *Loader {
	return &Loader{}
}

// LoadNote implements seano.NoteLoader.
func (l *Loader) LoadNote(ctx context.Context, path string) ([]seano.RawDoc, error) {
	const op = "yamlnotes.Loader.LoadNote"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, op, "opening note %q", path)
	}
	defer f.Close()

	var docs []seano.RawDoc
	dec := yaml.NewDecoder(f)
	for {
		if cErr := ctx.Err(); cErr != nil {
			return nil, cErr
		}
		var doc seano.RawDoc
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, errors.KindConfig, op, "decoding note %q", path)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
