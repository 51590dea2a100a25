// Package yamlconfig implements C7: a seano.ConfigLoader backed by
// multi-document YAML files on disk.
package yamlconfig

import (
	"context"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/errors"
)

// Loader reads a seano config path, plus an optional annex path, draining
// each as a `---`-separated multi-document YAML stream. Annex documents are
// returned first so the main config's documents are merged last and win
// (spec §6, §8).
type Loader struct {
	AnnexPath string
}

// New returns a Loader with no annex configured.
func New() *Loader {
	return &Loader{}
}

// WithAnnex returns a copy of the loader that also loads annexPath first.
func (l *Loader) WithAnnex(annexPath string) *Loader {
	return &Loader{AnnexPath: annexPath}
}

// LoadConfig implements seano.ConfigLoader.
func (l *Loader) LoadConfig(ctx context.Context, path string) ([]seano.RawDoc, error) {
	const op = "yamlconfig.Loader.LoadConfig"
	var docs []seano.RawDoc

	if l.AnnexPath != "" {
		annexDocs, err := decodeDocuments(ctx, l.AnnexPath)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, op, "loading annex %q", l.AnnexPath)
		}
		docs = append(docs, annexDocs...)
	}

	mainDocs, err := decodeDocuments(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, op, "loading config %q", path)
	}
	docs = append(docs, mainDocs...)
	return docs, nil
}

// decodeDocuments drains every document out of a single YAML file.
func decodeDocuments(ctx context.Context, path string) ([]seano.RawDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []seano.RawDoc
	dec := yaml.NewDecoder(f)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc seano.RawDoc
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
