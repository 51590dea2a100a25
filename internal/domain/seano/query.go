// query.go implements C6: the orchestrator that drives C1/C2 with input
// from either the filesystem scanner or the repository scanner, finalizes,
// and returns the document (spec §4.6).
package seano

import (
	"context"
	"log/slog"

	"github.com/relicta-tech/seano/internal/errors"
)

// NotesWalker is satisfied by the filesystem scanner (C4): it walks the
// notes directory and feeds every note it finds into the aggregator.
type NotesWalker interface {
	Walk(ctx context.Context, agg *Aggregator) error
}

// RepositoryWalker is satisfied by the repository scanner (C5): it walks
// commit history and feeds release/note events into the aggregator.
type RepositoryWalker interface {
	Walk(ctx context.Context, agg *Aggregator, currentVersion string) error
}

// QueryInput bundles everything the orchestrator needs: raw config
// documents (already loaded, annex first), and exactly one of Notes or
// Repository depending on whether the database path is version-controlled.
type QueryInput struct {
	ConfigDocs []RawDoc
	NoteLoader NoteLoader
	Notes      NotesWalker
	Repository RepositoryWalker
	Log        *slog.Logger
}

// Query runs the full pipeline: merge+normalize config (C1), seed and
// populate an aggregator (C2) from either the repository or filesystem
// scanner, and finalize into a Document (spec §4.6).
func Query(ctx context.Context, in QueryInput) (*Document, error) {
	const op = "seano.Query"
	log := in.Log
	if log == nil {
		log = slog.Default()
	}

	merged, err := MergeConfigDocs(in.ConfigDocs...)
	if err != nil {
		return nil, err
	}
	cfg, err := NormalizeConfig(merged)
	if err != nil {
		return nil, err
	}

	agg, err := NewAggregator(cfg, in.NoteLoader, log)
	if err != nil {
		return nil, err
	}

	switch {
	case in.Repository != nil:
		if err := in.Repository.Walk(ctx, agg, cfg.CurrentVersion); err != nil {
			return nil, errors.Wrapf(err, errors.KindRepository, op, "walking repository history")
		}
	case in.Notes != nil:
		if err := in.Notes.Walk(ctx, agg); err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, op, "walking notes directory")
		}
	default:
		return nil, errors.New(errors.KindInternal, op+": neither a repository nor a notes walker was supplied")
	}

	doc, err := agg.Finalize()
	if err != nil {
		return nil, err
	}
	doc.Extra = cfg.Extra
	return doc, nil
}
