// aggregate.go implements C2: the data aggregator that accumulates partial
// release/note information from multiple sources under auto/manual
// precedence and emits the finalized document (spec §4.2).
package seano

import (
	"context"
	"log/slog"

	"github.com/relicta-tech/seano/internal/errors"
)

// Aggregator accumulates releases and notes from config, filesystem, and
// repository sources, then finalizes them into a Document. It is not safe
// for concurrent use (spec §5).
type Aggregator struct {
	currentVersion string
	releases       map[string]*Release
	notes          map[string]*Note
	noteLoaded     map[string]bool
	noteLoader     NoteLoader
	log            *slog.Logger
}

// NewAggregator seeds an Aggregator from a normalized config: it creates the
// current-version release, imports parent_versions as manual `after`
// ancestry on it, and imports every manual release the config declares.
func NewAggregator(cfg *NormalizedConfig, noteLoader NoteLoader, log *slog.Logger) (*Aggregator, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &Aggregator{
		currentVersion: cfg.CurrentVersion,
		releases:       map[string]*Release{},
		notes:          map[string]*Note{},
		noteLoaded:     map[string]bool{},
		noteLoader:     noteLoader,
		log:            log,
	}

	a.ensureRelease(cfg.CurrentVersion)
	if len(cfg.ParentVersions) > 0 {
		if err := a.ImportRelease(cfg.CurrentVersion, map[string]any{"after": cfg.ParentVersions}, false); err != nil {
			return nil, err
		}
	}
	for _, seed := range cfg.Releases {
		if err := a.ImportRelease(seed.Name, seed.Attrs, false); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// CurrentVersion returns the release name seeded from config's
// current_version (defaulting to "HEAD").
func (a *Aggregator) CurrentVersion() string {
	return a.currentVersion
}

func (a *Aggregator) ensureRelease(name string) *Release {
	r, ok := a.releases[name]
	if !ok {
		r = newRelease(name)
		a.releases[name] = r
	}
	return r
}

// ImportRelease applies automatic (or manual) attributes to the named
// release, creating it if absent (spec §4.2).
func (a *Aggregator) ImportRelease(name string, attrs map[string]any, isAuto bool) error {
	const op = "seano.Aggregator.ImportRelease"
	r := a.ensureRelease(name)
	for key, val := range attrs {
		existing := r.Attrs[key]
		next, err := applyCell(key, existing, val, isAuto)
		if err != nil {
			return errors.Wrapf(err, errors.KindMerge, op, "release %q attribute %q", name, key)
		}
		if existing != nil && existing.Origin == OriginManual && isAuto && next == existing {
			a.log.Info("automatic write rejected by manual value", "release", name, "attribute", key)
		}
		r.Attrs[key] = next
	}
	return nil
}

// ImportNote ensures the note's own file content has been parsed (once,
// memoized by id) and merged in as manual attributes, then applies attrs on
// top under the given auto/manual flag (spec §4.2, §4.4, §4.5).
func (a *Aggregator) ImportNote(ctx context.Context, path, id string, attrs map[string]any, isAuto bool) error {
	const op = "seano.Aggregator.ImportNote"
	note, ok := a.notes[id]
	if !ok {
		note = newNote(id)
		a.notes[id] = note
	}

	if !a.noteLoaded[id] {
		a.noteLoaded[id] = true
		if a.noteLoader != nil {
			docs, err := a.noteLoader.LoadNote(ctx, path)
			if err != nil {
				return errors.Wrapf(err, errors.KindConfig, op, "loading note %q", path)
			}
			for _, doc := range docs {
				normalized, err := NormalizeNoteDoc(doc)
				if err != nil {
					return err
				}
				if err := applyNoteAttrs(note, normalized, false); err != nil {
					return errors.Wrapf(err, errors.KindMerge, op, "note %q", id)
				}
			}
		}
	}

	if err := applyNoteAttrs(note, attrs, isAuto); err != nil {
		return errors.Wrapf(err, errors.KindMerge, op, "note %q", id)
	}
	return nil
}

func applyNoteAttrs(note *Note, attrs map[string]any, isAuto bool) error {
	for key, val := range attrs {
		next, err := applyCell(key, note.Attrs[key], val, isAuto)
		if err != nil {
			return err
		}
		note.Attrs[key] = next
	}
	return nil
}

// Finalize produces the consolidated, ordered Document (spec §4.2 step 5).
func (a *Aggregator) Finalize() (*Document, error) {
	const op = "seano.Aggregator.Finalize"

	for id, note := range a.notes {
		if note.Releases().Len() == 0 {
			note.Attrs["releases"] = &Cell{Value: singleton(a.currentVersion), Origin: OriginAuto}
		}

		releases := note.Releases()
		targets := releases.Sorted()
		ghost := note.isGhost()
		attached := false
		for _, t := range targets {
			name, ok := t.(string)
			if !ok {
				continue
			}
			rel, exists := a.releases[name]
			if !exists {
				if ghost {
					continue
				}
				return nil, errors.Newf(errors.KindValidation, "%s: note %q names unknown release %q", op, id, name)
			}
			rel.Notes = append(rel.Notes, note)
			attached = true
		}
		if !attached && ghost {
			a.log.Info("ghost note suppressed", "note", id)
		}
	}

	// Doubly-link ancestry: every before edge gets a mirrored after edge,
	// and vice versa.
	for name, r := range a.releases {
		for _, x := range r.Before() {
			if err := a.mirrorAncestry(x.Name, "after", name); err != nil {
				return nil, errors.Wrapf(err, errors.KindValidation, op, "release %q before edge to %q", name, x.Name)
			}
		}
		for _, x := range r.After() {
			if err := a.mirrorAncestry(x.Name, "before", name); err != nil {
				return nil, errors.Wrapf(err, errors.KindValidation, op, "release %q after edge to %q", name, x.Name)
			}
		}
	}

	for _, r := range a.releases {
		r.Attrs["before"] = &Cell{Value: ancestryOf(r.Attrs["before"]).sortedByName(), Origin: originOf(r.Attrs["before"])}
		r.Attrs["after"] = &Cell{Value: ancestryOf(r.Attrs["after"]).sortedByName(), Origin: originOf(r.Attrs["after"])}
		sortNotesByID(r.Notes)
	}

	order, err := Flatten(a.releases, a.currentVersion, a.log)
	if err != nil {
		return nil, err
	}

	doc := &Document{CurrentVersion: a.currentVersion}
	for _, name := range order {
		doc.Releases = append(doc.Releases, toReleaseView(a.releases[name]))
	}
	return doc, nil
}

func originOf(c *Cell) Origin {
	if c == nil {
		return OriginNone
	}
	return c.Origin
}

func singleton(name string) SetValue {
	sv := NewSetValue()
	sv.Add(name)
	return sv
}

// mirrorAncestry adds {name: peer} to releases[name].Attrs[slot], creating
// releases[name] if it did not already exist (an ancestry entry may be the
// first mention of a release).
func (a *Aggregator) mirrorAncestry(name, slot, peer string) error {
	r := a.ensureRelease(name)
	existing := ancestryOf(r.Attrs[slot])
	merged, err := mergeAncestry(slot, existing, AncestryList{{Name: peer}})
	if err != nil {
		return err
	}
	origin := originOf(r.Attrs[slot])
	if origin == OriginNone {
		origin = OriginAuto
	}
	r.Attrs[slot] = &Cell{Value: merged, Origin: origin}
	return nil
}
