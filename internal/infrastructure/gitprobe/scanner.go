package gitprobe

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/errors"
)

// noteRecord is the shared identity behind every path a note has ever been
// known by. It is keyed internally by a monotonic id, never by path, so a
// path that is renamed away and later recreated resolves to a distinct
// record (spec §9, second open question).
type noteRecord struct {
	id         string
	path       string
	tombstoned bool
}

// Scanner implements seano.RepositoryWalker (the C6 orchestrator's
// repository-backed input): it drives a RepoProbe's commit stream through
// ref parsing, release propagation, and note rename tracking, feeding
// events into the aggregator (spec §4.5).
type Scanner struct {
	Probe           seano.RepoProbe
	RepoRoot        string
	RefParsers      []seano.RefParserSpec
	DeletedReleases map[string]bool
	IncludeModified bool

	paths     map[string]*noteRecord
	idCounter int
}

// NewScanner returns a Scanner driving probe over the repository rooted at
// repoRoot.
func NewScanner(probe seano.RepoProbe, repoRoot string, refParsers []seano.RefParserSpec, deletedReleases map[string]bool, includeModified bool) *Scanner {
	return &Scanner{
		Probe:           probe,
		RepoRoot:        repoRoot,
		RefParsers:      refParsers,
		DeletedReleases: deletedReleases,
		IncludeModified: includeModified,
		paths:           map[string]*noteRecord{},
	}
}

type parsedRelease struct {
	name  string
	attrs map[string]any
}

func (s *Scanner) parseReleases(c seano.Commit) []parsedRelease {
	var out []parsedRelease
	for _, refName := range c.Refs {
		attrs, ok := seano.MatchRef(s.RefParsers, refName)
		if !ok {
			continue
		}
		name, _ := attrs["name"].(string)
		if name == "" || s.DeletedReleases[name] {
			continue
		}
		out = append(out, parsedRelease{name: name, attrs: attrs})
	}
	return out
}

// commitState is the pair of sets propagated through the commit graph as
// Scanner.Walk descends toward the roots (spec §4.5 item 3).
type commitState struct {
	current []string
	distant []string
}

// Walk implements seano.RepositoryWalker.
func (s *Scanner) Walk(ctx context.Context, agg *seano.Aggregator, currentVersion string) error {
	const op = "gitprobe.Scanner.Walk"
	if s.paths == nil {
		s.paths = map[string]*noteRecord{}
	}

	states := map[string]*commitState{}
	seeded := false

	opts := seano.WalkOptions{
		RefParsers:      s.RefParsers,
		DeletedReleases: s.DeletedReleases,
		IncludeModified: s.IncludeModified,
		CurrentVersion:  currentVersion,
	}

	walkErr := s.Probe.Walk(ctx, opts, func(c seano.Commit) (bool, error) {
		st := states[c.Hash]
		if st == nil {
			st = &commitState{}
		}

		parsed := s.parseReleases(c)
		for _, p := range parsed {
			attrs := map[string]any{}
			for k, v := range p.attrs {
				if k == "name" {
					continue
				}
				attrs[k] = v
			}
			if c.Hash != seano.UncommittedSentinel {
				attrs["commit"] = c.Hash
			}
			if err := agg.ImportRelease(p.name, attrs, true); err != nil {
				return false, err
			}
		}

		var current []string
		switch {
		case !seeded:
			seeded = true
			if len(parsed) > 0 {
				for _, p := range parsed {
					current = append(current, p.name)
				}
			} else {
				current = []string{currentVersion}
			}
		case len(parsed) > 0:
			var newNames []string
			for _, p := range parsed {
				newNames = append(newNames, p.name)
			}
			if err := s.emitSiblingAncestry(agg, st.current, newNames); err != nil {
				return false, err
			}
			st.distant = unionStrings(st.distant, st.current)
			current = newNames
		default:
			current = st.current
		}

		for _, change := range c.Changes {
			if err := s.processChange(ctx, agg, c.Hash, current, change); err != nil {
				return false, err
			}
		}

		for _, parent := range c.Parents {
			ps := states[parent]
			if ps == nil {
				ps = &commitState{}
				states[parent] = ps
			}
			ps.current = unionStrings(ps.current, current)
			ps.distant = unionStrings(ps.distant, st.distant)
		}

		return true, nil
	})
	if walkErr != nil {
		return errors.Wrapf(walkErr, errors.KindRepository, op, "walking commit history")
	}
	return nil
}

// emitSiblingAncestry links every release in oldNames as a `before`
// (descendant) entry of every newly discovered release in newNames. When
// newNames has more than one member — the same commit decorated with
// multiple parseable tags — every member ends up sharing identical
// ancestry with its siblings. This quirk is preserved from the source
// scanner and kept behind this function so a future change stays local
// (spec §9).
func (s *Scanner) emitSiblingAncestry(agg *seano.Aggregator, oldNames, newNames []string) error {
	if len(oldNames) == 0 {
		return nil
	}
	ancestry := make(seano.AncestryList, 0, len(oldNames))
	for _, old := range oldNames {
		ancestry = append(ancestry, &seano.AncestryEntry{Name: old})
	}
	for _, newName := range newNames {
		if err := agg.ImportRelease(newName, map[string]any{"before": ancestry}, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) noteID() string {
	s.idCounter++
	return fmt.Sprintf("git-%d", s.idCounter)
}

func (s *Scanner) recordFor(path string) *noteRecord {
	r, ok := s.paths[path]
	if !ok {
		r = &noteRecord{id: s.noteID(), path: path}
		s.paths[path] = r
	}
	return r
}

// processChange applies a single change record to the rename tracker and,
// where warranted, emits a note event (spec §4.5 item 4).
func (s *Scanner) processChange(ctx context.Context, agg *seano.Aggregator, commitHash string, current []string, change seano.Change) error {
	switch change.Kind {
	case seano.ChangeAdded, seano.ChangeCopied:
		record := s.recordFor(change.Path)
		var err error
		if !record.tombstoned {
			err = s.emitNote(ctx, agg, record, commitHash, current)
		}
		// The file did not exist before this change; an older rename that
		// targets the same path string names an unrelated file.
		delete(s.paths, change.Path)
		return err

	case seano.ChangeRenamedExact:
		record := s.recordFor(change.Path)
		s.paths[change.OtherPath] = record
		return nil

	case seano.ChangeDeleted:
		record, ok := s.paths[change.Path]
		if !ok {
			record = &noteRecord{id: s.noteID(), path: change.Path}
			s.paths[change.Path] = record
		}
		record.tombstoned = true
		return nil

	case seano.ChangeModified:
		if !s.IncludeModified {
			return nil
		}
		record := s.recordFor(change.Path)
		if record.tombstoned {
			return nil
		}
		return s.emitNote(ctx, agg, record, commitHash, current)
	}
	return nil
}

func (s *Scanner) emitNote(ctx context.Context, agg *seano.Aggregator, record *noteRecord, commitHash string, current []string) error {
	releases := seano.NewSetValue()
	for _, name := range current {
		releases.Add(name)
	}
	commits := seano.NewSetValue()
	commits.Add(commitHash)
	attrs := map[string]any{"releases": releases, "commits": commits}
	path := filepath.Join(s.RepoRoot, record.path)
	return agg.ImportNote(ctx, path, record.id, attrs, true)
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
