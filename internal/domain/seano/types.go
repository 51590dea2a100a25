// Package seano implements the release-notes database query engine: the
// aggregator, topological flattener, and schema normalizer described by the
// seano data model. It is consumed by the infrastructure adapters in
// internal/infrastructure/* and orchestrated by Query.
package seano

import "sort"

// Origin records whether a Cell's current value was written by an
// automatic source (repository/filesystem detection) or a manual source
// (user-authored configuration or note content). It is the existing slot's
// side of the precedence table in applyCell.
type Origin uint8

const (
	// OriginNone marks a Cell that has never been written.
	OriginNone Origin = iota
	// OriginAuto marks a Cell whose current value came from detection.
	OriginAuto
	// OriginManual marks a Cell whose current value came from user input.
	OriginManual
)

func originFor(isAuto bool) Origin {
	if isAuto {
		return OriginAuto
	}
	return OriginManual
}

// Cell holds a single attribute value plus the provenance flag used for
// auto/manual precedence arbitration (spec §4.2, §9).
type Cell struct {
	Value  any
	Origin Origin
}

// AncestryEntry is a small mapping keyed by Name plus optional annotations
// (e.g. is-backstory). Ancestry entries are compared and deduplicated by
// Name.
type AncestryEntry struct {
	Name  string
	Extra map[string]any
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AncestryList is an ordered collection of AncestryEntry values, treated as
// a set keyed by Name.
type AncestryList []*AncestryEntry

// find returns the entry with the given name, or nil.
func (al AncestryList) find(name string) *AncestryEntry {
	for _, e := range al {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// clone returns a deep copy of the list.
func (al AncestryList) clone() AncestryList {
	if al == nil {
		return nil
	}
	out := make(AncestryList, len(al))
	for i, e := range al {
		out[i] = &AncestryEntry{Name: e.Name, Extra: cloneExtra(e.Extra)}
	}
	return out
}

func (al AncestryList) sortedByName() AncestryList {
	out := al.clone()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UncommittedSentinel is the distinguished value used in a note's "commits"
// set to represent that the note has uncommitted content.
const UncommittedSentinel = "uncommitted"

// SetValue is the canonical representation of a "set-like" note field
// (commits, releases, tickets): a set of strings plus a flag for whether a
// literal null element is present among them (spec §4.1 rule 3).
type SetValue struct {
	Items   map[string]struct{}
	HasNull bool
}

// NewSetValue builds an empty SetValue.
func NewSetValue() SetValue {
	return SetValue{Items: map[string]struct{}{}}
}

// Add inserts v into the set.
func (s *SetValue) Add(v string) {
	if s.Items == nil {
		s.Items = map[string]struct{}{}
	}
	s.Items[v] = struct{}{}
}

// AddNull records the presence of a literal null element.
func (s *SetValue) AddNull() { s.HasNull = true }

// Has reports whether v is a member.
func (s SetValue) Has(v string) bool {
	_, ok := s.Items[v]
	return ok
}

// Len returns the number of members, including the null member if present.
func (s SetValue) Len() int {
	n := len(s.Items)
	if s.HasNull {
		n++
	}
	return n
}

// Sorted returns the set's members as a sorted slice of `any`, with the
// null member (if present) sorted first.
func (s SetValue) Sorted() []any {
	out := make([]any, 0, s.Len())
	if s.HasNull {
		out = append(out, nil)
	}
	strs := make([]string, 0, len(s.Items))
	for v := range s.Items {
		strs = append(strs, v)
	}
	sort.Strings(strs)
	for _, v := range strs {
		out = append(out, v)
	}
	return out
}

// union returns the union of s and other, used when merging two auto (or
// two manual) set-valued slots.
func (s SetValue) union(other SetValue) SetValue {
	out := NewSetValue()
	for v := range s.Items {
		out.Add(v)
	}
	for v := range other.Items {
		out.Add(v)
	}
	out.HasNull = s.HasNull || other.HasNull
	return out
}

// Release is a named point in project history. It is built up incrementally
// by the Aggregator and only takes its final shape after Finalize.
type Release struct {
	Name  string
	Attrs map[string]*Cell
	Notes []*Note

	// deleted is never set or read: NormalizeReleaseList drops a config
	// release whose `delete` flag is truthy before it reaches the
	// aggregator, so a deleted release is never inserted (spec §3
	// Lifecycles).
	deleted bool
}

func newRelease(name string) *Release {
	return &Release{Name: name, Attrs: map[string]*Cell{}}
}

// Before returns the release's before-ancestry, or an empty list.
func (r *Release) Before() AncestryList {
	return ancestryOf(r.Attrs["before"])
}

// After returns the release's after-ancestry, or an empty list.
func (r *Release) After() AncestryList {
	return ancestryOf(r.Attrs["after"])
}

// Commit returns the release's commit identifier, if any.
func (r *Release) Commit() (string, bool) {
	c, ok := r.Attrs["commit"]
	if !ok {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

func ancestryOf(c *Cell) AncestryList {
	if c == nil {
		return nil
	}
	al, _ := c.Value.(AncestryList)
	return al
}

// Note is a single change record. It is keyed by ID across the whole
// database and carries arbitrary attributes loaded from its note file plus
// any automatic attribution applied by the repository scanner.
type Note struct {
	ID    string
	Attrs map[string]*Cell
}

func newNote(id string) *Note {
	return &Note{ID: id, Attrs: map[string]*Cell{}}
}

// Releases returns the set of release names this note belongs to.
func (n *Note) Releases() SetValue {
	return setOf(n.Attrs["releases"])
}

// Commits returns the set of commit identifiers that introduced or
// modified this note.
func (n *Note) Commits() SetValue {
	return setOf(n.Attrs["commits"])
}

func setOf(c *Cell) SetValue {
	if c == nil {
		return NewSetValue()
	}
	sv, ok := c.Value.(SetValue)
	if !ok {
		return NewSetValue()
	}
	return sv
}

func (n *Note) isGhost() bool {
	c, ok := n.Attrs["ghost"]
	if !ok {
		return false
	}
	b, _ := c.Value.(bool)
	return b
}
