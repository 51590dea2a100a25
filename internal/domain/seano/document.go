package seano

import "sort"

// Document is the finalized output of a query: the normalized top-level
// config (minus its releases field) plus the ordered, doubly-linked
// release graph (spec §4.6, §6).
type Document struct {
	CurrentVersion string
	Extra          map[string]any
	Releases       []*ReleaseView
}

// ReleaseView is the read-only, flag-free rendering of a Release.
type ReleaseView struct {
	Name   string
	Before []AncestryRefView
	After  []AncestryRefView
	Notes  []*NoteView
	Commit *string
	Extra  map[string]any
}

// AncestryRefView is the read-only rendering of an AncestryEntry.
type AncestryRefView struct {
	Name  string
	Extra map[string]any
}

// NoteView is the read-only rendering of a Note.
type NoteView struct {
	ID       string
	Releases []string
	Commits  []string
	Extra    map[string]any
}

func sortNotesByID(notes []*Note) {
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
}

func toAncestryViews(al AncestryList) []AncestryRefView {
	out := make([]AncestryRefView, 0, len(al))
	for _, e := range al {
		out = append(out, AncestryRefView{Name: e.Name, Extra: cloneExtra(e.Extra)})
	}
	return out
}

func toReleaseView(r *Release) *ReleaseView {
	view := &ReleaseView{
		Name:   r.Name,
		Before: toAncestryViews(r.Before()),
		After:  toAncestryViews(r.After()),
		Extra:  map[string]any{},
	}
	if c, ok := r.Commit(); ok {
		view.Commit = &c
	}
	for key, cell := range r.Attrs {
		if key == "before" || key == "after" || key == "commit" {
			continue
		}
		view.Extra[key] = cell.Value
	}
	seen := map[*Note]bool{}
	for _, n := range r.Notes {
		if seen[n] {
			continue
		}
		seen[n] = true
		view.Notes = append(view.Notes, toNoteView(n))
	}
	sort.Slice(view.Notes, func(i, j int) bool { return view.Notes[i].ID < view.Notes[j].ID })
	return view
}

func toNoteView(n *Note) *NoteView {
	view := &NoteView{ID: n.ID, Extra: map[string]any{}}
	for _, v := range n.Releases().Sorted() {
		if s, ok := v.(string); ok {
			view.Releases = append(view.Releases, s)
		}
	}
	if commits := n.Commits(); commits.Len() > 0 {
		for _, v := range commits.Sorted() {
			if s, ok := v.(string); ok {
				view.Commits = append(view.Commits, s)
			}
		}
	}
	for key, cell := range n.Attrs {
		if key == "releases" || key == "commits" {
			continue
		}
		view.Extra[key] = cell.Value
	}
	return view
}
