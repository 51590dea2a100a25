// topo.go implements C3: the topological flattener that produces a stable
// linear ordering of releases honoring ancestry (spec §4.3).
package seano

import (
	"log/slog"
	"sort"
)

const maxTieBreak = int(^uint(0) >> 1)

// Flatten produces a deterministic ordering of release names such that the
// current version is first, no release precedes any of its descendants,
// and ties among eligible releases are broken deterministically.
func Flatten(releases map[string]*Release, current string, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}

	remaining := make(map[string]bool, len(releases))
	for name := range releases {
		remaining[name] = true
	}

	order := make([]string, 0, len(remaining))
	if remaining[current] {
		order = append(order, current)
		delete(remaining, current)
	}

	for len(remaining) > 0 {
		eligible := eligibleReleases(releases, remaining)
		if len(eligible) == 0 {
			name := lexSmallest(remaining)
			log.Warn("flatten: no eligible release (ancestry disconnected or malformed); emitting lexicographically smallest", "release", name)
			order = append(order, name)
			delete(remaining, name)
			continue
		}
		next := pickNext(releases, eligible)
		order = append(order, next)
		delete(remaining, next)
	}
	return order, nil
}

// eligibleReleases returns the remaining releases all of whose `before`
// descendants have already been emitted (i.e. are no longer remaining).
func eligibleReleases(releases map[string]*Release, remaining map[string]bool) []string {
	var out []string
	for name := range remaining {
		ok := true
		for _, e := range releases[name].Before() {
			if remaining[e.Name] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func lexSmallest(remaining map[string]bool) string {
	names := make([]string, 0, len(remaining))
	for n := range remaining {
		names = append(names, n)
	}
	sort.Strings(names)
	return names[0]
}

// pickNext selects, among eligible candidates, the one with the largest
// edge delta (non-transitive ancestors minus non-transitive descendants),
// breaking ties by earliest position in a descendant's after-list, then
// lexicographically (spec §4.3).
func pickNext(releases map[string]*Release, eligible []string) string {
	type scored struct {
		name  string
		delta int
		tie   int
	}
	scoredList := make([]scored, 0, len(eligible))
	for _, name := range eligible {
		ancestors := nonTransitiveAncestors(releases, name)
		descendants := nonTransitiveDescendants(releases, name)
		delta := len(ancestors) - len(descendants)
		tie := tieBreakIndex(releases, name, descendants)
		scoredList = append(scoredList, scored{name: name, delta: delta, tie: tie})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].delta != scoredList[j].delta {
			return scoredList[i].delta > scoredList[j].delta
		}
		if scoredList[i].tie != scoredList[j].tie {
			return scoredList[i].tie < scoredList[j].tie
		}
		return scoredList[i].name < scoredList[j].name
	})
	return scoredList[0].name
}

// tieBreakIndex finds the smallest index at which name appears in any of
// its descendants' (sorted) after-lists.
func tieBreakIndex(releases map[string]*Release, name string, descendants []string) int {
	best := maxTieBreak
	for _, d := range descendants {
		rel, ok := releases[d]
		if !ok {
			continue
		}
		for i, e := range rel.After() {
			if e.Name == name && i < best {
				best = i
			}
		}
	}
	return best
}

// nonTransitiveAncestors returns name's `after` entries that are not
// reachable through another of its `after` entries.
func nonTransitiveAncestors(releases map[string]*Release, name string) []string {
	return nonTransitiveNeighbors(releases, name, func(r *Release) AncestryList { return r.After() })
}

// nonTransitiveDescendants returns name's `before` entries that are not
// reachable through another of its `before` entries.
func nonTransitiveDescendants(releases map[string]*Release, name string) []string {
	return nonTransitiveNeighbors(releases, name, func(r *Release) AncestryList { return r.Before() })
}

func nonTransitiveNeighbors(releases map[string]*Release, name string, edgesOf func(*Release) AncestryList) []string {
	r, ok := releases[name]
	if !ok {
		return nil
	}
	direct := edgesOf(r)
	directNames := make([]string, 0, len(direct))
	directSet := make(map[string]bool, len(direct))
	for _, e := range direct {
		directNames = append(directNames, e.Name)
		directSet[e.Name] = true
	}

	redundant := map[string]bool{}
	for _, y := range directNames {
		visited := map[string]bool{}
		var walk func(n string)
		walk = func(n string) {
			rel, ok := releases[n]
			if !ok {
				return
			}
			for _, e := range edgesOf(rel) {
				if visited[e.Name] {
					continue
				}
				visited[e.Name] = true
				if directSet[e.Name] {
					redundant[e.Name] = true
				}
				walk(e.Name)
			}
		}
		walk(y)
	}

	out := make([]string, 0, len(directNames))
	for _, n := range directNames {
		if !redundant[n] {
			out = append(out, n)
		}
	}
	return out
}
