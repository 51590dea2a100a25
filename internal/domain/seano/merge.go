package seano

import (
	"fmt"

	"github.com/relicta-tech/seano/internal/errors"
)

const opMerge = "seano.mergeSameKind"

// mergeSameKind implements the "Merge semantics by kind" table from spec
// §4.2. It requires existing and incoming to share the same kind; a kind
// mismatch is a fatal *errors.Error (KindMerge).
func mergeSameKind(key string, existing, incoming any) (any, error) {
	switch ex := existing.(type) {
	case string:
		in, ok := incoming.(string)
		if !ok {
			return nil, kindMismatch(key, existing, incoming)
		}
		// Same-kind merges on strings prefer the newcomer.
		return in, nil

	case []any:
		in, ok := incoming.([]any)
		if !ok {
			return nil, kindMismatch(key, existing, incoming)
		}
		out := make([]any, 0, len(ex)+len(in))
		out = append(out, ex...)
		out = append(out, in...)
		return out, nil

	case SetValue:
		in, ok := incoming.(SetValue)
		if !ok {
			return nil, kindMismatch(key, existing, incoming)
		}
		return ex.union(in), nil

	case AncestryList:
		in, ok := incoming.(AncestryList)
		if !ok {
			return nil, kindMismatch(key, existing, incoming)
		}
		return mergeAncestry(key, ex, in)

	case map[string]any:
		in, ok := incoming.(map[string]any)
		if !ok {
			return nil, kindMismatch(key, existing, incoming)
		}
		return mergeMap(ex, in), nil

	default:
		// Scalars (bool, numbers, nil): same overwrite-with-newcomer rule
		// as strings, as long as both sides are the same underlying kind
		// (or absent/nil).
		if existing == nil || incoming == nil || fmt.Sprintf("%T", existing) == fmt.Sprintf("%T", incoming) {
			return incoming, nil
		}
		return nil, kindMismatch(key, existing, incoming)
	}
}

// mergeAncestry merges one AncestryList into another: incoming entries are
// appended when absent; when a destination entry with the same name exists,
// the incoming entry's Extra fields are shallow-merged into it with the
// incoming values winning. No auto/manual precedence is applied to those
// fields, and nested values are replaced rather than merged. Two destination
// entries sharing a name makes the database ambiguous.
func mergeAncestry(key string, dst, src AncestryList) (AncestryList, error) {
	seen := map[string]int{}
	out := dst.clone()
	for i, e := range out {
		if _, ok := seen[e.Name]; ok {
			return nil, errors.Newf(errors.KindMerge, "%s: ambiguous ancestry entry %q appears twice in %q", opMerge, e.Name, key)
		}
		seen[e.Name] = i
	}
	for _, incoming := range src {
		if idx, ok := seen[incoming.Name]; ok {
			out[idx].Extra = mergeMap(out[idx].Extra, incoming.Extra)
			continue
		}
		out = append(out, &AncestryEntry{Name: incoming.Name, Extra: cloneExtra(incoming.Extra)})
		seen[incoming.Name] = len(out) - 1
	}
	return out, nil
}

// mergeMap shallow-merges src into a copy of dst, with src's values winning
// on key conflicts; this backs the free-form "extra" attribute bag for
// values that normalize to plain mappings rather than one of the four named
// kinds.
func mergeMap(dst, src map[string]any) map[string]any {
	out := cloneExtra(dst)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func kindMismatch(key string, existing, incoming any) error {
	return errors.Newf(errors.KindMerge, "%s: incompatible kinds for %q: existing %T, incoming %T", opMerge, key, existing, incoming)
}

// applyCell applies the precedence table of spec §4.2 to a single
// attribute slot. existing may be nil (slot previously absent).
func applyCell(key string, existing *Cell, incoming any, isAuto bool) (*Cell, error) {
	if existing == nil || existing.Origin == OriginNone {
		return &Cell{Value: incoming, Origin: originFor(isAuto)}, nil
	}

	switch existing.Origin {
	case OriginAuto:
		if isAuto {
			merged, err := mergeSameKind(key, existing.Value, incoming)
			if err != nil {
				return nil, err
			}
			return &Cell{Value: merged, Origin: OriginAuto}, nil
		}
		// Manual overwrites auto outright.
		return &Cell{Value: incoming, Origin: OriginManual}, nil

	case OriginManual:
		if isAuto {
			// Automatic writes never clobber a manual value; rejected
			// silently (logged by the caller, which has the context to
			// describe where the write came from).
			return existing, nil
		}
		merged, err := mergeSameKind(key, existing.Value, incoming)
		if err != nil {
			return nil, err
		}
		return &Cell{Value: merged, Origin: OriginManual}, nil
	}

	return &Cell{Value: incoming, Origin: originFor(isAuto)}, nil
}
