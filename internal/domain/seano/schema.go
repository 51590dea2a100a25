// schema.go implements C1: the schema normalizer that coerces heterogeneous
// user-authored input shapes into the canonical forms the aggregator and
// flattener operate on (spec §4.1).
package seano

import (
	"strings"

	"github.com/relicta-tech/seano/internal/errors"
)

const opNormalize = "seano.Normalize"

// NormalizeAncestryContainer coerces a parent_versions/before/after value
// into an AncestryList: null becomes empty, a bare string becomes a
// singleton, a list of strings becomes a list of named entries, and a list
// of mappings is validated to each carry a non-empty string "name".
func NormalizeAncestryContainer(key string, v any) (AncestryList, error) {
	switch val := v.(type) {
	case nil:
		return AncestryList{}, nil
	case AncestryList:
		return val, nil
	case string:
		if val == "" {
			return AncestryList{}, nil
		}
		return AncestryList{{Name: val}}, nil
	case []any:
		out := make(AncestryList, 0, len(val))
		for _, item := range val {
			switch iv := item.(type) {
			case string:
				out = append(out, &AncestryEntry{Name: iv})
			case map[string]any:
				name, _ := iv["name"].(string)
				if name == "" {
					return nil, errors.Newf(errors.KindConfig, "%s: ancestry entry in %q missing a non-empty name: %v", opNormalize, key, iv)
				}
				extra := map[string]any{}
				for k, v2 := range iv {
					if k == "name" {
						continue
					}
					extra[k] = v2
				}
				out = append(out, &AncestryEntry{Name: name, Extra: extra})
			default:
				return nil, errors.Newf(errors.KindConfig, "%s: unsupported ancestry entry in %q: %v (%T)", opNormalize, key, item, item)
			}
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.KindConfig, "%s: unsupported value for ancestry container %q: %v (%T)", opNormalize, key, v, v)
	}
}

// NormalizeSetField coerces a note-level set field (commits, releases,
// tickets) into a SetValue: null becomes empty, a bare string becomes a
// singleton, and a list becomes a set of its validated string (or null)
// elements.
func NormalizeSetField(key string, v any) (SetValue, error) {
	switch val := v.(type) {
	case nil:
		return NewSetValue(), nil
	case SetValue:
		return val, nil
	case string:
		out := NewSetValue()
		out.Add(val)
		return out, nil
	case []any:
		out := NewSetValue()
		for _, item := range val {
			switch iv := item.(type) {
			case nil:
				out.AddNull()
			case string:
				out.Add(iv)
			default:
				return out, errors.Newf(errors.KindConfig, "%s: set field %q expects strings or null, got %v (%T)", opNormalize, key, item, item)
			}
		}
		return out, nil
	default:
		return NewSetValue(), errors.Newf(errors.KindConfig, "%s: unsupported value for set field %q: %v (%T)", opNormalize, key, v, v)
	}
}

// truthy mirrors the loose "is this configured value truthy" test applied
// to the release-level `delete` flag.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false" && val != "0"
	default:
		return true
	}
}

// ReleaseSeed is a single normalized entry from the config's `releases`
// list, ready to be fed into Aggregator.ImportRelease as a manual write.
type ReleaseSeed struct {
	Name  string
	Attrs map[string]any
}

// releaseAttrSkip is the set of top-level release entry keys that are not
// carried through as arbitrary attributes.
var releaseAttrSkip = map[string]bool{"name": true, "delete": true}

// NormalizeReleaseList coerces the config's `releases` field: null becomes
// empty, entries must be mappings with a non-empty name, and any entry
// whose `delete` field is truthy is dropped entirely (it is never
// inserted, per spec §3 Lifecycles) but its name is still reported via
// deleted so ref parsing can skip tags that resolve to it (spec §4.5 item 1).
func NormalizeReleaseList(v any) (seeds []ReleaseSeed, deleted map[string]bool, err error) {
	deleted = map[string]bool{}
	if v == nil {
		return nil, deleted, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, nil, errors.Newf(errors.KindConfig, "%s: releases must be a list, got %T", opNormalize, v)
	}
	out := make([]ReleaseSeed, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, nil, errors.Newf(errors.KindConfig, "%s: release entry must be a mapping, got %T", opNormalize, item)
		}
		name, _ := m["name"].(string)
		if name == "" {
			return nil, nil, errors.Newf(errors.KindConfig, "%s: release entry missing a non-empty name: %v", opNormalize, m)
		}
		if truthy(m["delete"]) {
			deleted[name] = true
			continue
		}
		attrs, aerr := NormalizeReleaseAttrs(m)
		if aerr != nil {
			return nil, nil, aerr
		}
		out = append(out, ReleaseSeed{Name: name, Attrs: attrs})
	}
	return out, deleted, nil
}

// NormalizeReleaseAttrs normalizes the attribute map of a single release
// entry: before/after become AncestryLists, rich-text keys are flattened,
// and everything else (other than name/delete) passes through unchanged.
func NormalizeReleaseAttrs(m map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for k, v := range m {
		if releaseAttrSkip[k] {
			continue
		}
		norm, err := normalizeAttrValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = norm
	}
	return out, nil
}

// noteSetFields are the note-level fields declared "set-like" by spec §4.1
// rule 3.
var noteSetFields = map[string]bool{"commits": true, "releases": true, "tickets": true}

// NormalizeNoteDoc normalizes a single document loaded from a note file:
// set-like fields become SetValues, rich-text keys are flattened, and
// everything else passes through unchanged.
func NormalizeNoteDoc(m map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for k, v := range m {
		if noteSetFields[k] {
			sv, err := NormalizeSetField(k, v)
			if err != nil {
				return nil, err
			}
			out[k] = sv
			continue
		}
		norm, err := normalizeAttrValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = norm
	}
	return out, nil
}

func normalizeAttrValue(key string, v any) (any, error) {
	switch {
	case key == "before" || key == "after":
		return NormalizeAncestryContainer(key, v)
	case strings.HasSuffix(key, RichTextSuffix):
		return NormalizeRichText(key, v)
	default:
		return v, nil
	}
}
